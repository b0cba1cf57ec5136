package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	DBDSN    string
	MediaDir string
	LogFile  string

	// InternalAPIKey is the shared secret accepted instead of a session.
	// Empty disables key authentication.
	InternalAPIKey string

	CloudinaryURL    string
	CloudinaryFolder string

	BaseURL       string
	WorkerCmd     string
	WorkerScript  string
	StatsScript   string
	WorkerTimeout time.Duration
	BatchDelay    time.Duration

	SecureCookies bool

	SeedEmail    string
	SeedPassword string
	SeedName     string
}

func Load() Config {
	// .env is optional
	_ = godotenv.Load()

	port := getEnv("PORT", "8080")
	cfg := Config{
		Port:             port,
		DBDSN:            getEnv("DB_DSN", "listingdesk.db"),
		MediaDir:         getEnv("MEDIA_DIR", "./web/media"),
		LogFile:          getEnv("LOG_FILE", "./listingdesk.log"),
		InternalAPIKey:   strings.TrimSpace(os.Getenv("INTERNAL_API_KEY")),
		CloudinaryURL:    strings.TrimSpace(os.Getenv("CLOUDINARY_URL")),
		CloudinaryFolder: getEnv("CLOUDINARY_FOLDER", "listings"),
		BaseURL:          strings.TrimRight(getEnv("BASE_URL", "http://localhost:"+port), "/"),
		WorkerCmd:        getEnv("WORKER_CMD", "python"),
		WorkerScript:     getEnv("WORKER_SCRIPT", "scripts/post_ads.py"),
		StatsScript:      getEnv("STATS_SCRIPT", "scripts/scrape_user_ads.py"),
		WorkerTimeout:    getDuration("WORKER_TIMEOUT", 5*time.Minute),
		BatchDelay:       getDuration("BATCH_DELAY", time.Second),
		SecureCookies:    getBool("SECURE_COOKIES", false),
		SeedEmail:        os.Getenv("SEED_USER_EMAIL"),
		SeedPassword:     os.Getenv("SEED_USER_PASSWORD"),
		SeedName:         getEnv("SEED_USER_NAME", "Owner"),
	}

	log.Printf("[config] PORT=%s DB_DSN=%s MEDIA_DIR=%s LOG_FILE=%s BLOB=%t API_KEY=%t WORKER=%s %s",
		cfg.Port, redactDSN(cfg.DBDSN), cfg.MediaDir, cfg.LogFile,
		cfg.CloudinaryURL != "", cfg.InternalAPIKey != "", cfg.WorkerCmd, cfg.WorkerScript)
	return cfg
}

// UseBlobStore reports whether images go to the remote blob store.
func (c Config) UseBlobStore() bool { return c.CloudinaryURL != "" }

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[config] bad %s=%q, using %s", key, v, def)
		return def
	}
	return d
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// redactDSN hides the password of a URL-style DSN.
func redactDSN(dsn string) string {
	at := strings.Index(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	creds := dsn[scheme+3 : at]
	if i := strings.Index(creds, ":"); i >= 0 {
		return dsn[:scheme+3] + creds[:i] + ":***" + dsn[at:]
	}
	return dsn
}
