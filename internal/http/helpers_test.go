package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"listingdesk/internal/config"
	"listingdesk/internal/domain"
	"listingdesk/internal/http/handlers"
	"listingdesk/internal/repos"
	"listingdesk/internal/services"
	"listingdesk/internal/storage"
)

const testKey = "s3cret-key"

// postScript stands in for the marketplace posting script.
const postScript = `echo "Succesvol verwerkt"
echo 'RESULT_JSON:{"ad_url":"https://www.marktplaats.nl/v/a/m1","ad_id":"m1","views":0,"saves":0}'
`

type testEnv struct {
	app      *fiber.App
	db       *sqlx.DB
	users    *repos.UserRepo
	products *repos.ProductRepo
	mediaDir string
	script   string
}

// newTestEnv builds the API and dashboard routes over an in-memory db. An
// empty key disables key access and keeps batch posting in-process.
func newTestEnv(t *testing.T, apiKey string) *testEnv {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	dir := t.TempDir()
	script := filepath.Join(dir, "post.sh")
	require.NoError(t, os.WriteFile(script, []byte(postScript), 0o755))

	cfg := config.Config{
		BaseURL:        "http://127.0.0.1:1",
		InternalAPIKey: apiKey,
		MediaDir:       filepath.Join(dir, "media"),
		WorkerCmd:      "sh",
		WorkerScript:   script,
		StatsScript:    script,
		WorkerTimeout:  5 * time.Second,
	}
	userRepo := repos.NewUserRepo(db)
	authSvc := &services.AuthService{Users: userRepo, APIKey: apiKey}
	deps := handlers.NewDeps(db, cfg, authSvc, storage.NewLocalStore(cfg.MediaDir))

	engine := html.New("../../web/templates", ".html")
	app := fiber.New(fiber.Config{Views: engine})
	app.Use(requestid.New())
	app.Use(handlers.AttachUser(authSvc))
	handlers.MountAPI(app, authSvc, deps)
	dash := app.Group("/dashboard", handlers.RequireUser(authSvc))
	dash.Get("/", deps.DashboardHandler.Page)
	dash.Post("/reset-failed", deps.DashboardHandler.ResetFailed)

	return &testEnv{app: app, db: db, users: userRepo, products: repos.NewProductRepo(db), mediaDir: cfg.MediaDir, script: script}
}

// login creates a user and a bound session, returning the session id.
func (e *testEnv) login(t *testing.T, userID string) string {
	t.Helper()
	require.NoError(t, e.users.Create(domain.User{ID: userID, Email: userID + "@example.test", Name: userID, Hash: "x"}))
	sid := "sid-" + userID
	require.NoError(t, e.users.BindSession(sid, userID))
	return sid
}

func (e *testEnv) seedProduct(t *testing.T, owner, article string, st domain.Status) domain.Product {
	t.Helper()
	p := domain.Product{
		ID:            owner + "-" + article,
		UserID:        owner,
		Title:         "Eiken tafel " + article,
		Price:         decimal.RequireFromString("49.50"),
		ArticleNumber: article,
		Platforms:     domain.Platforms{domain.PlatformMarktplaats},
		Status:        st,
	}
	require.NoError(t, e.products.Create(p))
	return p
}

type reqOpt func(*http.Request)

func asUser(sid string) reqOpt {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "sid", Value: sid}) }
}

func withKey(key string) reqOpt {
	return func(r *http.Request) { r.Header.Set(handlers.APIKeyHeader, key) }
}

// do sends body as JSON: a string is sent verbatim, anything else is marshalled.
func (e *testEnv) do(t *testing.T, method, path string, body any, opts ...reqOpt) *http.Response {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, o := range opts {
		o(req)
	}
	resp, err := e.app.Test(req, 10000)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func extractCookie(resp *http.Response, name string) string {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

type logEntry struct {
	Level  string         `json:"level"`
	Action string         `json:"action"`
	Auth   string         `json:"auth"`
	UserID string         `json:"user_id"`
	Fields map[string]any `json:"fields"`
}

type lockedWriter struct {
	w  *bytes.Buffer
	mu *sync.Mutex
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

// captureLogs swaps the standard logger output for the duration of fn.
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	var buf bytes.Buffer
	var mu sync.Mutex
	oldW := log.Writer()
	oldFlags := log.Flags()
	log.SetOutput(&lockedWriter{w: &buf, mu: &mu})
	log.SetFlags(0)
	defer func() {
		log.SetOutput(oldW)
		log.SetFlags(oldFlags)
	}()

	fn()

	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var e logEntry
		if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

func findLog(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}
