package repos

import (
	"errors"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrDuplicate = errors.New("duplicate record")
)

// OpenDB opens sqlite for file paths and :memory:, and Postgres (pgx) for
// postgres:// DSNs, then creates the schema.
func OpenDB(dsn string) (*sqlx.DB, error) {
	driver := "sqlite"
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		driver = "pgx"
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == "sqlite" {
		// one connection: :memory: databases are per-connection and sqlite
		// serializes writers anyway
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('USER','ADMIN')),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email))`,

	`CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,
  user_id TEXT NULL REFERENCES users(id) ON DELETE SET NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  last_seen TEXT
)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id)`,

	`CREATE TABLE IF NOT EXISTS categories(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  level INTEGER NOT NULL CHECK (level >= 1),
  path TEXT NOT NULL,
  parent_id TEXT NULL REFERENCES categories(id) ON DELETE SET NULL,
  marktplaats_id TEXT,
  fields TEXT,
  ebay_fields TEXT,
  ebay_category_id TEXT,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_categories_parent ON categories(parent_id)`,
	`CREATE INDEX IF NOT EXISTS idx_categories_level_name ON categories(level, name)`,
	`CREATE INDEX IF NOT EXISTS idx_categories_path ON categories(path)`,

	`CREATE TABLE IF NOT EXISTS products(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  title TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  price TEXT NOT NULL,
  article_number TEXT NOT NULL,
  category_id TEXT NULL REFERENCES categories(id) ON DELETE SET NULL,
  category_fields TEXT,
  ebay_fields TEXT,
  platforms TEXT NOT NULL DEFAULT '["marktplaats"]',
  condition TEXT NOT NULL DEFAULT '',
  delivery_option TEXT NOT NULL DEFAULT '',
  location TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending','processing','completed','failed')),
  marktplaats_url TEXT,
  marktplaats_ad_id TEXT,
  views INTEGER NOT NULL DEFAULT 0,
  saves INTEGER NOT NULL DEFAULT 0,
  posted_at TEXT,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_products_owner_article ON products(user_id, article_number)`,
	`CREATE INDEX IF NOT EXISTS idx_products_status_created ON products(status, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_products_user ON products(user_id)`,
}

func ensureSchema(db *sqlx.DB) error {
	if db.DriverName() == "sqlite" {
		if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
			return err
		}
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SeedUser creates a USER account unless the email already exists.
func SeedUser(db *sqlx.DB, email, name, password string) error {
	if email == "" || password == "" {
		return nil
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return err
	}
	res, err := db.Exec(db.Rebind(`
		INSERT INTO users(id,email,name,password_hash,role)
		VALUES(?,?,?,?,'USER')
		ON CONFLICT(email) DO NOTHING
	`), uuid.NewString(), email, name, string(h))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		log.Printf("[seed] created user %s", email)
	}
	return nil
}

// isUnique reports unique-constraint violations from either driver.
func isUnique(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return pe.Code == "23505"
	}
	return false
}
