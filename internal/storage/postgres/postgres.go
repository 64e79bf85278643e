// Package postgres stores the event log and behavior graph documents.
package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	_ "github.com/lib/pq"
)

// Config holds libpq connection parameters.
type Config struct {
	Host     string
	Port     string
	User     string
	Database string
	Password string
	SSLMode  string
}

// ConfigFromEnv reads the standard PG* variables. The password is passed
// in so callers can resolve it from a *_FILE secret.
func ConfigFromEnv(password string) Config {
	env := func(key, def string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return def
	}
	return Config{
		Host:     env("PGHOST", "127.0.0.1"),
		Port:     env("PGPORT", "5432"),
		User:     env("PGUSER", "behavior"),
		Database: env("PGDATABASE", "behavior"),
		Password: password,
		SSLMode:  env("PGSSLMODE", "disable"),
	}
}

// DSN renders the key=value connection string. Empty parameters are
// omitted and values are quoted when needed.
func (c Config) DSN() string {
	var parts []string
	add := func(k, v string) {
		if v != "" {
			parts = append(parts, k+"="+quoteParam(v))
		}
	}
	add("host", c.Host)
	add("port", c.Port)
	add("user", c.User)
	add("password", c.Password)
	add("dbname", c.Database)
	add("sslmode", c.SSLMode)
	return strings.Join(parts, " ")
}

func quoteParam(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS events (
		event_id BIGSERIAL PRIMARY KEY,
		ts       TIMESTAMPTZ NOT NULL,
		level    TEXT NOT NULL,
		event    TEXT NOT NULL,
		msg      TEXT,
		fields   JSONB,
		agent_id TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_events_agent_id ON events(agent_id)`,
	`CREATE TABLE IF NOT EXISTS graphs (
		name       TEXT PRIMARY KEY,
		revision   INTEGER NOT NULL,
		document   TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
}

// Client is a connection pool with the schema in place.
type Client struct {
	db *sql.DB
}

// Open connects, verifies the connection and creates missing tables.
func Open(cfg Config) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	c := &Client{db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return c, nil
}

func (c *Client) migrate() error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	for _, stmt := range schema {
		if _, err := tx.Exec(stmt); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

var errNotOpen = errors.New("postgres client not open")

// Ping reports whether the database is reachable.
func (c *Client) Ping() error {
	if c == nil || c.db == nil {
		return errNotOpen
	}
	return c.db.Ping()
}

// Close releases the pool. It is safe on a client that never opened.
func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}
