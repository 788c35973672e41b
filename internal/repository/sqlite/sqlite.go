// Package sqlite implements the repository interfaces on an embedded SQLite
// file via the pure-Go modernc.org/sqlite driver.
//
// One database file per process: the device binary owns its local copy, the
// sync server owns the shared one. Both use the same schema; the device
// simply leaves the columns only the server fills (image_url, rating on
// locations) empty. The file layout is a stable contract: tooling inspects
// it directly, so schema evolution must stay additive.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/raducm/tourism-app/internal/model"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// timeLayout is how timestamps are written to TEXT columns. It matches
// SQLite's own datetime('now'), so rows created by column defaults and rows
// written from Go read back identically.
const timeLayout = "2006-01-02 15:04:05"

// DB wraps the sql.DB pool and hands out the entity repositories.
//
// There is deliberately no package-level handle: the composition root calls
// New once and injects the result, which is what lets every test run on its
// own ":memory:" store.
type DB struct {
	conn *sql.DB
}

// New opens (creating if needed) the database at dbPath and ensures the
// schema exists. Use ":memory:" for tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Surface a bad path or permissions now instead of on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets reads proceed while a write is in flight.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are off by default in SQLite.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool, flushing the WAL.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Accounts returns the account repository bound to this database.
func (db *DB) Accounts() *AccountRepo { return &AccountRepo{conn: db.conn} }

// Locations returns the location repository bound to this database.
func (db *DB) Locations() *LocationRepo { return &LocationRepo{conn: db.conn} }

// Saved returns the saved-location repository bound to this database.
func (db *DB) Saved() *SavedRepo { return &SavedRepo{conn: db.conn} }

// Visits returns the visit/review repository bound to this database.
func (db *DB) Visits() *VisitRepo { return &VisitRepo{conn: db.conn} }

// migrate creates the four tables and their indexes. Everything is
// CREATE ... IF NOT EXISTS: there is no versioned migration mechanism, so
// columns are never altered, only added.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			accid         TEXT PRIMARY KEY,
			username      TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			email         TEXT NOT NULL UNIQUE,
			created_at    TEXT NOT NULL DEFAULT (datetime('now'))
		);
		CREATE INDEX IF NOT EXISTS idx_accounts_email ON accounts(email);
	`)
	if err != nil {
		return fmt.Errorf("creating accounts table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS locations (
			locid       TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT,
			latitude    REAL NOT NULL,
			longitude   REAL NOT NULL,
			image_url   TEXT,
			rating      REAL NOT NULL DEFAULT 0,
			created_at  TEXT NOT NULL DEFAULT (datetime('now'))
		);
	`)
	if err != nil {
		return fmt.Errorf("creating locations table: %w", err)
	}

	// The unique (account_id, location_id) index is what turns the visit
	// write into a race-free upsert: two concurrent saves collapse into
	// one row at the schema level, not via a prior SELECT.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS visits_and_reviews (
			revid       TEXT PRIMARY KEY,
			account_id  TEXT NOT NULL,
			location_id TEXT NOT NULL,
			rating      INTEGER NOT NULL CHECK (rating >= 1 AND rating <= 5),
			review_text TEXT,
			visited_at  TEXT NOT NULL DEFAULT (datetime('now')),
			FOREIGN KEY (account_id) REFERENCES accounts(accid),
			FOREIGN KEY (location_id) REFERENCES locations(locid)
		);
		CREATE UNIQUE INDEX IF NOT EXISTS uq_visits_account_location
			ON visits_and_reviews(account_id, location_id);
		CREATE INDEX IF NOT EXISTS idx_visits_account ON visits_and_reviews(account_id);
		CREATE INDEX IF NOT EXISTS idx_visits_location ON visits_and_reviews(location_id);
	`)
	if err != nil {
		return fmt.Errorf("creating visits_and_reviews table: %w", err)
	}

	// saved_locations carries a denormalized snapshot and no FK to
	// locations: bookmarking must not force a location row into existence.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS saved_locations (
			saved_id             TEXT PRIMARY KEY,
			account_id           TEXT NOT NULL,
			location_id          TEXT NOT NULL,
			location_name        TEXT NOT NULL,
			location_image_url   TEXT,
			location_rating      REAL,
			location_description TEXT,
			saved_at             TEXT NOT NULL DEFAULT (datetime('now')),
			FOREIGN KEY (account_id) REFERENCES accounts(accid)
		);
		CREATE UNIQUE INDEX IF NOT EXISTS uq_saved_account_location
			ON saved_locations(account_id, location_id);
		CREATE INDEX IF NOT EXISTS idx_saved_account ON saved_locations(account_id);
	`)
	if err != nil {
		return fmt.Errorf("creating saved_locations table: %w", err)
	}

	return nil
}

// Stats returns whole-table row counts for the admin view.
func (db *DB) Stats(ctx context.Context) (model.StoreStats, error) {
	var s model.StoreStats

	counts := []struct {
		table string
		dest  *int
	}{
		{"accounts", &s.Accounts},
		{"locations", &s.Locations},
		{"visits_and_reviews", &s.Reviews},
	}
	for _, c := range counts {
		err := db.conn.QueryRowContext(ctx,
			fmt.Sprintf("SELECT COUNT(*) FROM %s", c.table),
		).Scan(c.dest)
		if err != nil {
			return model.StoreStats{}, fmt.Errorf("sqlite: counting %s: %w", c.table, err)
		}
	}
	return s, nil
}

// isUniqueViolation reports whether err is a UNIQUE-constraint failure on the
// given table.column. The modernc driver exposes constraint failures only
// through the message text, e.g.
// "constraint failed: UNIQUE constraint failed: accounts.email (2067)".
func isUniqueViolation(err error, column string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, column)
}

// parseTime decodes a TEXT timestamp written either by Go (timeLayout) or by
// SQLite's datetime('now') default. Zero time on empty input.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, s)
	if err == nil {
		return t.UTC(), nil
	}
	// Rows pulled from the sync server may carry RFC 3339 strings.
	t, err = time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parsing timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// formatTime encodes a timestamp for storage in a TEXT column.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
