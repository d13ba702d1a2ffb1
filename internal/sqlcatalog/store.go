// Package sqlcatalog is a SQLite-backed element catalog implementing
// quarry.Catalog. The host indexer writes callables, classes, and
// attributes through the insert API; the engine reads them back through the
// oracle interface.
package sqlcatalog

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Catalog is the SQLite data access layer for the element tables.
type Catalog struct {
	db *sql.DB
}

// Open opens a SQLite database at path with WAL mode enabled.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Close closes the underlying database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (c *Catalog) DB() *sql.DB {
	return c.db
}

// Migrate creates all tables and indexes. Idempotent.
func (c *Catalog) Migrate() error {
	if _, err := c.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS callables (
  id              INTEGER PRIMARY KEY,
  name            TEXT NOT NULL UNIQUE,
  kind            TEXT NOT NULL,
  return_annotation TEXT,
  signature_hash  TEXT
);

CREATE TABLE IF NOT EXISTS parameters (
  id              INTEGER PRIMARY KEY,
  callable_id     INTEGER NOT NULL REFERENCES callables(id),
  ordinal         INTEGER NOT NULL,
  name            TEXT NOT NULL,
  annotation      TEXT
);

CREATE TABLE IF NOT EXISTS decorators (
  id              INTEGER PRIMARY KEY,
  callable_id     INTEGER NOT NULL REFERENCES callables(id),
  ordinal         INTEGER NOT NULL,
  name            TEXT NOT NULL,
  arguments       TEXT
);

CREATE TABLE IF NOT EXISTS classes (
  id              INTEGER PRIMARY KEY,
  name            TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS class_parents (
  id              INTEGER PRIMARY KEY,
  class_id        INTEGER NOT NULL REFERENCES classes(id),
  ordinal         INTEGER NOT NULL,
  parent          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS class_attributes (
  id              INTEGER PRIMARY KEY,
  class_id        INTEGER NOT NULL REFERENCES classes(id),
  name            TEXT NOT NULL,
  generated       BOOLEAN DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_callables_name ON callables(name);
CREATE INDEX IF NOT EXISTS idx_parameters_callable ON parameters(callable_id);
CREATE INDEX IF NOT EXISTS idx_decorators_callable ON decorators(callable_id);
CREATE INDEX IF NOT EXISTS idx_class_parents_class ON class_parents(class_id);
CREATE INDEX IF NOT EXISTS idx_class_attributes_class ON class_attributes(class_id);
CREATE INDEX IF NOT EXISTS idx_class_attributes_name ON class_attributes(name);
`
