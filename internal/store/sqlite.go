package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/pressly/goose/v3"
)

// SQLiteDriver is the database/sql driver name registered by go-sqlite3.
const SQLiteDriver = "sqlite3"

// SQLiteStore is the current backend: a single-file SQLite database.
type SQLiteStore struct {
	*sqlStore
}

// NewSQLiteStore opens dataSourceName with the given database/sql driver.
// Production uses SQLiteDriver; any SQLite driver that accepts ? placeholders
// works.
func NewSQLiteStore(driverName, dataSourceName string) (*SQLiteStore, error) {
	db, err := sqlx.Open(driverName, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serialises writers; a single connection also keeps :memory:
	// databases alive across calls.
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &SQLiteStore{sqlStore: newSQLStore(db)}, nil
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	return s.migrate(ctx, goose.DialectSQLite3, "migrations/sqlite")
}

func (s *SQLiteStore) Backend() string { return "sqlite" }
