package store

import (
	"context"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // Postgres driver
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
)

// PostgresStore is the legacy relational backend.
type PostgresStore struct {
	*sqlStore
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{sqlStore: newSQLStore(db)}, nil
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	return s.migrate(ctx, goose.DialectPostgres, "migrations/postgres")
}

func (s *PostgresStore) Backend() string { return "postgres" }
