package postgres

import (
	"context"
	"log"

	"tumorexpr/adapters/db/postgres/migrations"
	"tumorexpr/internal/errors"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect opens the result store, checks the connection and applies pending
// migrations
func Connect(ctx context.Context, url string, maxOpenConns int) (*sqlx.DB, error) {
	if url == "" {
		return nil, errors.ConfigInvalid("DATABASE_URL is required")
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, errors.Wrap(errors.DatabaseError(err.Error()), "failed to connect to database")
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(errors.DatabaseError(err.Error()), "failed to ping database")
	}

	if err := migrations.NewMigrator(db.DB).Up(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "database migration failed")
	}

	log.Printf("[Postgres] Connected, %d max open connections", db.Stats().MaxOpenConnections)
	return db, nil
}
