// Package store provides Postgres persistence for the platform's
// entities. Queries are explicit SQL over database/sql; there is no ORM
// layer, and per-row atomicity is the only concurrency guarantee offered.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// ErrNotFound is returned when a queried row does not exist. Callers that
// treat missing rows as benign (the webhook pipeline) branch on it with
// errors.Is.
var ErrNotFound = errors.New("store: not found")

// Store provides database operations for all platform entities.
type Store struct {
	db *sql.DB
}

// NewStore creates a store on an existing database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
