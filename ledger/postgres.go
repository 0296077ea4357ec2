// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package ledger

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/paypal-examples/docs-examples/config"
)

// PostgresStore implements Store for PostgreSQL
type PostgresStore struct {
	db    *sql.DB
	query string
}

func NewPostgresStore(cfg *config.Config) (*PostgresStore, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Ledger.Postgres.Host,
		cfg.Ledger.Postgres.Port,
		cfg.Ledger.Postgres.User,
		cfg.Ledger.Postgres.Password,
		cfg.Ledger.Postgres.DBName,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("postgres connection failed: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping failed: %v", err)
	}

	return &PostgresStore{
		db:    db,
		query: cfg.Ledger.Postgres.Query,
	}, nil
}

func (s *PostgresStore) Record(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx, s.query,
		e.Operation,
		e.ResourceID,
		e.StatusCode,
		e.DebugID,
		e.RequestID,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("ledger insert failed: %v", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
