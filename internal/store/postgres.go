package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema_postgres.sql
var postgresSchema string

// PostgresStore keeps layouts in a shared Postgres database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Layout, error) {
	var l Layout
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, body, version, updated_at FROM layouts WHERE id = $1`, id,
	).Scan(&l.ID, &l.Name, &l.Body, &l.Version, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get layout: %w", err)
	}
	return &l, nil
}

func (s *PostgresStore) Put(ctx context.Context, l *Layout) (*Layout, error) {
	next := *l
	var err error
	if l.Version == 0 {
		err = s.pool.QueryRow(ctx, `
			INSERT INTO layouts (id, name, body, version, updated_at)
			VALUES ($1, $2, $3, 1, now())
			ON CONFLICT (id) DO NOTHING
			RETURNING version, updated_at`,
			l.ID, l.Name, l.Body,
		).Scan(&next.Version, &next.UpdatedAt)
	} else {
		err = s.pool.QueryRow(ctx, `
			UPDATE layouts SET name = $2, body = $3, version = version + 1, updated_at = now()
			WHERE id = $1 AND version = $4
			RETURNING version, updated_at`,
			l.ID, l.Name, l.Body, l.Version,
		).Scan(&next.Version, &next.UpdatedAt)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("put layout: %w", err)
	}
	return &next, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Layout, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, version, updated_at FROM layouts ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list layouts: %w", err)
	}
	layouts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Layout, error) {
		var l Layout
		err := row.Scan(&l.ID, &l.Name, &l.Version, &l.UpdatedAt)
		return l, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan layouts: %w", err)
	}
	return layouts, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM layouts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete layout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
