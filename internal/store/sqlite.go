package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

// SQLiteStore keeps layouts in a single embedded database file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies the
// schema. ":memory:" gives a throwaway database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir db dir: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?mode=rwc&_pragma=busy_timeout(5000)", path)
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Layout, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, body, version, updated_at FROM layouts WHERE id = ?`, id)

	var l Layout
	var updated int64
	if err := row.Scan(&l.ID, &l.Name, &l.Body, &l.Version, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get layout: %w", err)
	}
	l.UpdatedAt = time.UnixMilli(updated).UTC()
	return &l, nil
}

func (s *SQLiteStore) Put(ctx context.Context, l *Layout) (*Layout, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)

	var res sql.Result
	var err error
	if l.Version == 0 {
		res, err = s.db.ExecContext(ctx, `
			INSERT INTO layouts (id, name, body, version, updated_at)
			VALUES (?, ?, ?, 1, ?)
			ON CONFLICT (id) DO NOTHING`,
			l.ID, l.Name, l.Body, now.UnixMilli())
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE layouts SET name = ?, body = ?, version = version + 1, updated_at = ?
			WHERE id = ? AND version = ?`,
			l.Name, l.Body, now.UnixMilli(), l.ID, l.Version)
	}
	if err != nil {
		return nil, fmt.Errorf("put layout: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("put layout: %w", err)
	}
	if n == 0 {
		return nil, ErrConflict
	}

	next := *l
	next.Version = l.Version + 1
	next.UpdatedAt = now
	return &next, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Layout, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, version, updated_at FROM layouts ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list layouts: %w", err)
	}
	defer rows.Close()

	layouts := []Layout{}
	for rows.Next() {
		var l Layout
		var updated int64
		if err := rows.Scan(&l.ID, &l.Name, &l.Version, &updated); err != nil {
			return nil, fmt.Errorf("scan layout: %w", err)
		}
		l.UpdatedAt = time.UnixMilli(updated).UTC()
		layouts = append(layouts, l)
	}
	return layouts, rows.Err()
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM layouts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete layout: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
