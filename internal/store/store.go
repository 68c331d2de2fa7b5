// Package store persists layouts. Every backend keeps the body in the layout
// text format and nothing else.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/siteview/siteview/backend-go/internal/config"
)

var (
	ErrNotFound = errors.New("layout not found")
	ErrConflict = errors.New("layout version conflict")
)

// Layout is one stored layout. Version starts at 1 and grows by one on every
// successful Put.
type Layout struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Body      string    `json:"body,omitempty"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store is implemented by FileStore, SQLiteStore and PostgresStore.
//
// Put is optimistic: l.Version must equal the stored version, or 0 for a
// layout that does not exist yet. A mismatch returns ErrConflict. The returned
// layout carries the new version.
type Store interface {
	Get(ctx context.Context, id string) (*Layout, error)
	Put(ctx context.Context, l *Layout) (*Layout, error)
	// List returns every layout without its body, most recently updated first.
	List(ctx context.Context) ([]Layout, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Open picks the backend named by cfg.StoreDriver.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch strings.ToLower(cfg.StoreDriver) {
	case "", "file":
		return NewFileStore(cfg.LayoutDir)
	case "sqlite":
		return OpenSQLite(ctx, cfg.SQLitePath)
	case "postgres":
		return OpenPostgres(ctx, cfg.DatabaseURL)
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
