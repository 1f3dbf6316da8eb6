// Package blob persists whole string values under fixed keys.
package blob

import (
	"context"
	"errors"
	"fmt"

	"github.com/briangreenhill/mapty/internal/config"
)

var ErrNotFound = errors.New("blob not found")

// Store reads and overwrites single values. There are no partial updates.
type Store interface {
	// ReadBlob returns ErrNotFound when nothing was ever written under key.
	ReadBlob(ctx context.Context, key string) (string, error)
	WriteBlob(ctx context.Context, key, value string) error
	Close() error
}

// Open returns the backend selected by cfg.Storage.Driver.
func Open(ctx context.Context, cfg config.Config) (Store, error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		return OpenSQLite(ctx, cfg.Storage.Path)
	case "redis":
		return OpenRedis(ctx, cfg.Redis)
	case "memory":
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}
