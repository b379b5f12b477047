// Package store provides keyed byte stores used to persist game progress.
// Every backend reports an absent key as (nil, false, nil).
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Store is a keyed byte store.
type Store interface {
	Save(ctx context.Context, key string, data []byte) error
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Clear(ctx context.Context, key string) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Options selects and configures a backend.
type Options struct {
	Backend    string
	Dir        string // file
	RedisAddr  string // redis
	SQLitePath string // sqlite
}

// Open constructs the backend named by opts.Backend.
func Open(ctx context.Context, opts Options, log logrus.FieldLogger) (Store, error) {
	switch strings.ToLower(opts.Backend) {
	case "", BackendFile:
		return NewFile(opts.Dir)
	case BackendMemory:
		return NewMemory(), nil
	case BackendRedis:
		r := NewRedis(opts.RedisAddr, log)
		if err := r.Ping(ctx); err != nil {
			_ = r.Close()
			return nil, err
		}
		return r, nil
	case BackendSQLite:
		return OpenSQLite(opts.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}
