// Package store persists the shared analysis document behind a key-value
// primitive.
//
// Concurrency contract: a Manager is the only writer of its KV. Every
// operation is a read-modify-write executed under the Manager's mutex and
// inside one KV.Update, which either commits every key or none of them.
// Two Managers over the same backend are not coordinated.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/wikigap/internal/model"
)

// Doc is the persisted document, one raw JSON value per top-level key
type Doc map[string]json.RawMessage

// KV is the key-value primitive the document lives in
type KV interface {
	// Load returns a snapshot of every stored key
	Load(ctx context.Context) (Doc, error)

	// Update runs fn against a mutable copy of the document and commits
	// the result atomically. When fn fails nothing is written.
	Update(ctx context.Context, fn func(Doc) error) error

	Close() error
}

// errSkip aborts an Update without writing and without reporting failure
var errSkip = errors.New("store: nothing to write")

func (d Doc) clone() Doc {
	out := make(Doc, len(d))
	for k, v := range d {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// Open creates the KV selected by cfg
func Open(ctx context.Context, cfg model.StorageConfig) (KV, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "memory":
		return NewMemoryKV(), nil
	case "file", "json":
		return NewFileKV(expandHome(cfg.Path))
	case "sqlite":
		return OpenSQLite(ctx, expandHome(cfg.Path))
	case "postgres", "pg":
		return OpenPostgres(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: memory, file, sqlite, postgres)", cfg.Backend)
	}
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
