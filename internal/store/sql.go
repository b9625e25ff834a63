package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// dialect captures the SQL differences between SQLite and Postgres
type dialect struct {
	name   string
	schema string
	upsert string
	delete string
	// retryBusy retries transactions that hit SQLITE_BUSY
	retryBusy bool
}

var sqliteDialect = dialect{
	name:      "sqlite",
	schema:    `CREATE TABLE IF NOT EXISTS wikigap_state (k TEXT PRIMARY KEY, v TEXT NOT NULL, updated_at INTEGER NOT NULL)`,
	upsert:    `INSERT INTO wikigap_state (k, v, updated_at) VALUES (?, ?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v, updated_at = excluded.updated_at`,
	delete:    `DELETE FROM wikigap_state WHERE k = ?`,
	retryBusy: true,
}

var postgresDialect = dialect{
	name:   "postgres",
	schema: `CREATE TABLE IF NOT EXISTS wikigap_state (k TEXT PRIMARY KEY, v JSONB NOT NULL, updated_at BIGINT NOT NULL)`,
	upsert: `INSERT INTO wikigap_state (k, v, updated_at) VALUES ($1, $2, $3) ON CONFLICT (k) DO UPDATE SET v = EXCLUDED.v, updated_at = EXCLUDED.updated_at`,
	delete: `DELETE FROM wikigap_state WHERE k = $1`,
}

// SQLKV stores one row per top-level key
type SQLKV struct {
	db      *sql.DB
	dialect dialect
}

// OpenSQLite opens (or creates) an SQLite state database at path
func OpenSQLite(ctx context.Context, path string) (*SQLKV, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite store: path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create state dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	return newSQLKV(ctx, db, sqliteDialect)
}

// OpenPostgres connects to Postgres through the pgx driver
func OpenPostgres(ctx context.Context, dsn string) (*SQLKV, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("postgres store: dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return newSQLKV(ctx, db, postgresDialect)
}

func newSQLKV(ctx context.Context, db *sql.DB, d dialect) (*SQLKV, error) {
	if _, err := db.ExecContext(ctx, d.schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create %s schema: %w", d.name, err)
	}
	return &SQLKV{db: db, dialect: d}, nil
}

func (s *SQLKV) Load(ctx context.Context) (Doc, error) {
	var doc Doc
	err := s.runTx(ctx, func(tx *sql.Tx) error {
		var err error
		doc, err = s.readAll(ctx, tx)
		return err
	})
	return doc, err
}

// Update reads every row, applies fn and writes back changed or removed keys
// in the same transaction
func (s *SQLKV) Update(ctx context.Context, fn func(Doc) error) error {
	return s.runTx(ctx, func(tx *sql.Tx) error {
		before, err := s.readAll(ctx, tx)
		if err != nil {
			return err
		}
		after := before.clone()
		if err := fn(after); err != nil {
			return err
		}

		now := time.Now().Unix()
		for k, v := range after {
			if prev, ok := before[k]; ok && string(prev) == string(v) {
				continue
			}
			if _, err := tx.ExecContext(ctx, s.dialect.upsert, k, string(v), now); err != nil {
				return fmt.Errorf("write key %s: %w", k, err)
			}
		}
		for k := range before {
			if _, ok := after[k]; ok {
				continue
			}
			if _, err := tx.ExecContext(ctx, s.dialect.delete, k); err != nil {
				return fmt.Errorf("delete key %s: %w", k, err)
			}
		}
		return nil
	})
}

func (s *SQLKV) Close() error {
	return s.db.Close()
}

func (s *SQLKV) readAll(ctx context.Context, tx *sql.Tx) (Doc, error) {
	rows, err := tx.QueryContext(ctx, `SELECT k, v FROM wikigap_state`)
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	defer rows.Close()

	doc := Doc{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan state: %w", err)
		}
		doc[k] = json.RawMessage(v)
	}
	return doc, rows.Err()
}

const maxBusyRetries = 3

// runTx executes fn in a transaction, retrying SQLite BUSY errors with
// 100/200/300 ms backoff
func (s *SQLKV) runTx(ctx context.Context, fn func(*sql.Tx) error) error {
	for i := range maxBusyRetries {
		err := s.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !s.dialect.retryBusy || !isBusy(err) || i == maxBusyRetries-1 {
			return err
		}
		t := time.NewTimer(time.Duration(100*(i+1)) * time.Millisecond)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		case <-t.C:
		}
	}
	return fmt.Errorf("transaction: max retries exceeded")
}

func (s *SQLKV) runOnce(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}
