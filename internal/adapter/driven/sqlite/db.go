package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// connPragmas apply to every connection. journal_mode is set separately since
// WAL is meaningless for in-memory databases.
var connPragmas = []string{
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
	"foreign_keys(ON)",
	"cache_size(-64000)",
}

const (
	writerConns = 1
	readerConns = 4
)

// DB holds the document database behind two pools: a single-connection writer,
// which keeps SQLite from returning "database is locked", and a small reader pool.
type DB struct {
	Writer *sql.DB
	Reader *sql.DB
}

// NewDB opens the database file at path in WAL mode.
func NewDB(ctx context.Context, path string) (*DB, error) {
	return openDB(ctx, fileDSN(path, false))
}

// fileDSN builds a modernc DSN for name. A memory DSN names a shared-cache
// in-memory database so the writer and reader pools see the same data.
func fileDSN(name string, memory bool) string {
	params := make([]string, 0, len(connPragmas)+2)
	if memory {
		params = append(params, "mode=memory", "cache=shared")
	} else {
		params = append(params, "_pragma=journal_mode(WAL)")
	}
	for _, p := range connPragmas {
		params = append(params, "_pragma="+p)
	}
	return "file:" + name + "?" + strings.Join(params, "&")
}

func openDB(ctx context.Context, dsn string) (*DB, error) {
	writer, err := openPool(ctx, dsn, writerConns)
	if err != nil {
		return nil, fmt.Errorf("writer: %w", err)
	}

	reader, err := openPool(ctx, dsn, readerConns)
	if err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("reader: %w", err)
	}

	return &DB{Writer: writer, Reader: reader}, nil
}

func openPool(ctx context.Context, dsn string, maxConns int) (*sql.DB, error) {
	pool, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	pool.SetMaxOpenConns(maxConns)

	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// Close closes both pools and returns the first error.
func (db *DB) Close() error {
	var firstErr error
	if err := db.Reader.Close(); err != nil {
		firstErr = fmt.Errorf("close reader: %w", err)
	}
	if err := db.Writer.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close writer: %w", err)
	}
	return firstErr
}
