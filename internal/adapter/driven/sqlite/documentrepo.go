package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ericfisherdev/missioncontrol/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.DocumentStore = (*DocumentRepo)(nil)

// DocumentRepo is the SQLite implementation of the DocumentStore port interface.
// Every collection shares one table keyed by (collection, id).
type DocumentRepo struct {
	db *DB
}

// NewDocumentRepo creates a new DocumentRepo backed by the given DB.
func NewDocumentRepo(db *DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// Get returns the document stored under id.
func (r *DocumentRepo) Get(ctx context.Context, collection driven.Collection, id string) ([]byte, error) {
	const query = `SELECT body FROM documents WHERE collection = ? AND id = ?`

	var body string
	err := r.db.Reader.QueryRowContext(ctx, query, string(collection), id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s %q: %w", collection, id, driven.ErrDocumentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %q: %w", collection, id, err)
	}
	return []byte(body), nil
}

// List returns every document in the collection ordered by id.
func (r *DocumentRepo) List(ctx context.Context, collection driven.Collection) ([][]byte, error) {
	const query = `SELECT body FROM documents WHERE collection = ? ORDER BY id`

	rows, err := r.db.Reader.QueryContext(ctx, query, string(collection))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	var docs [][]byte
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan %s document: %w", collection, err)
		}
		docs = append(docs, []byte(body))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", collection, err)
	}

	return docs, nil
}

// Put creates or replaces the document stored under id in a single statement.
func (r *DocumentRepo) Put(ctx context.Context, collection driven.Collection, id string, doc []byte) error {
	const query = `
		INSERT INTO documents (collection, id, body, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (collection, id) DO UPDATE SET
			body = excluded.body,
			updated_at = excluded.updated_at
	`

	if _, err := r.db.Writer.ExecContext(ctx, query, string(collection), id, string(doc)); err != nil {
		return fmt.Errorf("put %s %q: %w", collection, id, err)
	}
	return nil
}

// Delete removes the document stored under id.
func (r *DocumentRepo) Delete(ctx context.Context, collection driven.Collection, id string) error {
	const query = `DELETE FROM documents WHERE collection = ? AND id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, string(collection), id)
	if err != nil {
		return fmt.Errorf("delete %s %q: %w", collection, id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s %q rows affected: %w", collection, id, err)
	}
	if affected == 0 {
		return fmt.Errorf("delete %s %q: %w", collection, id, driven.ErrDocumentNotFound)
	}
	return nil
}

// Close closes the underlying database connections.
func (r *DocumentRepo) Close() error {
	return r.db.Close()
}
