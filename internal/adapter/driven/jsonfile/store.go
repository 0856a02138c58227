// Package jsonfile stores each governance document as its own JSON file under
// <dir>/<collection>/<id>.json. Writes go through a temp file and rename so a
// crash mid-write never leaves a half-written document.
package jsonfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/ericfisherdev/missioncontrol/internal/domain/port/driven"
)

const ext = ".json"

// Compile-time interface satisfaction check.
var _ driven.DocumentStore = (*Store)(nil)

// Store is the file-per-document implementation of the DocumentStore port.
type Store struct {
	dir string
}

// Open creates the per-collection directories under dir.
func Open(dir string) (*Store, error) {
	for _, c := range driven.Collections() {
		if err := os.MkdirAll(filepath.Join(dir, string(c)), 0o700); err != nil {
			return nil, fmt.Errorf("create %s directory: %w", c, err)
		}
	}
	return &Store{dir: dir}, nil
}

// Get returns the document stored under id.
func (s *Store) Get(ctx context.Context, collection driven.Collection, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(collection, id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("get %s %q: %w", collection, id, driven.ErrDocumentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %q: %w", collection, id, err)
	}
	return data, nil
}

// List returns every document in the collection ordered by file name.
// Leftover temp files from interrupted writes are ignored.
func (s *Store) List(ctx context.Context, collection driven.Collection) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := filepath.Join(s.dir, string(collection))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	docs := make([][]byte, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			// Deleted between ReadDir and ReadFile.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s/%s: %w", collection, name, err)
		}
		docs = append(docs, data)
	}
	return docs, nil
}

// Put atomically creates or replaces the document stored under id.
func (s *Store) Put(ctx context.Context, collection driven.Collection, id string, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := atomic.WriteFile(s.path(collection, id), bytes.NewReader(doc)); err != nil {
		return fmt.Errorf("put %s %q: %w", collection, id, err)
	}
	return nil
}

// Delete removes the document stored under id.
func (s *Store) Delete(ctx context.Context, collection driven.Collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := os.Remove(s.path(collection, id))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s %q: %w", collection, id, driven.ErrDocumentNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete %s %q: %w", collection, id, err)
	}
	return nil
}

// Close is a no-op; the store holds no open handles.
func (s *Store) Close() error {
	return nil
}

// path escapes id so it cannot address anything outside the collection directory.
func (s *Store) path(collection driven.Collection, id string) string {
	return filepath.Join(s.dir, string(collection), url.PathEscape(id)+ext)
}
