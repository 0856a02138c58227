// Package bolt stores governance documents in a bbolt file, one bucket per
// collection.
package bolt

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/ericfisherdev/missioncontrol/internal/domain/port/driven"
)

// FileName is the database file created inside the data directory.
const FileName = "missioncontrol.db"

// Compile-time interface satisfaction check.
var _ driven.DocumentStore = (*Store)(nil)

// Store is the bbolt implementation of the DocumentStore port. Each operation
// runs in its own bbolt transaction, so a Put is either fully applied or not at all.
type Store struct {
	db *bbolt.DB
}

// Open opens (creating if needed) the bbolt file in dir and initializes a
// bucket for every collection.
func Open(dir string) (*Store, error) {
	path := filepath.Join(dir, FileName)

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt database %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, c := range driven.Collections() {
			if _, err := tx.CreateBucketIfNotExists([]byte(c)); err != nil {
				return fmt.Errorf("create bucket %s: %w", c, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Get returns the document stored under id.
func (s *Store) Get(ctx context.Context, collection driven.Collection, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var doc []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket, err := bucketFor(tx, collection)
		if err != nil {
			return err
		}
		v := bucket.Get([]byte(id))
		if v == nil {
			return driven.ErrDocumentNotFound
		}
		// Values are only valid for the life of the transaction.
		doc = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get %s %q: %w", collection, id, err)
	}
	return doc, nil
}

// List returns every document in the collection in key order.
func (s *Store) List(ctx context.Context, collection driven.Collection) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var docs [][]byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket, err := bucketFor(tx, collection)
		if err != nil {
			return err
		}
		return bucket.ForEach(func(_, v []byte) error {
			docs = append(docs, append([]byte(nil), v...))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	return docs, nil
}

// Put creates or replaces the document stored under id.
func (s *Store) Put(ctx context.Context, collection driven.Collection, id string, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := bucketFor(tx, collection)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(id), doc)
	})
	if err != nil {
		return fmt.Errorf("put %s %q: %w", collection, id, err)
	}
	return nil
}

// Delete removes the document stored under id.
func (s *Store) Delete(ctx context.Context, collection driven.Collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := bucketFor(tx, collection)
		if err != nil {
			return err
		}
		if bucket.Get([]byte(id)) == nil {
			return driven.ErrDocumentNotFound
		}
		return bucket.Delete([]byte(id))
	})
	if err != nil {
		return fmt.Errorf("delete %s %q: %w", collection, id, err)
	}
	return nil
}

// Close closes the bbolt file.
func (s *Store) Close() error {
	return s.db.Close()
}

func bucketFor(tx *bbolt.Tx, collection driven.Collection) (*bbolt.Bucket, error) {
	bucket := tx.Bucket([]byte(collection))
	if bucket == nil {
		return nil, fmt.Errorf("unknown collection %q", collection)
	}
	return bucket, nil
}
