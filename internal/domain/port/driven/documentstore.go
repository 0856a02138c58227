package driven

import (
	"context"
	"errors"
)

// ErrDocumentNotFound is returned by DocumentStore operations when no document
// exists for the given collection and id.
var ErrDocumentNotFound = errors.New("document not found")

// Collection names a logical group of documents of one entity kind.
type Collection string

const (
	CollectionResources   Collection = "resources"
	CollectionCredentials Collection = "credentials"
	CollectionBookings    Collection = "bookings"
	CollectionCosts       Collection = "costs"
	CollectionQuotas      Collection = "quotas"
)

// Collections lists every collection the governance core persists.
func Collections() []Collection {
	return []Collection{
		CollectionResources,
		CollectionCredentials,
		CollectionBookings,
		CollectionCosts,
		CollectionQuotas,
	}
}

// DocumentStore defines the driven port for keyed JSON document persistence.
// Documents are opaque byte slices; the application layer owns their schema.
type DocumentStore interface {
	// Get returns the document stored under id. Returns ErrDocumentNotFound
	// if the collection holds no such document.
	Get(ctx context.Context, collection Collection, id string) ([]byte, error)

	// List returns every document in the collection in an unspecified order.
	List(ctx context.Context, collection Collection) ([][]byte, error)

	// Put creates or replaces the document stored under id. The write must be
	// atomic: a failure leaves either the old document or the new one.
	Put(ctx context.Context, collection Collection, id string, doc []byte) error

	// Delete removes the document stored under id. Returns ErrDocumentNotFound
	// if the collection holds no such document.
	Delete(ctx context.Context, collection Collection, id string) error

	// Close releases the store's underlying handles.
	Close() error
}
