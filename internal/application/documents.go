package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ericfisherdev/missioncontrol/internal/domain/model"
	"github.com/ericfisherdev/missioncontrol/internal/domain/port/driven"
)

// collection is a typed view over one DocumentStore collection. It owns the
// JSON encoding of T and maps driven.ErrDocumentNotFound to model.ErrNotFound.
type collection[T any] struct {
	store driven.DocumentStore
	name  driven.Collection
}

func newCollection[T any](store driven.DocumentStore, name driven.Collection) collection[T] {
	return collection[T]{store: store, name: name}
}

func (c collection[T]) get(ctx context.Context, id string) (T, error) {
	var v T
	data, err := c.store.Get(ctx, c.name, id)
	if err != nil {
		return v, c.wrap(id, err)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode %s %q: %w", c.name, id, err)
	}
	return v, nil
}

func (c collection[T]) list(ctx context.Context) ([]T, error) {
	docs, err := c.store.List(ctx, c.name)
	if err != nil {
		return nil, err
	}

	items := make([]T, 0, len(docs))
	for _, data := range docs {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decode %s document: %w", c.name, err)
		}
		items = append(items, v)
	}
	return items, nil
}

func (c collection[T]) put(ctx context.Context, id string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s %q: %w", c.name, id, err)
	}
	return c.store.Put(ctx, c.name, id, data)
}

func (c collection[T]) delete(ctx context.Context, id string) error {
	if err := c.store.Delete(ctx, c.name, id); err != nil {
		return c.wrap(id, err)
	}
	return nil
}

func (c collection[T]) wrap(id string, err error) error {
	if errors.Is(err, driven.ErrDocumentNotFound) {
		return fmt.Errorf("%s %q: %w", c.name, id, model.ErrNotFound)
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, model.ErrNotFound)
}
