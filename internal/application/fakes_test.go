package application_test

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ericfisherdev/missioncontrol/internal/domain/port/driven"
)

// --- In-memory DocumentStore ---

type memStore struct {
	mu   sync.Mutex
	docs map[driven.Collection]map[string][]byte
	puts int
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[driven.Collection]map[string][]byte)}
}

func (m *memStore) Get(_ context.Context, c driven.Collection, id string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.docs[c][id]
	if !ok {
		return nil, driven.ErrDocumentNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *memStore) List(_ context.Context, c driven.Collection) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.docs[c]))
	for id := range m.docs[c] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([][]byte, 0, len(ids))
	for _, id := range ids {
		out = append(out, append([]byte(nil), m.docs[c][id]...))
	}
	return out, nil
}

func (m *memStore) Put(_ context.Context, c driven.Collection, id string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.docs[c] == nil {
		m.docs[c] = make(map[string][]byte)
	}
	m.docs[c][id] = append([]byte(nil), data...)
	m.puts++
	return nil
}

func (m *memStore) Delete(_ context.Context, c driven.Collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[c][id]; !ok {
		return driven.ErrDocumentNotFound
	}
	delete(m.docs[c], id)
	return nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) putCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

func (m *memStore) raw(c driven.Collection, id string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[c][id]
}

// --- Controllable clock ---

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var epoch = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }
