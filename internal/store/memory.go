package store

import (
	"context"
	"sync"
)

// MemoryKV keeps the document in process memory
type MemoryKV struct {
	mu  sync.Mutex
	doc Doc
}

// NewMemoryKV creates an empty in-memory store
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{doc: Doc{}}
}

func (m *MemoryKV) Load(ctx context.Context) (Doc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc.clone(), nil
}

func (m *MemoryKV) Update(ctx context.Context, fn func(Doc) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.doc.clone()
	if err := fn(next); err != nil {
		return err
	}
	m.doc = next
	return nil
}

func (m *MemoryKV) Close() error { return nil }
