package enrollment

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	records map[string]Record
	order   []string // enrollment order, keeps enumeration deterministic
}

// NewMemoryRepository builds an in-memory enrollment store for development
// and testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{records: make(map[string]Record)}
}

func (r *memoryRepository) Create(_ context.Context, record Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[record.ID]; exists {
		return ErrDuplicateIdentity
	}
	r.records[record.ID] = record
	r.order = append(r.order, record.ID)
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return record, nil
}

func (r *memoryRepository) Embeddings(_ context.Context) ([]Enrolled, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	enrolled := make([]Enrolled, 0, len(r.order))
	for _, id := range r.order {
		record := r.records[id]
		enrolled = append(enrolled, Enrolled{ID: record.ID, Embedding: record.Embedding})
	}
	return enrolled, nil
}

func (r *memoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return ErrNotFound
	}
	delete(r.records, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}
