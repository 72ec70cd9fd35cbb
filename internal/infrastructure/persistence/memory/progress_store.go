// Package memory provides an in-process progress store for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/empower-sl/learnhub/internal/domain/progress"
	"github.com/empower-sl/learnhub/internal/domain/shared"
)

// ProgressStore keeps encoded progress documents in a map, keyed the same way
// the Redis store keys them. Storing bytes instead of pointers keeps callers
// from sharing mutable records.
type ProgressStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// Compile-time check.
var _ progress.Store = (*ProgressStore)(nil)

// NewProgressStore creates an empty store.
func NewProgressStore() *ProgressStore {
	return &ProgressStore{docs: make(map[string][]byte)}
}

// Load implements progress.Store.
func (s *ProgressStore) Load(ctx context.Context, learnerID string) (*progress.UserProgress, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	data, ok := s.docs[progress.StorageKey(learnerID)]
	s.mu.RUnlock()
	if !ok {
		return nil, shared.ErrProgressNotFound
	}
	return progress.Decode(data)
}

// Save implements progress.Store.
func (s *ProgressStore) Save(ctx context.Context, learnerID string, p *progress.UserProgress) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := p.Encode()
	if err != nil {
		return shared.StorageError("Save", err)
	}
	s.mu.Lock()
	s.docs[progress.StorageKey(learnerID)] = data
	s.mu.Unlock()
	return nil
}

// Delete implements progress.Store.
func (s *ProgressStore) Delete(ctx context.Context, learnerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.docs, progress.StorageKey(learnerID))
	s.mu.Unlock()
	return nil
}

// Ping implements progress.Pinger.
func (s *ProgressStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Raw returns the stored document for a learner.
func (s *ProgressStore) Raw(learnerID string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.docs[progress.StorageKey(learnerID)]
	return data, ok
}

// Len returns the number of stored records.
func (s *ProgressStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
