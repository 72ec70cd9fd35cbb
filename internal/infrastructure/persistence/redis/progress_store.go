package redis

import (
	"context"
	"errors"

	"github.com/empower-sl/learnhub/internal/domain/progress"
	"github.com/empower-sl/learnhub/internal/domain/shared"
	"github.com/empower-sl/learnhub/pkg/retry"
)

// ProgressStore keeps each learner's record as a JSON string under
// progress.StorageKey, with no expiry.
type ProgressStore struct {
	kv      KV
	retrier *retry.Retrier
}

// Compile-time checks.
var (
	_ progress.Store  = (*ProgressStore)(nil)
	_ progress.Pinger = (*ProgressStore)(nil)
)

// NewProgressStore creates a store over kv. A nil retrier uses
// retry.StoreRetrier.
func NewProgressStore(kv KV, retrier *retry.Retrier) *ProgressStore {
	if retrier == nil {
		retrier = retry.StoreRetrier(retry.WithRetryIf(isTransient))
	}
	return &ProgressStore{kv: kv, retrier: retrier}
}

// Load implements progress.Store.
func (s *ProgressStore) Load(ctx context.Context, learnerID string) (*progress.UserProgress, error) {
	data, err := retry.DoWithData(ctx, s.retrier, func(ctx context.Context) ([]byte, error) {
		return s.kv.Get(ctx, progress.StorageKey(learnerID))
	})
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, shared.ErrProgressNotFound
		}
		return nil, storeError("Load", err)
	}
	return progress.Decode(data)
}

// Save implements progress.Store.
func (s *ProgressStore) Save(ctx context.Context, learnerID string, p *progress.UserProgress) error {
	data, err := p.Encode()
	if err != nil {
		return shared.StorageError("Save", err)
	}
	err = s.retrier.Do(ctx, func(ctx context.Context) error {
		return s.kv.Set(ctx, progress.StorageKey(learnerID), data, 0)
	})
	if err != nil {
		return storeError("Save", err)
	}
	return nil
}

// Delete implements progress.Store.
func (s *ProgressStore) Delete(ctx context.Context, learnerID string) error {
	err := s.retrier.Do(ctx, func(ctx context.Context) error {
		return s.kv.Delete(ctx, progress.StorageKey(learnerID))
	})
	if err != nil {
		return storeError("Delete", err)
	}
	return nil
}

// Ping implements progress.Pinger.
func (s *ProgressStore) Ping(ctx context.Context) error {
	if err := s.kv.Ping(ctx); err != nil {
		return storeError("Ping", err)
	}
	return nil
}

// isTransient treats everything except misses, validation and cancellation
// as worth retrying; go-redis already retries at the connection level.
func isTransient(err error) bool {
	switch {
	case err == nil,
		errors.Is(err, ErrCacheMiss),
		errors.Is(err, ErrCacheKeyEmpty),
		errors.Is(err, ErrCacheInvalidTTL),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

func storeError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return shared.WrapError("store", op, shared.ErrTimeout, "progress store request timeout", err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return shared.StorageError(op, err)
}
