package postgres

import (
	"context"
	"errors"

	"github.com/empower-sl/learnhub/internal/domain/progress"
	"github.com/empower-sl/learnhub/internal/domain/shared"
	"github.com/empower-sl/learnhub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS STORE
// ══════════════════════════════════════════════════════════════════════════════

const (
	loadProgressSQL = `SELECT document FROM user_progress WHERE learner_id = $1`

	saveProgressSQL = `
		INSERT INTO user_progress (learner_id, document, xp, level, updated_at)
		VALUES ($1, $2::jsonb, $3, $4, NOW())
		ON CONFLICT (learner_id) DO UPDATE SET
			document   = EXCLUDED.document,
			xp         = EXCLUDED.xp,
			level      = EXCLUDED.level,
			updated_at = NOW()
	`

	deleteProgressSQL = `DELETE FROM user_progress WHERE learner_id = $1`
)

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Querier
	Ping(ctx context.Context) error
}

// ProgressStore implements progress.Store on a user_progress table.
// Transient failures are retried; everything else is reported as a storage
// error.
type ProgressStore struct {
	db      DB
	retrier *retry.Retrier
}

// Compile-time checks.
var (
	_ progress.Store  = (*ProgressStore)(nil)
	_ progress.Pinger = (*ProgressStore)(nil)
)

// NewProgressStore creates a store over db. A nil retrier uses
// retry.StoreRetrier with transient-error detection.
func NewProgressStore(db DB, retrier *retry.Retrier) *ProgressStore {
	if retrier == nil {
		retrier = retry.StoreRetrier(retry.WithRetryIf(IsTransient))
	}
	return &ProgressStore{db: db, retrier: retrier}
}

// Load implements progress.Store.
func (s *ProgressStore) Load(ctx context.Context, learnerID string) (*progress.UserProgress, error) {
	doc, err := retry.DoWithData(ctx, s.retrier, func(ctx context.Context) ([]byte, error) {
		var doc []byte
		err := s.db.QueryRow(ctx, loadProgressSQL, learnerID).Scan(&doc)
		return doc, err
	})
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrProgressNotFound
		}
		return nil, storeError("Load", err)
	}
	return progress.Decode(doc)
}

// Save implements progress.Store.
func (s *ProgressStore) Save(ctx context.Context, learnerID string, p *progress.UserProgress) error {
	doc, err := p.Encode()
	if err != nil {
		return shared.StorageError("Save", err)
	}

	err = s.retrier.Do(ctx, func(ctx context.Context) error {
		_, err := s.db.Exec(ctx, saveProgressSQL, learnerID, string(doc), p.XP, p.Level)
		return err
	})
	if err != nil {
		return storeError("Save", err)
	}
	return nil
}

// Delete implements progress.Store.
func (s *ProgressStore) Delete(ctx context.Context, learnerID string) error {
	err := s.retrier.Do(ctx, func(ctx context.Context) error {
		_, err := s.db.Exec(ctx, deleteProgressSQL, learnerID)
		return err
	})
	if err != nil {
		return storeError("Delete", err)
	}
	return nil
}

// Ping implements progress.Pinger.
func (s *ProgressStore) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return storeError("Ping", err)
	}
	return nil
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
