package redis

import (
	"context"
	"errors"
	"time"

	"github.com/empower-sl/learnhub/internal/domain/progress"
	"github.com/empower-sl/learnhub/pkg/circuitbreaker"
	"github.com/empower-sl/learnhub/pkg/logger"
)

// DefaultCacheTTL is how long a cached record lives without being rewritten.
const DefaultCacheTTL = 10 * time.Minute

// CacheKey returns the cache key for a learner. It is kept apart from
// progress.StorageKey so Redis can serve as cache and primary store at once.
func CacheKey(learnerID string) string {
	return "cache:" + progress.StorageKey(learnerID)
}

// CachedStore fronts a primary store with a Redis cache. Reads go to the
// cache first; writes go to the primary and then refresh the cache. Cache
// failures are logged and never fail the call. After repeated failures a
// circuit breaker stops cache reads and fills until the cache recovers.
type CachedStore struct {
	primary progress.Store
	cache   KV
	ttl     time.Duration
	log     *logger.Logger
	breaker *circuitbreaker.CircuitBreaker
}

// CachedStoreOption configures a CachedStore.
type CachedStoreOption func(*CachedStore)

// WithBreaker replaces the default cache breaker.
func WithBreaker(cb *circuitbreaker.CircuitBreaker) CachedStoreOption {
	return func(s *CachedStore) {
		if cb != nil {
			s.breaker = cb
		}
	}
}

// Compile-time checks.
var (
	_ progress.Store  = (*CachedStore)(nil)
	_ progress.Pinger = (*CachedStore)(nil)
)

// NewCachedStore wraps primary. A non-positive ttl uses DefaultCacheTTL.
func NewCachedStore(primary progress.Store, cache KV, ttl time.Duration, log *logger.Logger, opts ...CachedStoreOption) *CachedStore {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if log == nil {
		log = logger.Nop()
	}
	s := &CachedStore{
		primary: primary,
		cache:   cache,
		ttl:     ttl,
		log:     log.With(logger.Component("progress_cache")),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.breaker == nil {
		s.breaker = circuitbreaker.CacheBreaker(s.logStateChange, circuitbreaker.WithIsFailure(isCacheFailure))
	}
	return s
}

// A miss is an answer, not a failure.
func isCacheFailure(err error) bool {
	return !errors.Is(err, ErrCacheMiss)
}

func (s *CachedStore) logStateChange(name string, from, to circuitbreaker.State) {
	s.log.Warn("cache circuit state changed",
		logger.String("breaker", name),
		logger.String("from", from.String()),
		logger.String("to", to.String()),
	)
}

// Load implements progress.Store.
func (s *CachedStore) Load(ctx context.Context, learnerID string) (*progress.UserProgress, error) {
	key := CacheKey(learnerID)

	var data []byte
	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		var getErr error
		data, getErr = s.cache.Get(ctx, key)
		return getErr
	})
	switch {
	case err == nil:
		p, decodeErr := progress.Decode(data)
		if decodeErr == nil {
			return p, nil
		}
		s.log.Warn("dropping unreadable cache entry", logger.LearnerID(learnerID), logger.Err(decodeErr))
		s.evict(ctx, learnerID)
	case errors.Is(err, ErrCacheMiss), circuitbreaker.IsRejected(err):
	default:
		s.log.Warn("cache read failed", logger.LearnerID(learnerID), logger.Err(err))
	}

	p, err := s.primary.Load(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	s.fill(ctx, learnerID, p)
	return p, nil
}

// Save implements progress.Store.
func (s *CachedStore) Save(ctx context.Context, learnerID string, p *progress.UserProgress) error {
	if err := s.primary.Save(ctx, learnerID, p); err != nil {
		s.evict(ctx, learnerID)
		return err
	}
	s.fill(ctx, learnerID, p)
	return nil
}

// Delete implements progress.Store.
func (s *CachedStore) Delete(ctx context.Context, learnerID string) error {
	s.evict(ctx, learnerID)
	return s.primary.Delete(ctx, learnerID)
}

// Ping reports the primary's health. The cache is optional.
func (s *CachedStore) Ping(ctx context.Context) error {
	if err := s.cache.Ping(ctx); err != nil {
		s.log.Warn("cache ping failed", logger.Err(err))
	}
	if pinger, ok := s.primary.(progress.Pinger); ok {
		return pinger.Ping(ctx)
	}
	return nil
}

func (s *CachedStore) fill(ctx context.Context, learnerID string, p *progress.UserProgress) {
	data, err := p.Encode()
	if err != nil {
		return
	}
	err = s.breaker.Execute(ctx, func(ctx context.Context) error {
		return s.cache.Set(ctx, CacheKey(learnerID), data, s.ttl)
	})
	if err == nil || circuitbreaker.IsRejected(err) {
		return
	}
	s.log.Warn("cache write failed", logger.LearnerID(learnerID), logger.Err(err))
	s.evict(ctx, learnerID)
}

// evict bypasses the breaker so a recovering cache never serves a record
// older than the primary.
func (s *CachedStore) evict(ctx context.Context, learnerID string) {
	if err := s.cache.Delete(ctx, CacheKey(learnerID)); err != nil {
		s.log.Warn("cache evict failed", logger.LearnerID(learnerID), logger.Err(err))
	}
}
