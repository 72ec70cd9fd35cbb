package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/empower-sl/learnhub/internal/domain/progress"
	"github.com/empower-sl/learnhub/internal/domain/shared"
	"github.com/empower-sl/learnhub/internal/infrastructure/persistence/memory"
	"github.com/empower-sl/learnhub/pkg/circuitbreaker"
	"github.com/empower-sl/learnhub/pkg/retry"
)

// fakeKV is an in-memory KV whose operations can be made to fail.
type fakeKV struct {
	mu       sync.Mutex
	data     map[string][]byte
	ttls     map[string]time.Duration
	failErr  error
	failures int
	gets     int
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (f *fakeKV) fail() error {
	if f.failures > 0 {
		f.failures--
		return f.failErr
	}
	return nil
}

func (f *fakeKV) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if err := f.fail(); err != nil {
		return nil, err
	}
	v, ok := f.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return v, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return err
	}
	f.data[key] = value
	f.ttls[key] = ttl
	return nil
}

func (f *fakeKV) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeKV) Ping(context.Context) error { return nil }

func fastRetrier() *retry.Retrier {
	return retry.StoreRetrier(retry.WithInitialDelay(0), retry.WithRetryIf(isTransient))
}

func TestProgressStore_KeysAndNoExpiry(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	s := NewProgressStore(kv, fastRetrier())

	_, err := s.Load(ctx, "l1")
	assert.ErrorIs(t, err, shared.ErrProgressNotFound)

	p := progress.NewUserProgress()
	require.NoError(t, p.AddXP(120))
	require.NoError(t, s.Save(ctx, "l1", p))

	raw, ok := kv.data["learnhub_user_progress:l1"]
	require.True(t, ok)
	assert.Contains(t, string(raw), `"xp":120`)
	assert.Equal(t, time.Duration(0), kv.ttls["learnhub_user_progress:l1"])

	loaded, err := s.Load(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, p, loaded)

	require.NoError(t, s.Delete(ctx, "l1"))
	_, err = s.Load(ctx, "l1")
	assert.ErrorIs(t, err, shared.ErrProgressNotFound)
}

func TestProgressStore_RetriesThenFails(t *testing.T) {
	kv := newFakeKV()
	kv.failErr = errors.New("connection reset")
	kv.failures = 10
	s := NewProgressStore(kv, fastRetrier())

	_, err := s.Load(context.Background(), "l1")
	require.Error(t, err)
	assert.True(t, shared.IsStorage(err))
	assert.Equal(t, 3, kv.gets)
}

func TestCachedStore_ReadThroughAndInvalidate(t *testing.T) {
	ctx := context.Background()
	primary := memory.NewProgressStore()
	kv := newFakeKV()
	s := NewCachedStore(primary, kv, time.Minute, nil)

	p := progress.NewUserProgress()
	require.NoError(t, p.AddXP(40))
	require.NoError(t, s.Save(ctx, "l1", p))
	assert.Equal(t, time.Minute, kv.ttls[CacheKey("l1")])

	// Served from cache even when the primary record changes underneath.
	other := progress.NewUserProgress()
	require.NoError(t, primary.Save(ctx, "l1", other))
	got, err := s.Load(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, 40, got.XP)

	require.NoError(t, s.Delete(ctx, "l1"))
	_, ok := kv.data[CacheKey("l1")]
	assert.False(t, ok)
	_, err = s.Load(ctx, "l1")
	assert.ErrorIs(t, err, shared.ErrProgressNotFound)
}

func TestCachedStore_FallsBackOnCacheFailure(t *testing.T) {
	ctx := context.Background()
	primary := memory.NewProgressStore()
	p := progress.NewUserProgress()
	require.NoError(t, p.AddXP(75))
	require.NoError(t, primary.Save(ctx, "l1", p))

	kv := newFakeKV()
	kv.failErr = errors.New("redis down")
	kv.failures = 1
	kv.data[CacheKey("l2")] = []byte("{broken")

	s := NewCachedStore(primary, kv, 0, nil)
	got, err := s.Load(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, 75, got.XP)
	assert.Contains(t, kv.data, CacheKey("l1"))
	assert.Equal(t, DefaultCacheTTL, kv.ttls[CacheKey("l1")])

	// Corrupt entries are evicted and the primary answers.
	_, err = s.Load(ctx, "l2")
	assert.ErrorIs(t, err, shared.ErrProgressNotFound)
	assert.NotContains(t, kv.data, CacheKey("l2"))
}

func TestCachedStore_BreakerSkipsDeadCache(t *testing.T) {
	ctx := context.Background()
	primary := memory.NewProgressStore()
	require.NoError(t, primary.Save(ctx, "l1", progress.NewUserProgress()))

	kv := newFakeKV()
	kv.failErr = errors.New("redis down")
	kv.failures = 1000

	cb := circuitbreaker.New("test", circuitbreaker.WithFailureThreshold(2), circuitbreaker.WithTimeout(time.Hour))
	s := NewCachedStore(primary, kv, 0, nil, WithBreaker(cb))

	// The first load fails both the get and the fill, which trips the breaker.
	_, err := s.Load(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, circuitbreaker.StateOpen, cb.State())

	gets := kv.gets
	for i := 0; i < 3; i++ {
		got, err := s.Load(ctx, "l1")
		require.NoError(t, err)
		assert.Equal(t, 1, got.Level)
	}
	assert.Equal(t, gets, kv.gets, "open breaker keeps reads off the cache")
}

func TestCache_ValidatesBeforeNetwork(t *testing.T) {
	c := NewCacheFromClient(goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:0"}))
	defer c.Close()
	ctx := context.Background()

	assert.ErrorIs(t, c.Set(ctx, "", []byte("x"), 0), ErrCacheKeyEmpty)
	assert.ErrorIs(t, c.Set(ctx, "k", []byte("x"), -time.Second), ErrCacheInvalidTTL)
	_, err := c.Get(ctx, "")
	assert.ErrorIs(t, err, ErrCacheKeyEmpty)
	assert.NoError(t, c.Delete(ctx))
}

func TestConfig_Options(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "localhost:6379", cfg.Addr())

	cfg.URL = "redis://:pw@cache:6380/2"
	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 10, opts.PoolSize)

	cfg.URL = "http://nope"
	_, err = cfg.Options()
	assert.ErrorIs(t, err, ErrCacheConnection)
}
