package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/empower-sl/learnhub/internal/domain/progress"
	"github.com/empower-sl/learnhub/internal/domain/shared"
	"github.com/empower-sl/learnhub/pkg/retry"
)

// fakeDB keeps documents in a map and fails the first failures calls with
// failErr.
type fakeDB struct {
	docs     map[string]string
	failErr  error
	failures int
	calls    int
	lastArgs []any
}

func newFakeDB() *fakeDB {
	return &fakeDB{docs: map[string]string{}}
}

func (f *fakeDB) fail() error {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return f.failErr
	}
	return nil
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if err := f.fail(); err != nil {
		return pgconn.CommandTag{}, err
	}
	f.lastArgs = args
	id := args[0].(string)
	switch sql {
	case saveProgressSQL:
		f.docs[id] = args[1].(string)
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	case deleteProgressSQL:
		delete(f.docs, id)
		return pgconn.NewCommandTag("DELETE 1"), nil
	}
	return pgconn.CommandTag{}, errors.New("unexpected statement")
}

func (f *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not supported")
}

func (f *fakeDB) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	if err := f.fail(); err != nil {
		return fakeRow{err: err}
	}
	doc, ok := f.docs[args[0].(string)]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{doc: []byte(doc)}
}

func (f *fakeDB) Ping(context.Context) error {
	return f.fail()
}

type fakeRow struct {
	doc []byte
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*[]byte)) = r.doc
	return nil
}

func fastRetrier() *retry.Retrier {
	return retry.StoreRetrier(retry.WithInitialDelay(0), retry.WithRetryIf(IsTransient))
}

func TestProgressStore_LoadMissing(t *testing.T) {
	s := NewProgressStore(newFakeDB(), fastRetrier())
	_, err := s.Load(context.Background(), "nobody")
	assert.ErrorIs(t, err, shared.ErrProgressNotFound)
}

func TestProgressStore_SaveMirrorsXPAndLevel(t *testing.T) {
	ctx := context.Background()
	db := newFakeDB()
	s := NewProgressStore(db, fastRetrier())

	p := progress.NewUserProgress()
	require.NoError(t, p.AddXP(450))
	require.NoError(t, s.Save(ctx, "l1", p))

	assert.Equal(t, 450, db.lastArgs[2])
	assert.Equal(t, progress.Level(450), db.lastArgs[3])

	loaded, err := s.Load(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, p, loaded)

	require.NoError(t, s.Delete(ctx, "l1"))
	_, err = s.Load(ctx, "l1")
	assert.ErrorIs(t, err, shared.ErrProgressNotFound)
}

func TestProgressStore_RetriesTransientErrors(t *testing.T) {
	db := newFakeDB()
	db.failErr = &pgconn.PgError{Code: "40001"}
	db.failures = 2
	s := NewProgressStore(db, fastRetrier())

	require.NoError(t, s.Save(context.Background(), "l1", progress.NewUserProgress()))
	assert.Equal(t, 3, db.calls)
}

func TestProgressStore_PermanentErrorsAreStorageErrors(t *testing.T) {
	db := newFakeDB()
	db.failErr = &pgconn.PgError{Code: "42P01"}
	db.failures = 5
	s := NewProgressStore(db, fastRetrier())

	_, err := s.Load(context.Background(), "l1")
	require.Error(t, err)
	assert.True(t, shared.IsStorage(err))
	assert.Equal(t, 1, db.calls)
}

func TestProgressStore_CorruptDocument(t *testing.T) {
	db := newFakeDB()
	db.docs["l1"] = "{not json"
	s := NewProgressStore(db, fastRetrier())

	_, err := s.Load(context.Background(), "l1")
	assert.ErrorIs(t, err, shared.ErrInvalidFormat)
}

func TestStoreError_Timeout(t *testing.T) {
	err := storeError("Load", context.DeadlineExceeded)
	assert.ErrorIs(t, err, shared.ErrTimeout)
	assert.True(t, shared.IsRetryable(err))

	assert.Equal(t, context.Canceled, storeError("Load", context.Canceled))
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(context.Canceled))
	assert.True(t, IsTransient(&pgconn.PgError{Code: "40P01"}))
	assert.False(t, IsTransient(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsNoRows(pgx.ErrNoRows))
}

func TestConfig_DSN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Password = "secret"
	assert.Equal(t,
		"host=localhost port=5432 dbname=learnhub user=postgres password=secret sslmode=disable connect_timeout=10",
		cfg.DSN())

	cfg.URL = "postgres://u:p@db:5432/learnhub"
	assert.Equal(t, "postgres://u:p@db:5432/learnhub", cfg.DSN())

	pc, err := cfg.PoolConfig()
	require.NoError(t, err)
	assert.Equal(t, int32(10), pc.MaxConns)
	assert.Equal(t, time.Hour, pc.MaxConnLifetime)
}

func TestGetMigrations_Ordered(t *testing.T) {
	migs := GetMigrations()
	require.NotEmpty(t, migs)
	for i, m := range migs {
		assert.Equal(t, i+1, m.Version)
		assert.Contains(t, m.UpSQL, "CREATE TABLE")
	}
}
