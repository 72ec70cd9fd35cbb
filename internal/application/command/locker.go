package command

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// learnerLocker hands out one exclusive lock per learner ID. Entries are
// reference counted and dropped when nobody holds or waits for them, so the
// map only grows with concurrently active learners.
type learnerLocker struct {
	mu    sync.Mutex
	locks map[string]*learnerLock
}

type learnerLock struct {
	sem  *semaphore.Weighted
	refs int
}

func newLearnerLocker() *learnerLocker {
	return &learnerLocker{locks: make(map[string]*learnerLock)}
}

// Lock blocks until the learner's lock is held or ctx is done.
func (l *learnerLocker) Lock(ctx context.Context, learnerID string) (unlock func(), err error) {
	l.mu.Lock()
	lk, ok := l.locks[learnerID]
	if !ok {
		lk = &learnerLock{sem: semaphore.NewWeighted(1)}
		l.locks[learnerID] = lk
	}
	lk.refs++
	l.mu.Unlock()

	if err := lk.sem.Acquire(ctx, 1); err != nil {
		l.release(learnerID, lk)
		return nil, err
	}

	return func() {
		lk.sem.Release(1)
		l.release(learnerID, lk)
	}, nil
}

func (l *learnerLocker) release(learnerID string, lk *learnerLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, learnerID)
	}
}

// active returns the number of tracked learner locks.
func (l *learnerLocker) active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
