package leaselock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	key string
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*string)) = r.key
	return nil
}

// fakeDB keeps a single in-memory app_locks row.
type fakeDB struct {
	mu       sync.Mutex
	holder   string
	releases int
	execErr  error
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	key, token := args[0].(string), args[1].(string)
	switch sql {
	case tryAcquireSQL:
		if f.holder != "" && f.holder != token {
			return fakeRow{err: pgx.ErrNoRows}
		}
		f.holder = token
		return fakeRow{key: key}
	case renewSQL:
		if f.holder != token {
			return fakeRow{err: pgx.ErrNoRows}
		}
		return fakeRow{key: key}
	}
	return fakeRow{err: errors.New("unexpected query")}
}

func (f *fakeDB) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	if f.holder == args[1].(string) {
		f.holder = ""
	}
	f.releases++
	return pgconn.NewCommandTag("DELETE 1"), nil
}

func TestOptions_Defaults(t *testing.T) {
	opts := Options{}.withDefaults()
	assert.Equal(t, DefaultTTL, opts.TTL)
	assert.Equal(t, DefaultTTL/2, opts.RenewEvery)
	assert.Equal(t, DefaultWaitInterval, opts.WaitInterval)

	opts = Options{TTL: 10 * time.Second, RenewEvery: time.Minute, WaitJitter: -1}.withDefaults()
	assert.Equal(t, 5*time.Second, opts.RenewEvery)
	assert.Zero(t, opts.WaitJitter)

	run := GraphRunOptions()
	assert.True(t, run.Wait)
	assert.Equal(t, DefaultTTL, run.TTL)
}

func TestAcquire_EmptyKey(t *testing.T) {
	_, err := New(&fakeDB{}).Acquire(context.Background(), "", Options{})
	assert.Error(t, err)
}

func TestAcquire_BusyWithoutWait(t *testing.T) {
	db := &fakeDB{holder: "someone-else"}
	_, err := New(db).Acquire(context.Background(), GraphLockKey, Options{TTL: time.Minute})
	assert.ErrorIs(t, err, ErrBusy)
}

func TestAcquire_WaitRespectsContext(t *testing.T) {
	db := &fakeDB{holder: "someone-else"}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := New(db).Acquire(ctx, GraphLockKey, Options{Wait: true, WaitInterval: 10 * time.Millisecond})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWithLease_ReleasesAfterRun(t *testing.T) {
	db := &fakeDB{}
	client := New(db)

	var ran bool
	err := client.WithLease(context.Background(), GraphLockKey, Options{TokenPrefix: "graph-"}, func(ctx context.Context) error {
		ran = true
		db.mu.Lock()
		defer db.mu.Unlock()
		assert.Contains(t, db.holder, "graph-")
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Empty(t, db.holder)
	assert.Equal(t, 1, db.releases)
}

func TestWithLease_ReturnsCallbackError(t *testing.T) {
	db := &fakeDB{}
	boom := errors.New("boom")
	err := New(db).WithLease(context.Background(), GraphLockKey, Options{}, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, db.holder)
}

func TestLease_LostCancelsContext(t *testing.T) {
	db := &fakeDB{}
	lease, err := New(db).Acquire(context.Background(), GraphLockKey, Options{TTL: 2 * time.Second, RenewEvery: 20 * time.Millisecond})
	require.NoError(t, err)

	db.mu.Lock()
	db.holder = "stolen"
	db.mu.Unlock()

	select {
	case <-lease.Context.Done():
		assert.ErrorIs(t, context.Cause(lease.Context), ErrLost)
	case <-time.After(2 * time.Second):
		t.Fatal("lease context was not cancelled")
	}
}

func TestLocalLocker(t *testing.T) {
	l := NewLocalLocker()

	started := make(chan struct{})
	finish := make(chan struct{})
	go func() {
		_ = l.WithLease(context.Background(), GraphLockKey, Options{}, func(context.Context) error {
			close(started)
			<-finish
			return nil
		})
	}()
	<-started

	err := l.WithLease(context.Background(), GraphLockKey, Options{}, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrBusy)

	var second atomic.Bool
	done := make(chan error, 1)
	go func() {
		done <- l.WithLease(context.Background(), GraphLockKey, Options{Wait: true}, func(context.Context) error {
			second.Store(true)
			return nil
		})
	}()
	close(finish)

	require.NoError(t, <-done)
	assert.True(t, second.Load())

	assert.NoError(t, l.WithLease(context.Background(), "other", Options{}, func(context.Context) error { return nil }))
}
