package leaselock

import (
	"context"
	"sync"
	"time"
)

// Locker runs a function while holding a named lease.
type Locker interface {
	WithLease(ctx context.Context, key string, opts Options, fn func(ctx context.Context) error) error
}

var (
	_ Locker = (*Client)(nil)
	_ Locker = (*LocalLocker)(nil)
)

// GraphRunOptions are the lease options used for graph runs: a run may take
// minutes, and a second worker waits instead of failing.
func GraphRunOptions() Options {
	return Options{
		TTL:          DefaultTTL,
		Wait:         true,
		WaitInterval: DefaultWaitInterval,
		WaitJitter:   500 * time.Millisecond,
		TokenPrefix:  "graph-",
	}
}

// LocalLocker is an in-process Locker for single-process runs backed by
// SQLite, where there is no app_locks table.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]chan struct{})}
}

func (l *LocalLocker) WithLease(ctx context.Context, key string, opts Options, fn func(ctx context.Context) error) error {
	for {
		l.mu.Lock()
		done, busy := l.held[key]
		if !busy {
			done = make(chan struct{})
			l.held[key] = done
			l.mu.Unlock()
			break
		}
		l.mu.Unlock()

		if !opts.Wait {
			return ErrBusy
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
		}
	}

	defer func() {
		l.mu.Lock()
		close(l.held[key])
		delete(l.held, key)
		l.mu.Unlock()
	}()
	return fn(ctx)
}
