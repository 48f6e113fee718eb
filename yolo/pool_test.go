package yolo

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func emptyFactory(created *atomic.Int32) func() (*Session, error) {
	return func() (*Session, error) {
		created.Add(1)
		return &Session{}, nil
	}
}

func TestSessionPoolAcquireRelease(t *testing.T) {
	var created atomic.Int32
	pool, err := newSessionPool(2, emptyFactory(&created), 0)
	if err != nil {
		t.Fatalf("newSessionPool: %v", err)
	}
	defer pool.Destroy()

	if created.Load() != 2 {
		t.Fatalf("created %d sessions, want 2", created.Load())
	}

	s1, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	s2, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	stats := pool.Stats()
	if stats.InUse != 2 || stats.TotalAcquired != 2 || stats.Live != 2 {
		t.Errorf("stats = %+v", stats)
	}

	pool.Release(s1)
	pool.Release(s2)
	stats = pool.Stats()
	if stats.InUse != 0 || stats.TotalReleased != 2 {
		t.Errorf("stats after release = %+v", stats)
	}
}

func TestSessionPoolAcquireHonorsContext(t *testing.T) {
	var created atomic.Int32
	pool, err := newSessionPool(1, emptyFactory(&created), 0)
	if err != nil {
		t.Fatalf("newSessionPool: %v", err)
	}
	defer pool.Destroy()

	s, _ := pool.Acquire(context.Background())
	defer pool.Release(s)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := pool.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Acquire on exhausted pool = %v, want deadline exceeded", err)
	}
}

func TestSessionPoolDiscardAndReplenish(t *testing.T) {
	var created atomic.Int32
	pool, err := newSessionPool(2, emptyFactory(&created), 0)
	if err != nil {
		t.Fatalf("newSessionPool: %v", err)
	}
	defer pool.Destroy()

	s, _ := pool.Acquire(context.Background())
	pool.Discard(s, errors.New("run failed"))

	stats := pool.Stats()
	if stats.Live != 1 || stats.Discarded != 1 || len(stats.LastErrors) != 1 {
		t.Fatalf("stats after discard = %+v", stats)
	}

	pool.replenish()
	if got := pool.Stats().Live; got != 2 {
		t.Errorf("live after replenish = %d, want 2", got)
	}
	if created.Load() != 3 {
		t.Errorf("created %d sessions, want 3", created.Load())
	}
}

func TestSessionPoolFactoryFailure(t *testing.T) {
	calls := 0
	_, err := newSessionPool(3, func() (*Session, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("boom")
		}
		return &Session{}, nil
	}, 0)
	if err == nil {
		t.Fatal("expected error from failing factory")
	}
}

func TestSessionPoolClosed(t *testing.T) {
	var created atomic.Int32
	pool, err := newSessionPool(1, emptyFactory(&created), 0)
	if err != nil {
		t.Fatalf("newSessionPool: %v", err)
	}
	s, _ := pool.Acquire(context.Background())
	pool.Destroy()
	pool.Destroy()

	if _, err := pool.Acquire(context.Background()); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Acquire after Destroy = %v, want ErrPoolClosed", err)
	}
	pool.Release(s)
	if live := pool.Stats().Live; live != 0 {
		t.Errorf("live after release on closed pool = %d, want 0", live)
	}
}
