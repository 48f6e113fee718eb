package yolo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	DefaultPoolSize   = 2
	AcquireTimeout    = 5 * time.Second
	HealthCheckPeriod = 60 * time.Second
	maxRecordedErrors = 10
)

var ErrPoolClosed = errors.New("pool is closed")

// SessionPool hands out sessions of one model to concurrent callers.
// Sessions that fail are discarded and replaced by the health check.
type SessionPool struct {
	sessions chan *Session
	size     int
	factory  func() (*Session, error)

	mu         sync.Mutex
	closed     bool
	live       int
	lastErrors []error
	stop       chan struct{}

	metrics poolMetrics
}

type poolMetrics struct {
	mu              sync.RWMutex
	inUse           int
	totalAcquired   int64
	totalReleased   int64
	acquireFailures int64
	discarded       int64
	waitTime        time.Duration
}

// PoolStats is a point-in-time copy of the pool metrics.
type PoolStats struct {
	Size            int           `json:"pool_size"`
	Live            int           `json:"sessions_live"`
	InUse           int           `json:"sessions_in_use"`
	TotalAcquired   int64         `json:"total_acquired"`
	TotalReleased   int64         `json:"total_released"`
	AcquireFailures int64         `json:"acquire_failures"`
	Discarded       int64         `json:"discarded"`
	WaitTime        time.Duration `json:"wait_time_ns"`
	LastErrors      []string      `json:"last_errors,omitempty"`
}

func NewSessionPool(size int, factory func() (*Session, error)) (*SessionPool, error) {
	return newSessionPool(size, factory, HealthCheckPeriod)
}

func newSessionPool(size int, factory func() (*Session, error), healthEvery time.Duration) (*SessionPool, error) {
	if size <= 0 {
		size = DefaultPoolSize
	}

	pool := &SessionPool{
		sessions: make(chan *Session, size),
		size:     size,
		factory:  factory,
		stop:     make(chan struct{}),
	}

	for i := 0; i < size; i++ {
		session, err := factory()
		if err != nil {
			pool.Destroy()
			return nil, fmt.Errorf("failed to initialize session %d: %w", i, err)
		}
		pool.live++
		pool.sessions <- session
	}

	if healthEvery > 0 {
		go pool.healthCheck(healthEvery)
	}

	return pool, nil
}

func (p *SessionPool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *SessionPool) Acquire(ctx context.Context) (*Session, error) {
	if p.isClosed() {
		return nil, ErrPoolClosed
	}

	start := time.Now()
	defer func() {
		p.metrics.mu.Lock()
		p.metrics.waitTime += time.Since(start)
		p.metrics.mu.Unlock()
	}()

	timer := time.NewTimer(AcquireTimeout)
	defer timer.Stop()

	select {
	case session, ok := <-p.sessions:
		if !ok {
			return nil, ErrPoolClosed
		}
		p.metrics.mu.Lock()
		p.metrics.inUse++
		p.metrics.totalAcquired++
		p.metrics.mu.Unlock()
		return session, nil
	case <-timer.C:
		p.metrics.mu.Lock()
		p.metrics.acquireFailures++
		p.metrics.mu.Unlock()
		return nil, fmt.Errorf("timeout waiting for available session")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *SessionPool) Release(session *Session) {
	p.metrics.mu.Lock()
	p.metrics.inUse--
	p.metrics.totalReleased++
	p.metrics.mu.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		session.Destroy()
		p.live--
		return
	}
	p.sessions <- session
}

// Discard destroys a session that failed during a run instead of
// returning it. The health check creates a replacement.
func (p *SessionPool) Discard(session *Session, cause error) {
	p.metrics.mu.Lock()
	p.metrics.inUse--
	p.metrics.discarded++
	p.metrics.mu.Unlock()

	session.Destroy()

	p.mu.Lock()
	p.live--
	if cause != nil {
		p.recordErrorLocked(cause)
	}
	p.mu.Unlock()
}

func (p *SessionPool) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	p.closed = true
	close(p.stop)
	close(p.sessions)

	for session := range p.sessions {
		session.Destroy()
		p.live--
	}
}

func (p *SessionPool) healthCheck(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.replenish()
		}
	}
}

// replenish recreates discarded sessions until the pool is back at size.
func (p *SessionPool) replenish() {
	p.mu.Lock()
	missing := p.size - p.live
	p.mu.Unlock()

	for i := 0; i < missing; i++ {
		session, err := p.factory()
		if err != nil {
			p.recordError(err)
			continue
		}
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			session.Destroy()
			return
		}
		p.live++
		p.sessions <- session
		p.mu.Unlock()
	}
}

func (p *SessionPool) recordError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recordErrorLocked(err)
}

func (p *SessionPool) recordErrorLocked(err error) {
	p.lastErrors = append(p.lastErrors, err)
	if len(p.lastErrors) > maxRecordedErrors {
		p.lastErrors = p.lastErrors[1:]
	}
}

func (p *SessionPool) Stats() PoolStats {
	p.metrics.mu.RLock()
	stats := PoolStats{
		Size:            p.size,
		InUse:           p.metrics.inUse,
		TotalAcquired:   p.metrics.totalAcquired,
		TotalReleased:   p.metrics.totalReleased,
		AcquireFailures: p.metrics.acquireFailures,
		Discarded:       p.metrics.discarded,
		WaitTime:        p.metrics.waitTime,
	}
	p.metrics.mu.RUnlock()

	p.mu.Lock()
	stats.Live = p.live
	for _, err := range p.lastErrors {
		stats.LastErrors = append(stats.LastErrors, err.Error())
	}
	p.mu.Unlock()
	return stats
}
