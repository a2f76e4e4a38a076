package provider

import (
	"context"
	"sync"

	"github.com/rxtech-lab/argo-histdata/pkg/errors"
)

const (
	// DefaultPoolSize caps how many fetches run against a broker at once.
	DefaultPoolSize = 30

	// Session ids are drawn from [firstSessionID, lastSessionID] and
	// recycled, so no two live sessions share an id.
	firstSessionID = 21
	lastSessionID  = 52
)

// Session is one leased broker connection slot. Release it when the fetch
// using it finishes.
type Session struct {
	ID   int
	pool *ConnectionPool
}

// Release returns the session's id to the pool. Release exactly once.
func (s *Session) Release() {
	s.pool.release(s.ID)
}

// ConnectionPool bounds concurrent provider fetches and hands out recycled
// session ids.
type ConnectionPool struct {
	sem chan struct{}
	ids chan int

	mu     sync.Mutex
	closed bool
}

// NewConnectionPool creates a pool admitting up to size concurrent
// sessions. Size must not exceed the id basket.
func NewConnectionPool(size int) (*ConnectionPool, error) {
	basket := lastSessionID - firstSessionID + 1
	if size <= 0 || size > basket {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter,
			"pool size must be between 1 and %d, got %d", basket, size)
	}

	ids := make(chan int, basket)
	for id := firstSessionID; id <= lastSessionID; id++ {
		ids <- id
	}

	return &ConnectionPool{
		sem: make(chan struct{}, size),
		ids: ids,
	}, nil
}

// Acquire blocks until a session slot is free or the context is done.
func (p *ConnectionPool) Acquire(ctx context.Context) (*Session, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()

		return nil, errors.New(errors.ErrCodePoolClosed, "connection pool is closed")
	}
	p.mu.Unlock()

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, errors.Wrap(errors.ErrCodePoolClosed, "interrupted while waiting for a session", ctx.Err())
	}

	// The basket always holds at least as many ids as the semaphore
	// admits, so this receive never blocks.
	id := <-p.ids

	return &Session{ID: id, pool: p}, nil
}

func (p *ConnectionPool) release(id int) {
	p.ids <- id
	<-p.sem
}

// Close marks the pool closed. Sessions already leased stay valid until
// released.
func (p *ConnectionPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}
