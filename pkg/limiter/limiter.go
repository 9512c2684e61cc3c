// Package limiter provides the admission gate that bounds in-flight backend
// calls (page fetches, metadata fetches) made by one listing.
package limiter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrInvalidCapacity is returned when a limiter is built with capacity < 1.
var ErrInvalidCapacity = errors.New("limiter capacity must be >= 1")

// Limiter is a counting semaphore of fixed capacity, optionally paired with
// a request-rate cap.
//
// Limiter is safe for concurrent use.
type Limiter struct {
	sem      *semaphore.Weighted
	rate     *rate.Limiter
	capacity int
	inFlight atomic.Int64
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithRate caps admissions to rps per second with the given burst.
// A non-positive rps leaves admissions unthrottled.
func WithRate(rps float64, burst int) Option {
	return func(l *Limiter) {
		if rps <= 0 {
			return
		}
		if burst < 1 {
			burst = 1
		}
		l.rate = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// New creates a limiter admitting at most n concurrent holders.
func New(n int, opts ...Option) (*Limiter, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, n)
	}
	l := &Limiter{
		sem:      semaphore.NewWeighted(int64(n)),
		capacity: n,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Permit is one admitted slot. Release it exactly once; extra calls are no-ops.
type Permit struct {
	l    *Limiter
	once sync.Once
}

// Release returns the slot to the limiter.
func (p *Permit) Release() {
	if p == nil {
		return
	}
	p.once.Do(func() {
		p.l.inFlight.Add(-1)
		p.l.sem.Release(1)
	})
}

// AcquireOne blocks until a slot is free or ctx is done.
//
// Callers should defer Release immediately after a successful acquire so the
// slot is returned on every exit path.
func (l *Limiter) AcquireOne(ctx context.Context) (*Permit, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	l.inFlight.Add(1)
	p := &Permit{l: l}

	if l.rate != nil {
		if err := l.rate.Wait(ctx); err != nil {
			p.Release()
			return nil, err
		}
	}
	return p, nil
}

// Capacity returns the configured slot count.
func (l *Limiter) Capacity() int {
	return l.capacity
}

// InFlight returns the number of currently held permits.
func (l *Limiter) InFlight() int {
	return int(l.inFlight.Load())
}
