package selfplay

import (
	"context"
	"sync"

	dual "github.com/gorgonia/selfplay/dualnet"
	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"
)

// ModelPool is the bounded blocking pool of model handles (§4.2): Acquire
// blocks until a handle is free, Release is non-blocking. Sized to
// parallel_inference; when selfplay_threads exceeds that, threads
// back-pressure on Acquire, which is the intended throttle on the
// accelerator.
type ModelPool struct {
	sem *semaphore.Weighted

	mu   sync.Mutex
	free []dual.Model
	all  []dual.Model
}

// NewModelPool takes ownership of handles: the pool closes every one of
// them on Close.
func NewModelPool(handles []dual.Model) *ModelPool {
	return &ModelPool{
		sem:  semaphore.NewWeighted(int64(len(handles))),
		free: append([]dual.Model(nil), handles...),
		all:  append([]dual.Model(nil), handles...),
	}
}

// Acquire blocks until a handle is available. §7: resource exhaustion at
// the model pool is not an error, blocking is the intended behavior - ctx
// exists only so a shutdown signal can unblock a caller, not as a timeout.
func (p *ModelPool) Acquire(ctx context.Context) (dual.Model, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, errors.Wrap(err, "model pool acquire")
	}
	p.mu.Lock()
	m := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	p.mu.Unlock()
	return m, nil
}

// Release returns a handle to the pool. Non-blocking.
func (p *ModelPool) Release(m dual.Model) {
	p.mu.Lock()
	p.free = append(p.free, m)
	p.mu.Unlock()
	p.sem.Release(1)
}

// Close closes every handle the pool owns, returning the first error (if
// any) after attempting all of them.
func (p *ModelPool) Close() error {
	var first error
	for _, m := range p.all {
		if err := m.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
