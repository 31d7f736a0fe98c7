package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"sync"
)

var (
	// ErrForeignWorker is returned when a worker is released to a pool that did not hand it out.
	ErrForeignWorker = errors.New("ocr: worker does not belong to this pool")
	// ErrNotAcquired is returned when a worker is released twice.
	ErrNotAcquired = errors.New("ocr: worker is not acquired")
	// ErrPoolClosed is returned by Acquire after Close.
	ErrPoolClosed = errors.New("ocr: pool is closed")
)

// Worker is a recognizer leased from a Pool.
type Worker struct {
	Recognizer
	pool *Pool
	id   int
}

// ID returns the worker's index in its pool.
func (w *Worker) ID() int { return w.id }

// Pool hands out a fixed set of recognizers in round-robin order.
type Pool struct {
	mu      sync.Mutex
	workers []*Worker
	busy    []bool
	next    int
	closed  bool
	free    chan struct{}
	done    chan struct{}
}

// NewPool creates capacity recognizers with factory. Already created
// recognizers are closed when a later one fails.
func NewPool(capacity int, factory func() (Recognizer, error)) (*Pool, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("pool capacity must be at least 1, got %d", capacity)
	}
	p := &Pool{
		workers: make([]*Worker, 0, capacity),
		busy:    make([]bool, capacity),
		free:    make(chan struct{}, capacity),
		done:    make(chan struct{}),
	}
	for i := range capacity {
		rec, err := factory()
		if err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("create recognizer %d: %w", i, err)
		}
		p.workers = append(p.workers, &Worker{Recognizer: rec, pool: p, id: i})
		p.free <- struct{}{}
	}
	slog.Debug("OCR pool ready", "workers", capacity)
	return p, nil
}

// Size returns the pool capacity.
func (p *Pool) Size() int { return cap(p.free) }

// InUse returns the number of leased workers.
func (p *Pool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, b := range p.busy {
		if b {
			n++
		}
	}
	return n
}

// Acquire leases the next free worker, blocking until one is released or
// ctx is done.
func (p *Pool) Acquire(ctx context.Context) (*Worker, error) {
	select {
	case <-p.free:
	case <-p.done:
		return nil, ErrPoolClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPoolClosed
	}
	n := len(p.workers)
	for k := range n {
		i := (p.next + k) % n
		if !p.busy[i] {
			p.busy[i] = true
			p.next = (i + 1) % n
			return p.workers[i], nil
		}
	}
	// a free token always matches an idle worker
	panic("ocr: pool token without idle worker")
}

// Release returns w to the pool.
func (p *Pool) Release(w *Worker) error {
	if w == nil || w.pool != p {
		return ErrForeignWorker
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.busy[w.id] {
		return ErrNotAcquired
	}
	p.busy[w.id] = false
	if !p.closed {
		p.free <- struct{}{}
	}
	return nil
}

// Recognize runs one recognition on a leased worker.
func (p *Pool) Recognize(ctx context.Context, img image.Image) (Text, error) {
	w, err := p.Acquire(ctx)
	if err != nil {
		return Text{}, err
	}
	defer func() { _ = p.Release(w) }()
	return w.Recognize(ctx, img)
}

// Close closes every recognizer that implements io.Closer. Blocked and
// future Acquire calls fail with ErrPoolClosed.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	close(p.done)

	var errs []error
	for _, w := range p.workers {
		if c, ok := w.Recognizer.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
