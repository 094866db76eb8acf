package queue

import (
	"context"
	"errors"
	"sync"
)

var ErrPoolClosed = errors.New("channel pool is closed")

// slotPool lends out at most cap(slots) items at a time. Callers wait for a
// free slot under their context. Items that died while checked out are
// discarded and a fresh one is opened on the next get, so the pool never shrinks.
type slotPool[T any] struct {
	slots chan struct{}
	idle  chan T

	open    func() (T, error)
	alive   func(T) bool
	discard func(T)

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func newSlotPool[T any](size int, open func() (T, error), alive func(T) bool, discard func(T)) *slotPool[T] {
	if size <= 0 {
		size = 1
	}
	return &slotPool[T]{
		slots:   make(chan struct{}, size),
		idle:    make(chan T, size),
		open:    open,
		alive:   alive,
		discard: discard,
		done:    make(chan struct{}),
	}
}

func (p *slotPool[T]) get(ctx context.Context) (T, error) {
	var zero T

	select {
	case <-p.done:
		return zero, ErrPoolClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	case p.slots <- struct{}{}:
	}

	if p.isClosed() {
		<-p.slots
		return zero, ErrPoolClosed
	}

	if item, ok := p.takeIdle(); ok {
		return item, nil
	}

	item, err := p.open()
	if err != nil {
		<-p.slots
		return zero, err
	}
	return item, nil
}

// takeIdle pops live idle items, discarding dead ones on the way
func (p *slotPool[T]) takeIdle() (T, bool) {
	for {
		select {
		case item := <-p.idle:
			if p.alive(item) {
				return item, true
			}
			p.discard(item)
		default:
			var zero T
			return zero, false
		}
	}
}

// put returns an item taken with get and frees its slot
func (p *slotPool[T]) put(item T) {
	defer func() { <-p.slots }()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || !p.alive(item) {
		p.discard(item)
		return
	}
	select {
	case p.idle <- item:
	default:
		p.discard(item)
	}
}

func (p *slotPool[T]) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// close wakes waiting callers and discards idle items. Items still checked
// out are discarded when they come back.
func (p *slotPool[T]) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.done)
	for {
		select {
		case item := <-p.idle:
			p.discard(item)
		default:
			return
		}
	}
}
