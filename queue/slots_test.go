package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeChannel struct {
	id   int
	dead atomic.Bool
}

type fakeBroker struct {
	mu        sync.Mutex
	opened    int
	discarded int
	fail      error
}

func (b *fakeBroker) pool(size int) *slotPool[*fakeChannel] {
	return newSlotPool(size,
		func() (*fakeChannel, error) {
			b.mu.Lock()
			defer b.mu.Unlock()
			if b.fail != nil {
				return nil, b.fail
			}
			b.opened++
			return &fakeChannel{id: b.opened}, nil
		},
		func(ch *fakeChannel) bool { return !ch.dead.Load() },
		func(*fakeChannel) {
			b.mu.Lock()
			b.discarded++
			b.mu.Unlock()
		},
	)
}

func TestSlotPoolWaitsForAFreeChannel(t *testing.T) {
	broker := &fakeBroker{}
	pool := broker.pool(1)

	first, err := pool.get(context.Background())
	if err != nil {
		t.Fatalf("get() error: %v", err)
	}

	got := make(chan *fakeChannel, 1)
	go func() {
		ch, err := pool.get(context.Background())
		if err != nil {
			t.Errorf("waiting get() error: %v", err)
		}
		got <- ch
	}()

	select {
	case <-got:
		t.Fatal("second get() did not wait for the only channel")
	case <-time.After(20 * time.Millisecond):
	}

	pool.put(first)
	select {
	case ch := <-got:
		if ch != first {
			t.Fatalf("waiting get() = channel %d, want the returned channel %d", ch.id, first.id)
		}
	case <-time.After(time.Second):
		t.Fatal("waiting get() never woke up")
	}
	if broker.opened != 1 {
		t.Fatalf("opened %d channels, want 1", broker.opened)
	}
}

func TestSlotPoolGetHonoursContext(t *testing.T) {
	pool := (&fakeBroker{}).pool(1)
	if _, err := pool.get(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := pool.get(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("get() on an exhausted pool error = %v", err)
	}
}

func TestSlotPoolReplacesDeadChannels(t *testing.T) {
	broker := &fakeBroker{}
	pool := broker.pool(1)

	ch, _ := pool.get(context.Background())
	ch.dead.Store(true)
	pool.put(ch)

	fresh, err := pool.get(context.Background())
	if err != nil {
		t.Fatalf("get() after a dead channel error: %v", err)
	}
	if fresh == ch || broker.opened != 2 || broker.discarded != 1 {
		t.Fatalf("fresh=%d opened=%d discarded=%d", fresh.id, broker.opened, broker.discarded)
	}

	// a channel that died while idle is skipped too
	pool.put(fresh)
	fresh.dead.Store(true)
	next, err := pool.get(context.Background())
	if err != nil || next == fresh || broker.opened != 3 {
		t.Fatalf("get() = %v, %v, opened=%d", next, err, broker.opened)
	}
}

func TestSlotPoolOpenFailureFreesSlot(t *testing.T) {
	broker := &fakeBroker{fail: errors.New("connection refused")}
	pool := broker.pool(1)

	if _, err := pool.get(context.Background()); err == nil {
		t.Fatal("get() with a failing broker succeeded")
	}

	broker.mu.Lock()
	broker.fail = nil
	broker.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := pool.get(ctx); err != nil {
		t.Fatalf("get() after the broker came back error: %v", err)
	}
}

func TestSlotPoolClose(t *testing.T) {
	broker := &fakeBroker{}
	pool := broker.pool(2)

	idle, _ := pool.get(context.Background())
	out, _ := pool.get(context.Background())
	pool.put(idle)

	pool.close()
	if _, err := pool.get(context.Background()); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("get() after close error = %v", err)
	}
	pool.put(out)
	if broker.discarded != 2 {
		t.Fatalf("discarded = %d, want 2", broker.discarded)
	}
}
