package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-broadcast"
	"github.com/encodeous/moss/state"
)

const tablePollInterval = 50 * time.Millisecond

// TableTrace fans every published routing table out to subscribers.
// Once closed, subscribing fails and unsubscribing is a no-op.
type TableTrace struct {
	mu     sync.Mutex
	closed bool
	b      broadcast.Broadcaster
}

func NewTableTrace() *TableTrace {
	return &TableTrace{
		b: broadcast.NewBroadcaster(state.SendBufferSize),
	}
}

// Publish never blocks; if the trace is backed up the table is dropped.
func (t *TableTrace) Publish(tbl *state.RouteTable) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.b.TrySubmit(tbl)
}

// Subscribe registers ch and reports false if the trace is already closed.
// The subscriber must keep draining ch until Unsubscribe returns.
func (t *TableTrace) Subscribe(ch chan<- any) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	t.b.Register(ch)
	return true
}

func (t *TableTrace) Unsubscribe(ch chan any) {
	done := make(chan struct{})
	defer close(done)
	// drain before taking the lock, the broadcaster may be blocked on ch while another caller holds it
	go func() {
		for {
			select {
			case <-ch:
			case <-done:
				return
			}
		}
	}()
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.b.Unregister(ch)
}

func (t *TableTrace) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	_ = t.b.Close()
}

// WaitForTable blocks until the published routing table satisfies cond, ctx ends or the node stops.
// The trace may drop tables under load, so the current table is also polled.
func (r *MossRouter) WaitForTable(ctx context.Context, cond func(tbl *state.RouteTable) bool) (*state.RouteTable, error) {
	if tbl := r.Table(); cond(tbl) {
		return tbl, nil
	}
	ch := make(chan any, 8)
	if !r.Trace.Subscribe(ch) {
		return r.Table(), state.ErrRouterStopped
	}
	defer r.Trace.Unsubscribe(ch)
	ticker := time.NewTicker(tablePollInterval)
	defer ticker.Stop()

	for {
		select {
		case v, ok := <-ch:
			if !ok {
				return r.Table(), state.ErrRouterStopped
			}
			if tbl, ok := v.(*state.RouteTable); ok && cond(tbl) {
				return tbl, nil
			}
		case <-ticker.C:
			if tbl := r.Table(); cond(tbl) {
				return tbl, nil
			}
		case <-ctx.Done():
			return r.Table(), ctx.Err()
		case <-r.env.Context.Done():
			return r.Table(), fmt.Errorf("%w: %w", state.ErrRouterStopped, context.Cause(r.env.Context))
		}
	}
}
