// Package livesync mirrors a collection's change feed into a locally held
// list. A Bridge is an explicit subscription owned by whoever created it:
// Start and Stop are idempotent and nothing is shared between bridges.
package livesync

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// EventKind is the kind of change carried by an Event.
type EventKind int

const (
	Added EventKind = iota
	Changed
	Removed
)

func (k EventKind) String() string {
	switch k {
	case Added:
		return "added"
	case Changed:
		return "changed"
	case Removed:
		return "removed"
	}
	return "unknown"
}

// Event is one change. Item is unset for Removed.
type Event[T any] struct {
	Kind EventKind
	ID   primitive.ObjectID
	Item T
}

// Feed produces events until ctx is cancelled. The returned channel is
// closed when the feed ends.
type Feed[T any] interface {
	Subscribe(ctx context.Context) (<-chan Event[T], error)
}

// Options configures how a Bridge reconciles events.
type Options[T any] struct {
	// ID returns the item's identifier. Required.
	ID func(T) primitive.ObjectID
	// Deleted reports a soft-deleted item; a change that sets it removes
	// the item locally.
	Deleted func(T) bool
	// Resolve fills in foreign references (author, investor) on new items.
	Resolve func(ctx context.Context, item T) (T, error)
	// Preserve carries locally resolved fields from old onto incoming.
	Preserve func(old, incoming T) T
	// OnChange receives a copy of the list after every event.
	OnChange func(items []T)
	Log      *zap.Logger
}

// Bridge reconciles a Feed into an ordered list.
type Bridge[T any] struct {
	feed Feed[T]
	opts Options[T]

	mu     sync.Mutex
	items  []T
	cancel context.CancelFunc
	done   chan struct{}
}

// NewBridge creates a stopped bridge.
func NewBridge[T any](feed Feed[T], opts Options[T]) *Bridge[T] {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	return &Bridge[T]{feed: feed, opts: opts}
}

// Seed replaces the local list, typically with an initial load made before Start.
func (b *Bridge[T]) Seed(items []T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append([]T(nil), items...)
}

// Snapshot returns a copy of the local list.
func (b *Bridge[T]) Snapshot() []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]T(nil), b.items...)
}

// Running reports whether the bridge is attached to its feed.
func (b *Bridge[T]) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cancel != nil
}

// Start attaches to the feed. Calling Start on a running bridge does nothing.
func (b *Bridge[T]) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	events, err := b.feed.Subscribe(ctx)
	if err != nil {
		cancel()
		return err
	}
	done := make(chan struct{})
	b.cancel, b.done = cancel, done
	go b.run(ctx, events, done)
	return nil
}

// Stop detaches from the feed and waits for the bridge goroutine to exit.
// Calling Stop on a stopped bridge does nothing.
func (b *Bridge[T]) Stop() {
	b.mu.Lock()
	cancel, done := b.cancel, b.done
	b.cancel, b.done = nil, nil
	b.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Done is closed when the running bridge's feed ends, after which the bridge
// reports stopped and may be started again. It is nil when stopped.
func (b *Bridge[T]) Done() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done
}

func (b *Bridge[T]) run(ctx context.Context, events <-chan Event[T], done chan struct{}) {
	defer func() {
		b.mu.Lock()
		if b.done == done {
			b.cancel()
			b.cancel, b.done = nil, nil
		}
		b.mu.Unlock()
		close(done)
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				b.opts.Log.Debug("live feed closed")
				return
			}
			b.Apply(ctx, ev)
		}
	}
}

// Apply reconciles one event and dispatches the new list. Events are applied
// one at a time, so list order follows arrival order.
func (b *Bridge[T]) Apply(ctx context.Context, ev Event[T]) []T {
	id := ev.ID
	if ev.Kind != Removed && b.opts.ID != nil {
		id = b.opts.ID(ev.Item)
	}

	b.mu.Lock()
	idx := b.indexOf(id)
	b.mu.Unlock()

	switch ev.Kind {
	case Added:
		if idx >= 0 || b.deleted(ev.Item) {
			break
		}
		item := b.resolve(ctx, ev.Item)
		b.mu.Lock()
		if b.indexOf(id) < 0 {
			b.items = append(b.items, item)
		}
		b.mu.Unlock()

	case Changed:
		if b.deleted(ev.Item) {
			b.mu.Lock()
			b.remove(id)
			b.mu.Unlock()
			break
		}
		if idx < 0 {
			// A record that now matches the feed enters the list.
			item := b.resolve(ctx, ev.Item)
			b.mu.Lock()
			if b.indexOf(id) < 0 {
				b.items = append(b.items, item)
			}
			b.mu.Unlock()
			break
		}
		b.mu.Lock()
		if i := b.indexOf(id); i >= 0 {
			incoming := ev.Item
			if b.opts.Preserve != nil {
				incoming = b.opts.Preserve(b.items[i], incoming)
			}
			b.items[i] = incoming
		}
		b.mu.Unlock()

	case Removed:
		b.mu.Lock()
		b.remove(id)
		b.mu.Unlock()
	}

	snap := b.Snapshot()
	if b.opts.OnChange != nil {
		b.opts.OnChange(snap)
	}
	return snap
}

func (b *Bridge[T]) deleted(item T) bool {
	return b.opts.Deleted != nil && b.opts.Deleted(item)
}

func (b *Bridge[T]) resolve(ctx context.Context, item T) T {
	if b.opts.Resolve == nil {
		return item
	}
	out, err := b.opts.Resolve(ctx, item)
	if err != nil {
		b.opts.Log.Warn("live item reference not resolved", zap.Error(err))
		return item
	}
	return out
}

// indexOf must be called with mu held.
func (b *Bridge[T]) indexOf(id primitive.ObjectID) int {
	for i, it := range b.items {
		if b.opts.ID(it) == id {
			return i
		}
	}
	return -1
}

// remove must be called with mu held.
func (b *Bridge[T]) remove(id primitive.ObjectID) {
	if i := b.indexOf(id); i >= 0 {
		b.items = append(b.items[:i], b.items[i+1:]...)
	}
}
