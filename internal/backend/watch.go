package backend

import (
	"context"
	"sync"
)

// Broker fans change signals for a collection out to live queries. Signals
// are coalesced: a listener that is busy re-running its query sees one
// pending signal no matter how many writes landed meanwhile.
type Broker struct {
	mu        sync.Mutex
	listeners map[string]map[chan struct{}]struct{}
}

func NewBroker() *Broker {
	return &Broker{listeners: make(map[string]map[chan struct{}]struct{})}
}

func (b *Broker) Notify(collection string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.listeners[collection] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// NotifyAll signals every watched collection, for when changes may have
// been missed.
func (b *Broker) NotifyAll() {
	b.mu.Lock()
	collections := make([]string, 0, len(b.listeners))
	for c := range b.listeners {
		collections = append(collections, c)
	}
	b.mu.Unlock()

	for _, c := range collections {
		b.Notify(c)
	}
}

func (b *Broker) listen(collection string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	b.mu.Lock()
	if b.listeners[collection] == nil {
		b.listeners[collection] = make(map[chan struct{}]struct{})
	}
	b.listeners[collection][ch] = struct{}{}
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		delete(b.listeners[collection], ch)
		if len(b.listeners[collection]) == 0 {
			delete(b.listeners, collection)
		}
		b.mu.Unlock()
	}
}

// Listeners reports how many live queries watch collection.
func (b *Broker) Listeners(collection string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners[collection])
}

type FetchFunc func(ctx context.Context, q Query) ([]Document, error)

// Watch runs q once, delivers the result, and re-runs it after every change
// signal for q.Collection. The returned channel is closed when ctx is done.
func Watch(ctx context.Context, b *Broker, q Query, fetch FetchFunc) (<-chan Snapshot, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	changes, stop := b.listen(q.Collection)

	docs, err := fetch(ctx, q)
	if err != nil {
		stop()
		return nil, err
	}

	out := make(chan Snapshot, 1)
	out <- Snapshot{Documents: docs}

	go func() {
		defer close(out)
		defer stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-changes:
			}

			docs, err := fetch(ctx, q)
			if err != nil && ctx.Err() != nil {
				return
			}

			select {
			case out <- Snapshot{Documents: docs, Err: err}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
