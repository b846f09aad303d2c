// Package broadcast implements a best-effort multi-producer multi-consumer
// channel for ephemeral values. "Ephemeral" means nobody cares if a previously
// sent value is dropped: there is no queuing in the central broadcaster, only
// a single shared slot holding the latest value. A receiver that falls behind
// observes the most recent value and silently misses the intermediate ones.
package broadcast

import (
	"context"
	"sync"
)

// Broadcaster fans out "something changed" wake-ups to every attached
// receiver. The shared value cell and the receiver set are guarded by one
// mutex; Send, Attach and Close may be called concurrently.
type Broadcaster[T any] struct {
	mu        sync.Mutex
	value     T
	receivers map[*Receiver[T]]struct{}
}

// New creates a broadcaster whose shared slot starts at initial.
func New[T any](initial T) *Broadcaster[T] {
	return &Broadcaster[T]{
		value:     initial,
		receivers: make(map[*Receiver[T]]struct{}),
	}
}

// Send overwrites the shared value and signals every attached receiver.
// Signaling is edge-triggered: a receiver that has not consumed the previous
// signal is not signaled twice, the two sends coalesce into one pending wake.
func (b *Broadcaster[T]) Send(value T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.value = value
	for rx := range b.receivers {
		select {
		case rx.wake <- struct{}{}:
		default: // already pending
		}
	}
}

// Attach registers a new receiver. The caller must call Close on the returned
// receiver when its stream ends, typically with defer, so the registration is
// released on normal completion, client disconnect and error alike.
func (b *Broadcaster[T]) Attach() *Receiver[T] {
	rx := &Receiver[T]{
		b:    b,
		wake: make(chan struct{}, 1),
	}
	b.mu.Lock()
	b.receivers[rx] = struct{}{}
	b.mu.Unlock()
	return rx
}

// Receiver is one subscriber's handle onto the shared slot. A send that
// happens after Attach returns is never lost, even if Recv has not been
// called yet.
type Receiver[T any] struct {
	b    *Broadcaster[T]
	wake chan struct{}
}

// Recv blocks until a signal is pending or ctx is done, clears the pending
// signal and returns the current shared value. The value is at least as new
// as the signal that woke the call; intermediate values may never be seen.
func (rx *Receiver[T]) Recv(ctx context.Context) (T, error) {
	select {
	case <-rx.wake:
		rx.b.mu.Lock()
		v := rx.b.value
		rx.b.mu.Unlock()
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Close unregisters the receiver. It never fails and is safe to call more
// than once. Recv must not be called after Close.
func (rx *Receiver[T]) Close() {
	rx.b.mu.Lock()
	delete(rx.b.receivers, rx)
	rx.b.mu.Unlock()
}
