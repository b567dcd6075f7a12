// Package pubsub provides a typed, in-process broadcast feed. Publishing never
// blocks: a subscriber whose buffer is full misses the message and has its
// drop counter incremented.
package pubsub

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// DefaultBuffer is the per-subscription channel capacity.
const DefaultBuffer = 100

// ErrShutdown is returned when subscribing to a feed that has been shut down.
var ErrShutdown = errors.New("feed is shut down")

// Feed broadcasts messages of type T to every subscriber.
type Feed[T any] struct {
	subscribers map[*Subscription[T]]bool
	mu          sync.RWMutex
	buffer      int
	shutdown    chan struct{}
	isShutdown  bool
}

// Subscription is one subscriber's view of a feed.
type Subscription[T any] struct {
	channel   chan T
	feed      *Feed[T]
	cancel    context.CancelFunc
	dropped   atomic.Uint64
	closeOnce sync.Once
}

// NewFeed creates a feed whose subscriptions buffer up to buffer messages.
// A non-positive buffer selects DefaultBuffer.
func NewFeed[T any](buffer int) *Feed[T] {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Feed[T]{
		subscribers: make(map[*Subscription[T]]bool),
		buffer:      buffer,
		shutdown:    make(chan struct{}),
	}
}

// Subscribe registers a subscriber. The subscription ends when ctx is
// cancelled, Unsubscribe is called, or the feed shuts down; its channel is
// then closed.
func (f *Feed[T]) Subscribe(ctx context.Context) (*Subscription[T], error) {
	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription[T]{
		channel: make(chan T, f.buffer),
		feed:    f,
		cancel:  cancel,
	}

	f.mu.Lock()
	if f.isShutdown {
		f.mu.Unlock()
		cancel()
		return nil, ErrShutdown
	}
	f.subscribers[sub] = true
	f.mu.Unlock()

	// Monitor context cancellation
	go func() {
		select {
		case <-subCtx.Done():
			sub.Unsubscribe()
		case <-f.shutdown:
		}
	}()

	return sub, nil
}

// Publish sends msg to every subscriber without blocking and returns how
// many subscribers received it.
func (f *Feed[T]) Publish(msg T) int {
	// Sends happen under the read lock so a concurrent Unsubscribe cannot
	// close a channel mid-send.
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.isShutdown {
		return 0
	}

	delivered := 0
	for sub := range f.subscribers {
		select {
		case sub.channel <- msg:
			delivered++
		default:
			sub.dropped.Add(1)
		}
	}
	return delivered
}

// SubscriberCount returns the number of live subscriptions.
func (f *Feed[T]) SubscriberCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers)
}

// Shutdown closes all subscriptions. It is idempotent.
func (f *Feed[T]) Shutdown() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.isShutdown {
		return
	}
	f.isShutdown = true
	close(f.shutdown)

	for sub := range f.subscribers {
		sub.cancel()
		sub.close()
		delete(f.subscribers, sub)
	}
}

// Channel returns the subscription's message channel
func (s *Subscription[T]) Channel() <-chan T {
	return s.channel
}

// Dropped returns how many messages this subscriber missed because its
// buffer was full.
func (s *Subscription[T]) Dropped() uint64 {
	return s.dropped.Load()
}

// Unsubscribe removes the subscription and closes its channel.
func (s *Subscription[T]) Unsubscribe() {
	s.cancel()

	s.feed.mu.Lock()
	defer s.feed.mu.Unlock()

	delete(s.feed.subscribers, s)
	s.close()
}

// close closes the subscription channel safely (idempotent)
func (s *Subscription[T]) close() {
	s.closeOnce.Do(func() {
		close(s.channel)
	})
}
