package pubsub

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type change struct {
	TxID  uint64
	Label string
}

// TestBasicFeed tests basic publish/subscribe functionality
func TestBasicFeed(t *testing.T) {
	feed := NewFeed[change](0)
	defer feed.Shutdown()

	sub, err := feed.Subscribe(context.Background())
	require.NoError(t, err)

	delivered := feed.Publish(change{TxID: 1, Label: "dragged slider"})
	assert.Equal(t, 1, delivered)

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, change{TxID: 1, Label: "dragged slider"}, msg)
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for message")
	}

	sub.Unsubscribe()
	assert.Equal(t, 0, feed.SubscriberCount())
}

// TestMultipleSubscribers tests that every subscriber receives every message
func TestMultipleSubscribers(t *testing.T) {
	feed := NewFeed[change](0)
	defer feed.Shutdown()

	const numSubscribers = 5
	subs := make([]*Subscription[change], numSubscribers)
	for i := range subs {
		sub, err := feed.Subscribe(context.Background())
		require.NoError(t, err)
		subs[i] = sub
	}

	assert.Equal(t, numSubscribers, feed.Publish(change{TxID: 7}))

	for i, sub := range subs {
		select {
		case msg := <-sub.Channel():
			assert.Equal(t, uint64(7), msg.TxID, "subscriber %d", i)
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d timed out", i)
		}
	}
}

// TestContextCancellation tests that cancelling the context ends the subscription
func TestContextCancellation(t *testing.T) {
	feed := NewFeed[change](0)
	defer feed.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := feed.Subscribe(ctx)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-sub.Channel():
		assert.False(t, ok, "channel should be closed after cancel")
	case <-time.After(time.Second):
		t.Fatal("channel was not closed after context cancellation")
	}
	assert.Eventually(t, func() bool { return feed.SubscriberCount() == 0 }, time.Second, 10*time.Millisecond)
}

// TestSlowSubscriberDrops tests that a full buffer drops instead of blocking
func TestSlowSubscriberDrops(t *testing.T) {
	feed := NewFeed[change](2)
	defer feed.Shutdown()

	sub, err := feed.Subscribe(context.Background())
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		feed.Publish(change{TxID: uint64(i)})
	}

	assert.Equal(t, uint64(3), sub.Dropped())
	assert.Equal(t, uint64(1), (<-sub.Channel()).TxID)
	assert.Equal(t, uint64(2), (<-sub.Channel()).TxID)
}

// TestConcurrentPublishAndUnsubscribe exercises publishing while subscribers come and go
func TestConcurrentPublishAndUnsubscribe(t *testing.T) {
	feed := NewFeed[change](4)
	defer feed.Shutdown()

	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				feed.Publish(change{TxID: uint64(i)})
			}
		}()
	}
	for s := 0; s < 4; s++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				sub, err := feed.Subscribe(context.Background())
				if err != nil {
					return
				}
				sub.Unsubscribe()
			}
		}()
	}
	wg.Wait()
}

// TestShutdown tests that shutdown closes subscriptions and rejects new ones
func TestShutdown(t *testing.T) {
	feed := NewFeed[change](0)

	sub, err := feed.Subscribe(context.Background())
	require.NoError(t, err)

	feed.Shutdown()
	feed.Shutdown()

	_, ok := <-sub.Channel()
	assert.False(t, ok)

	_, err = feed.Subscribe(context.Background())
	assert.ErrorIs(t, err, ErrShutdown)
	assert.Equal(t, 0, feed.Publish(change{}))

	sub.Unsubscribe()
}
