package notifier

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_SubscribeUnsubscribe(t *testing.T) {
	n := New()

	ch := n.Subscribe()
	require.NotNil(t, ch)
	assert.Equal(t, 1, n.Len())

	n.Unsubscribe(ch)
	assert.Equal(t, 0, n.Len())

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed")

	// second unsubscribe is a no-op
	assert.NotPanics(t, func() { n.Unsubscribe(ch) })
}

func TestNotifier_Broadcast(t *testing.T) {
	n := New()
	a := n.Subscribe()
	b := n.Subscribe()
	defer n.Unsubscribe(a)
	defer n.Unsubscribe(b)

	n.Broadcast(Event{Op: OpAdded, ID: "courses"})

	for _, ch := range []chan Event{a, b} {
		select {
		case ev := <-ch:
			assert.Equal(t, Event{Op: OpAdded, ID: "courses"}, ev)
		case <-time.After(time.Second):
			t.Fatal("listener did not receive event")
		}
	}
}

func TestNotifier_BroadcastDoesNotBlock(t *testing.T) {
	n := New()
	ch := n.Subscribe()
	defer n.Unsubscribe(ch)

	done := make(chan struct{})
	go func() {
		for i := 0; i < listenerBuffer*4; i++ {
			n.Broadcast(Event{Op: OpRemoved, ID: "rooms"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a full listener")
	}
	assert.Len(t, ch, listenerBuffer)
}

func TestNotifier_Concurrent(t *testing.T) {
	n := New()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ch := n.Subscribe()
			n.Unsubscribe(ch)
		}()
		go func() {
			defer wg.Done()
			n.Broadcast(Event{Op: OpAdded, ID: "x"})
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, n.Len())
}
