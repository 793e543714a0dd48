package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enkiluv/scl-core-experiment/internal/types"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch, cancel := bus.Subscribe(8)
	defer cancel()

	runID := types.NewID()
	bus.Publish(Event{Type: EventRunStarted, RunID: runID})

	select {
	case ev := <-ch:
		assert.Equal(t, EventRunStarted, ev.Type)
		assert.Equal(t, runID, ev.RunID)
		assert.False(t, ev.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBus_MultipleSubscribers(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch1, cancel1 := bus.Subscribe(8)
	defer cancel1()
	ch2, cancel2 := bus.Subscribe(8)
	defer cancel2()

	bus.Publish(Event{Type: EventStageCompleted})

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			assert.Equal(t, EventStageCompleted, ev.Type)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestBus_PublishNeverBlocksOnFullBuffer(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch, cancel := bus.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		// Second publish would block a naive implementation.
		bus.Publish(Event{Type: EventStageCompleted})
		bus.Publish(Event{Type: EventStageCompleted})
		bus.Publish(Event{Type: EventStageCompleted})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber buffer")
	}

	// The first event made it through; the rest were dropped.
	ev := <-ch
	assert.Equal(t, EventStageCompleted, ev.Type)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch, cancel := bus.Subscribe(8)
	cancel()

	_, open := <-ch
	assert.False(t, open)

	// Publishing after unsubscribe must not panic.
	bus.Publish(Event{Type: EventRunFinished})
}

func TestBus_Close(t *testing.T) {
	bus := NewBus()

	ch, _ := bus.Subscribe(8)
	bus.Close()

	_, open := <-ch
	assert.False(t, open)

	// Idempotent close, and publish after close is a no-op.
	bus.Close()
	bus.Publish(Event{Type: EventRunFinished})

	chAfter, cancelAfter := bus.Subscribe(8)
	defer cancelAfter()
	_, open = <-chAfter
	require.False(t, open)
}
