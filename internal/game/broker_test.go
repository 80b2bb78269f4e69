// internal/game/broker_test.go
package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerFanOut(t *testing.T) {
	b := NewBroker()
	ch1, cancel1 := b.Subscribe(4)
	ch2, cancel2 := b.Subscribe(4)
	defer cancel1()
	defer cancel2()

	require.Equal(t, 2, b.SubscriberCount())

	b.Publish(GameEvent{Type: EventTurnComplete, Turn: 7})

	ev1 := <-ch1
	ev2 := <-ch2
	assert.Equal(t, EventTurnComplete, ev1.Type)
	assert.Equal(t, 7, ev2.Turn)
}

func TestBrokerDropsWhenSubscriberFull(t *testing.T) {
	b := NewBroker()
	slow, cancel := b.Subscribe(1)
	defer cancel()

	// The second publish overflows the buffer and must not block.
	b.Publish(GameEvent{Type: EventGameStart})
	b.Publish(GameEvent{Type: EventTurnComplete})

	ev := <-slow
	assert.Equal(t, EventGameStart, ev.Type)
	select {
	case ev := <-slow:
		t.Fatalf("unexpected second event %v, buffer should have dropped it", ev.Type)
	default:
	}
}

func TestBrokerCancelRemovesSubscriber(t *testing.T) {
	b := NewBroker()
	_, cancel := b.Subscribe(1)
	require.Equal(t, 1, b.SubscriberCount())

	cancel()
	assert.Equal(t, 0, b.SubscriberCount())

	// Cancel is idempotent.
	cancel()
	assert.Equal(t, 0, b.SubscriberCount())

	// Publishing with no subscribers is a no-op.
	b.Publish(GameEvent{Type: EventVictory})
}
