// internal/game/broker.go
package game

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// Broker fans game events out to subscriber channels. Publishing never
// blocks: a subscriber whose channel is full has the event dropped, so a
// slow collaborator can stall itself but never the game loop.
type Broker struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan GameEvent
}

// NewBroker creates an empty event broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[int]chan GameEvent)}
}

// Subscribe registers a new subscriber with the given channel buffer and
// returns the receive channel plus a cancel function. Cancelling closes
// the channel; the subscriber must not receive after cancelling.
func (b *Broker) Subscribe(buffer int) (<-chan GameEvent, func()) {
	if buffer <= 0 {
		buffer = 32
	}
	ch := make(chan GameEvent, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber without blocking. Logs
// when a subscriber's buffer is full and the event is dropped.
func (b *Broker) Publish(ev GameEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			log.WithFields(log.Fields{
				"subscriber": id,
				"event":      ev.Type,
				"game":       ev.GameID,
			}).Warn("event broker: subscriber buffer full, dropping event")
		}
	}
}

// SubscriberCount returns the number of live subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
