package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

// Topic names a signal on the bus.
type Topic string

const (
	// RefreshRequested asks the refresh state machine to synchronize again.
	RefreshRequested Topic = "refresh.requested"
	// ConfigurationChanged is published after the endpoint or filters were changed.
	ConfigurationChanged Topic = "configuration.changed"
)

// Message is a single signal delivered to subscribers.
type Message struct {
	ID        uuid.UUID
	Topic     Topic
	Timestamp time.Time
}

type subscriber struct {
	id     uuid.UUID
	topics map[Topic]struct{}
	ch     chan Message
}

// Bus is a process-wide publish/subscribe hub for signals without payload.
// Publish never blocks: a subscriber that has not consumed its pending
// message coalesces further ones.
type Bus struct {
	mu     sync.Mutex
	subs   map[uuid.UUID]*subscriber
	closed bool
	logger hclog.Logger
}

// NewBus creates an empty Bus.
func NewBus(logger hclog.Logger) *Bus {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Bus{
		subs:   make(map[uuid.UUID]*subscriber),
		logger: logger.Named("events"),
	}
}

// Subscribe returns a channel receiving messages for the given topics and a
// function that removes the subscription and closes the channel.
func (b *Bus) Subscribe(topics ...Topic) (<-chan Message, func()) {
	sub := &subscriber{
		id:     uuid.New(),
		topics: make(map[Topic]struct{}, len(topics)),
		ch:     make(chan Message, 1),
	}
	for _, t := range topics {
		sub.topics[t] = struct{}{}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.ch)
		return sub.ch, func() {}
	}
	b.subs[sub.id] = sub

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[sub.id]; ok {
				delete(b.subs, sub.id)
				close(sub.ch)
			}
		})
	}
}

// Publish delivers a new message for topic to every interested subscriber and
// returns it. Publishing on a closed bus is a no-op.
func (b *Bus) Publish(topic Topic) Message {
	msg := Message{ID: uuid.New(), Topic: topic, Timestamp: time.Now().UTC()}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		b.logger.Debug("publish on closed bus", "topic", topic)
		return msg
	}

	delivered := 0
	for _, sub := range b.subs {
		if _, ok := sub.topics[topic]; !ok {
			continue
		}
		select {
		case sub.ch <- msg:
			delivered++
		default:
			// a signal is already pending for this subscriber
		}
	}
	b.logger.Debug("published", "topic", topic, "id", msg.ID, "delivered", delivered)
	return msg
}

// Close closes every subscriber channel. Later subscriptions get a closed channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
	}
}
