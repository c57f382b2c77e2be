package notification

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sink receives every published event. Deliver must not block.
type Sink interface {
	Deliver(channelKey string, ev Event)
}

type subscriber struct {
	ch chan Event
}

// Hub fans events out to in-process subscribers and to sinks. Delivery is
// best effort and at most once: a subscriber whose buffer is full misses the
// event.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscriber]struct{}
	sinks  []Sink
	buffer int
	log    *zap.Logger
}

// NewHub creates a hub. buffer is the per-subscriber queue length.
func NewHub(log *zap.Logger, buffer int, sinks ...Sink) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		subs:   make(map[string]map[*subscriber]struct{}),
		sinks:  sinks,
		buffer: buffer,
		log:    log,
	}
}

// Publish delivers ev to the channel without waiting for anyone.
func (h *Hub) Publish(_ context.Context, channelKey string, ev Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	h.mu.RLock()
	for sub := range h.subs[channelKey] {
		select {
		case sub.ch <- ev:
		default:
			h.log.Warn("subscriber buffer full, dropping event",
				zap.String("channel", channelKey),
				zap.String("requestID", ev.RequestID))
		}
	}
	h.mu.RUnlock()

	for _, sink := range h.sinks {
		sink.Deliver(channelKey, ev)
	}
}

// Subscribe returns a stream of the channel's events and a function that
// ends the subscription and closes the stream.
func (h *Hub) Subscribe(channelKey string) (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, h.buffer)}

	h.mu.Lock()
	if h.subs[channelKey] == nil {
		h.subs[channelKey] = make(map[*subscriber]struct{})
	}
	h.subs[channelKey][sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[channelKey], sub)
			if len(h.subs[channelKey]) == 0 {
				delete(h.subs, channelKey)
			}
			h.mu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}
