// Package broadcast is the process-wide entity-changed signal shared by the dashboard views
// and the API's realtime change feed.
package broadcast

import (
	"sync"
)

const DefaultBuffer = 16

// Hub fans changes out to subscribers. Publish never blocks: a subscriber whose buffer is full
// misses the change, which is fine since it already has a pending signal for a reload.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	buffer int
	closed bool
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{subs: make(map[*Subscription]struct{}), buffer: buffer}
}

type Subscription struct {
	C <-chan Change

	c        chan Change
	hub      *Hub
	entities map[Entity]struct{}
	dropped  int
	once     sync.Once
}

// Subscribe registers for changes of the given entities (all entities when none is given).
func (h *Hub) Subscribe(entities ...Entity) *Subscription {
	c := make(chan Change, h.buffer)
	sub := &Subscription{C: c, c: c, hub: h}
	if len(entities) > 0 {
		sub.entities = make(map[Entity]struct{}, len(entities))
		for _, e := range entities {
			sub.entities[e] = struct{}{}
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(c)
		return sub
	}
	h.subs[sub] = struct{}{}
	return sub
}

func (s *Subscription) wants(e Entity) bool {
	if s.entities == nil {
		return true
	}
	_, ok := s.entities[e]
	return ok
}

// Dropped returns how many changes were not delivered because the buffer was full.
func (s *Subscription) Dropped() int {
	s.hub.mu.RLock()
	defer s.hub.mu.RUnlock()
	return s.dropped
}

// Close unsubscribes and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[s]; ok {
			delete(h.subs, s)
			close(s.c)
		}
	})
}

func (h *Hub) Publish(changes ...Change) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for _, ch := range changes {
		for sub := range h.subs {
			if !sub.wants(ch.Entity) {
				continue
			}
			select {
			case sub.c <- ch:
			default:
				sub.dropped++
			}
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends every subscription. Later publishes are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subs {
		close(sub.c)
		delete(h.subs, sub)
	}
}
