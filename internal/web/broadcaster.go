package web

import (
	"sync"

	"kagami-orb/internal/location"
)

// LocationBroadcaster fans location updates out to stream subscribers. The
// most recent update is kept so a new subscriber gets an immediate sample.
type LocationBroadcaster struct {
	mu       sync.RWMutex
	subs     map[int]chan *location.Update
	nextID   int
	last     *location.Update
	haveLast bool
}

func NewLocationBroadcaster() *LocationBroadcaster {
	return &LocationBroadcaster{subs: make(map[int]chan *location.Update)}
}

func (b *LocationBroadcaster) Subscribe(buffer int) (int, <-chan *location.Update) {
	if buffer <= 0 {
		buffer = 2
	}
	ch := make(chan *location.Update, buffer)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	last := b.last
	have := b.haveLast
	b.mu.Unlock()
	if have {
		select {
		case ch <- last:
		default:
		}
	}
	return id, ch
}

func (b *LocationBroadcaster) Unsubscribe(id int) {
	b.mu.Lock()
	ch, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish delivers without blocking; a slow subscriber drops updates rather
// than stalling the producer. Sends happen under the read lock so Unsubscribe
// cannot close a channel mid-send.
func (b *LocationBroadcaster) Publish(u *location.Update) {
	if u == nil {
		return
	}
	b.mu.RLock()
	for _, ch := range b.subs {
		select {
		case ch <- u:
		default:
		}
	}
	b.mu.RUnlock()
	b.mu.Lock()
	b.last = u
	b.haveLast = true
	b.mu.Unlock()
}
