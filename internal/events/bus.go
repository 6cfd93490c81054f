package events

import (
	"log"
	"sync"
)

// Event names form a closed set. SessionChanged accompanies every
// session-specific event, so consumers that only care about "something about
// sessions changed" subscribe to it alone.
const (
	SessionCreated          = "sessionCreated"
	SessionUpdated          = "sessionUpdated"
	SessionCompleted        = "sessionCompleted"
	SessionCancelled        = "sessionCancelled"
	SessionDeleted          = "sessionDeleted"
	SessionChanged          = "sessionChanged"
	TaskListUpdate          = "taskListUpdate"
	StudentUpdated          = "studentUpdated"
	NoteAdded               = "noteAdded"
	NoteUpdated             = "noteUpdated"
	NoteDeleted             = "noteDeleted"
	BalanceTransactionAdded = "balanceTransactionAdded"
)

type Handler func(event string, detail any)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is an in-process observer. It is passed by reference to every component
// that publishes or subscribes, so independent instances never cross-talk.
type Bus struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[string][]subscription
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string][]subscription)}
}

// Subscribe registers a handler for one event and returns a function that
// removes exactly that registration. Handlers fire in subscription order.
func (b *Bus) Subscribe(event string, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs[event] = append(b.subs[event], subscription{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[event]
		for i, sub := range subs {
			if sub.id == id {
				b.subs[event] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
		if len(b.subs[event]) == 0 {
			delete(b.subs, event)
		}
	}
}

// Publish delivers the event synchronously to all current subscribers, in
// subscription order, before returning. A panicking handler must not stop
// delivery to the rest.
func (b *Bus) Publish(event string, detail any) {
	b.mu.Lock()
	subs := make([]subscription, len(b.subs[event]))
	copy(subs, b.subs[event])
	b.mu.Unlock()

	for _, sub := range subs {
		invoke(event, detail, sub.handler)
	}
}

func invoke(event string, detail any, handler Handler) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("events: handler for %s panicked: %v", event, r)
		}
	}()
	handler(event, detail)
}
