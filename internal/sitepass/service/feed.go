package service

import (
	"sync"
	"time"
)

// The source system pushed ledger changes to dashboards via storage snapshot
// listeners. Here that maps to an in-process change feed: services publish
// events, stations subscribe per topic. Delivery is best-effort — a slow
// subscriber drops events rather than blocking a ledger write; consumers that
// need completeness read the ledgers directly.

type EventTopic string

const (
	TopicRequests  EventTopic = "requests"
	TopicMovements EventTopic = "movements"
)

type Event struct {
	Topic      EventTopic
	Kind       string // e.g. "submitted", "approved", "check_in", "upload_stalled"
	RequestID  string
	Identifier string
	GateID     string
	At         time.Time
}

type Feed struct {
	mu     sync.Mutex
	subs   map[EventTopic]map[int]chan Event
	nextID int
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[EventTopic]map[int]chan Event)}
}

// Subscribe registers for a topic. The returned cancel func must be called
// when done; the channel is closed by it.
func (f *Feed) Subscribe(topic EventTopic) (<-chan Event, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.subs[topic] == nil {
		f.subs[topic] = make(map[int]chan Event)
	}
	f.nextID++
	id := f.nextID
	ch := make(chan Event, 16)
	f.subs[topic][id] = ch

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if sub, ok := f.subs[topic][id]; ok {
			delete(f.subs[topic], id)
			close(sub)
		}
	}
	return ch, cancel
}

func (f *Feed) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, ch := range f.subs[ev.Topic] {
		select {
		case ch <- ev:
		default:
			// subscriber is behind; drop
		}
	}
}
