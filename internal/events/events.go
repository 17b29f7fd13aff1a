// Package events carries change notifications from the owning component to
// anything that renders or reacts to its state.
//
// Publish is synchronous: when it returns every handler has run, so a
// component can rely on dependents having caught up before it continues.
package events

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/domain"
)

// Type names a kind of change.
type Type string

const (
	GraphReset         Type = "graph.reset"
	GraphLoaded        Type = "graph.loaded"
	GraphLoadFailed    Type = "graph.load_failed"
	NodeAdded          Type = "node.added"
	NodeUpdated        Type = "node.updated"
	NodeRemoved        Type = "node.removed"
	EdgeAdded          Type = "edge.added"
	EdgeRemoved        Type = "edge.removed"
	TopicsChanged      Type = "topics.changed"
	TopicsFailed       Type = "topics.failed"
	ActiveTopicChanged Type = "topics.active_changed"
	SelectionChanged   Type = "selection.changed"
	TranscriptChanged  Type = "chat.transcript_changed"
	EditSessionChanged Type = "edit.changed"
)

// Event describes one change. Only the fields relevant to Type are set.
type Event struct {
	Type      Type
	TopicID   string
	NodeID    string
	Node      *domain.Node
	Edge      *domain.Edge
	Count     int
	Err       error
	Timestamp time.Time
}

// Handler reacts to an event.
type Handler func(Event)

type subscription struct {
	id      uint64
	types   map[Type]struct{} // nil means every type
	handler Handler
}

// Bus is an in-memory, synchronous publish/subscribe hub.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID uint64
	logger *zap.Logger
}

// NewBus creates a new event bus instance
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{logger: logger}
}

// Subscribe registers handler for the given types, or for every type when
// none are given. The returned func removes the subscription.
func (b *Bus) Subscribe(handler Handler, types ...Type) (unsubscribe func()) {
	var set map[Type]struct{}
	if len(types) > 0 {
		set = make(map[Type]struct{}, len(types))
		for _, t := range types {
			set[t] = struct{}{}
		}
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, types: set, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish delivers ev to every matching handler in subscription order.
// A panicking handler is logged and does not stop delivery.
func (b *Bus) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		if s.types != nil {
			if _, ok := s.types[ev.Type]; !ok {
				continue
			}
		}
		b.deliver(s.handler, ev)
	}
}

func (b *Bus) deliver(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Event handler panicked",
				zap.String("event_type", string(ev.Type)),
				zap.Any("panic", r))
		}
	}()
	h(ev)
}

// HandlerCount returns the number of live subscriptions.
func (b *Bus) HandlerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
