// Package notify fans document change events out to watchers.
package notify

import (
	"path"
	"sync"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/example/flowide/internal/log"
	"github.com/example/flowide/internal/observability"
	"github.com/example/flowide/internal/wire"
)

// Kind is what happened to a document.
type Kind int

const (
	// Changed is a local, unsaved change of one field.
	Changed Kind = iota + 1
	Created
	Updated
	Deleted
)

func (k Kind) String() string {
	switch k {
	case Changed:
		return "changed"
	case Created:
		return "created"
	case Updated:
		return "updated"
	case Deleted:
		return "deleted"
	}
	return "unknown"
}

// Event describes a change of the document at Workspace/Scope/Name.
type Event struct {
	Kind      Kind
	Workspace string
	Scope     string
	Name      string
	// Field is set for Changed events.
	Field string
	// Doc is the wire document after the change. Nil for Deleted.
	Doc       *structpb.Struct
	Revision  int64
	Timestamp *timestamppb.Timestamp
}

// NewEvent builds an event carrying doc.
func NewEvent(kind Kind, workspace, scope, name string, doc *wire.Object) (*Event, error) {
	ev := &Event{Kind: kind, Workspace: workspace, Scope: scope, Name: name}
	if doc != nil {
		s, err := wire.ToStruct(doc)
		if err != nil {
			return nil, err
		}
		ev.Doc = s
	}
	return ev, nil
}

// Document returns the carried document, or nil when there is none. Key
// order is sorted and numbers are float64.
func (e *Event) Document() *wire.Object {
	if e.Doc == nil {
		return nil
	}
	return wire.FromStruct(e.Doc)
}

// URL returns workspace/scope/name.
func (e *Event) URL() string {
	return path.Join(e.Workspace, e.Scope, e.Name)
}

// Filter selects events. Empty fields match everything.
type Filter struct {
	Workspace string
	Scope     string
	Name      string
	Kinds     []Kind
	Fields    []string
}

// Subscriber represents a single subscription to document events.
type Subscriber struct {
	Filter
	kinds  map[Kind]struct{}
	fields map[string]struct{}
	Events chan *Event
	Done   chan struct{}
}

// Broadcaster manages document event subscriptions and broadcasting.
// Slow subscribers lose events rather than block the publisher.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[*Subscriber]struct{}
	buffer      int
	metrics     *observability.Metrics
	logger      log.Logger
}

type Option func(*Broadcaster)

// WithBuffer sets the channel size of new subscribers.
func WithBuffer(n int) Option {
	return func(b *Broadcaster) { b.buffer = n }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(b *Broadcaster) { b.metrics = m }
}

func WithLogger(l log.Logger) Option {
	return func(b *Broadcaster) { b.logger = log.Or(l) }
}

// NewBroadcaster creates a new event broadcaster.
func NewBroadcaster(opts ...Option) *Broadcaster {
	b := &Broadcaster{
		subscribers: make(map[*Subscriber]struct{}),
		buffer:      100,
		logger:      log.Root,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a subscriber for events matching f.
func (b *Broadcaster) Subscribe(f Filter) *Subscriber {
	sub := &Subscriber{
		Filter: f,
		Events: make(chan *Event, b.buffer),
		Done:   make(chan struct{}),
	}
	if len(f.Kinds) > 0 {
		sub.kinds = make(map[Kind]struct{}, len(f.Kinds))
		for _, k := range f.Kinds {
			sub.kinds[k] = struct{}{}
		}
	}
	if len(f.Fields) > 0 {
		sub.fields = make(map[string]struct{}, len(f.Fields))
		for _, field := range f.Fields {
			sub.fields[field] = struct{}{}
		}
	}

	b.mu.Lock()
	b.subscribers[sub] = struct{}{}
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.NotifySubscribers().Inc()
	}
	return sub
}

// Unsubscribe removes a subscription and closes its Done channel.
// Unsubscribing twice is a no-op.
func (b *Broadcaster) Unsubscribe(sub *Subscriber) {
	b.mu.Lock()
	_, ok := b.subscribers[sub]
	delete(b.subscribers, sub)
	b.mu.Unlock()

	if !ok {
		return
	}
	close(sub.Done)
	if b.metrics != nil {
		b.metrics.NotifySubscribers().Dec()
	}
}

// Publish delivers ev to every matching subscriber and returns how many
// received it.
func (b *Broadcaster) Publish(ev *Event) int {
	if ev.Timestamp == nil {
		ev.Timestamp = timestamppb.New(time.Now())
	}

	// Copy subscriber list to avoid holding lock during send
	b.mu.RLock()
	subList := make([]*Subscriber, 0, len(b.subscribers))
	for sub := range b.subscribers {
		subList = append(subList, sub)
	}
	b.mu.RUnlock()

	if b.metrics != nil {
		b.metrics.NotifyPublished().Inc()
	}
	delivered := 0
	for _, sub := range subList {
		if !sub.matches(ev) {
			continue
		}
		select {
		case sub.Events <- ev:
			delivered++
		default:
			b.logger.Debug("dropped event", "url", ev.URL(), "kind", ev.Kind)
			if b.metrics != nil {
				b.metrics.NotifyDropped().Inc()
			}
		}
	}
	if b.metrics != nil {
		b.metrics.NotifyDelivered().Add(int64(delivered))
	}
	return delivered
}

func (s *Subscriber) matches(ev *Event) bool {
	if s.Workspace != "" && s.Workspace != ev.Workspace {
		return false
	}
	if s.Scope != "" && s.Scope != ev.Scope {
		return false
	}
	if s.Name != "" && s.Name != ev.Name {
		return false
	}
	if s.kinds != nil {
		if _, ok := s.kinds[ev.Kind]; !ok {
			return false
		}
	}
	if s.fields != nil && ev.Kind == Changed {
		if _, ok := s.fields[ev.Field]; !ok {
			return false
		}
	}
	return true
}

// SubscriberCount returns the number of subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
