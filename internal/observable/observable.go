// Package observable implements change notification for document entities.
//
// Subscribers are told about a change on a later turn: Dispatch hands every
// callback to a Scheduler and returns immediately. A mutator must not assume
// any subscriber has run by the time its setter returns. Callbacks run
// serially on whichever goroutine drains the scheduler, so a subscriber may
// read its source without locking as long as that goroutine owns it.
package observable

import (
	"fmt"
	"sync"

	"github.com/example/flowide/internal/log"
)

// SubscriptionID identifies a subscription for Unsubscribe.
type SubscriptionID uint64

// Event describes one field change.
type Event struct {
	Source any
	Field  string
	Value  any
}

// Callback receives change events.
type Callback func(Event)

// Recorder is notified about dispatch activity, usually for metrics.
type Recorder interface {
	Dispatched(field string, subscribers int)
	Recovered(field string)
}

// Observable keeps the subscriber set of one entity and the gate that
// decides whether setter mutations are reported at all.
type Observable struct {
	mu       sync.Mutex
	subs     map[SubscriptionID]Callback
	nextID   SubscriptionID
	disabled bool

	source   any
	sched    Scheduler
	logger   log.Logger
	recorder Recorder
}

// Option configures an Observable.
type Option func(*Observable)

// WithScheduler sets how callbacks are deferred. The default is Default.
func WithScheduler(s Scheduler) Option {
	return func(o *Observable) {
		if s != nil {
			o.sched = s
		}
	}
}

// WithLogger sets the logger used for recovered subscriber panics.
func WithLogger(l log.Logger) Option {
	return func(o *Observable) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRecorder sets a dispatch recorder.
func WithRecorder(r Recorder) Option {
	return func(o *Observable) {
		o.recorder = r
	}
}

// New creates an Observable reporting events on behalf of source.
func New(source any, opts ...Option) *Observable {
	o := &Observable{
		subs:   make(map[SubscriptionID]Callback),
		source: source,
		sched:  Default,
		logger: log.Root,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Subscribe registers cb and returns the id to unsubscribe with.
func (o *Observable) Subscribe(cb Callback) SubscriptionID {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nextID++
	o.subs[o.nextID] = cb
	return o.nextID
}

// Unsubscribe reports whether a subscription existed and was removed.
func (o *Observable) Unsubscribe(id SubscriptionID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.subs[id]; !ok {
		return false
	}
	delete(o.subs, id)
	return true
}

// Subscribers returns the number of live subscriptions.
func (o *Observable) Subscribers() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.subs)
}

// Dispatch schedules every live subscriber once with the change.
// It ignores the gate; callers that mutate fields check Enabled first.
func (o *Observable) Dispatch(field string, value any) {
	o.mu.Lock()
	cbs := make([]Callback, 0, len(o.subs))
	for _, cb := range o.subs {
		cbs = append(cbs, cb)
	}
	o.mu.Unlock()

	if o.recorder != nil {
		o.recorder.Dispatched(field, len(cbs))
	}
	ev := Event{Source: o.source, Field: field, Value: value}
	for _, cb := range cbs {
		o.sched.Schedule(func() { o.run(cb, ev) })
	}
}

func (o *Observable) run(cb Callback, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("subscriber panicked", "field", ev.Field, "err", fmt.Sprint(r))
			if o.recorder != nil {
				o.recorder.Recovered(ev.Field)
			}
		}
	}()
	cb(ev)
}

// SetEnabled opens or closes the gate.
func (o *Observable) SetEnabled(on bool) {
	o.mu.Lock()
	o.disabled = !on
	o.mu.Unlock()
}

// Enabled reports whether the gate is open.
func (o *Observable) Enabled() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return !o.disabled
}

// Destroy drops all subscribers.
func (o *Observable) Destroy() {
	o.mu.Lock()
	o.subs = make(map[SubscriptionID]Callback)
	o.mu.Unlock()
}
