package observable

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/flowide/internal/log"
)

type countingRecorder struct {
	mu         sync.Mutex
	dispatched map[string]int
	recovered  map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{dispatched: map[string]int{}, recovered: map[string]int{}}
}

func (r *countingRecorder) Dispatched(field string, n int) {
	r.mu.Lock()
	r.dispatched[field] += n
	r.mu.Unlock()
}

func (r *countingRecorder) Recovered(field string) {
	r.mu.Lock()
	r.recovered[field]++
	r.mu.Unlock()
}

func TestDispatchIsDeferred(t *testing.T) {
	q := &Queue{}
	o := New("src", WithScheduler(q))

	var got []Event
	o.Subscribe(func(ev Event) { got = append(got, ev) })

	o.Dispatch("name", "n1")
	assert.Empty(t, got, "subscriber ran before the dispatching call returned")
	assert.Equal(t, 1, q.Len())

	assert.Equal(t, 1, q.Drain())
	require.Len(t, got, 1)
	assert.Equal(t, Event{Source: "src", Field: "name", Value: "n1"}, got[0])
}

func TestEverySubscriberOncePerDispatch(t *testing.T) {
	q := &Queue{}
	o := New(nil, WithScheduler(q))

	var seen []int
	for i := 0; i < 3; i++ {
		i := i
		o.Subscribe(func(Event) { seen = append(seen, i) })
	}
	o.Dispatch("x", 1)
	q.Drain()

	sort.Ints(seen)
	assert.Equal(t, []int{0, 1, 2}, seen)
}

func TestUnsubscribe(t *testing.T) {
	q := &Queue{}
	o := New(nil, WithScheduler(q))

	calls := 0
	id := o.Subscribe(func(Event) { calls++ })
	assert.Equal(t, 1, o.Subscribers())

	assert.True(t, o.Unsubscribe(id))
	assert.False(t, o.Unsubscribe(id))
	assert.False(t, o.Unsubscribe(SubscriptionID(99)))

	o.Dispatch("x", 1)
	q.Drain()
	assert.Zero(t, calls)
}

func TestPanickingSubscriberIsIsolated(t *testing.T) {
	q := &Queue{}
	rec := newCountingRecorder()
	o := New(nil, WithScheduler(q), WithRecorder(rec), WithLogger(&log.Testing{TB: t}))

	ok := 0
	o.Subscribe(func(Event) { panic("boom") })
	o.Subscribe(func(Event) { ok++ })

	assert.NotPanics(t, func() {
		o.Dispatch("value", 2)
		q.Drain()
	})
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, rec.recovered["value"])
	assert.Equal(t, 2, rec.dispatched["value"])
}

func TestDefaultQueueRunsOnFlush(t *testing.T) {
	Flush()
	o := New("src")
	var got []any
	o.Subscribe(func(ev Event) { got = append(got, ev.Value) })
	o.Dispatch("x", 1)
	o.Dispatch("x", 2)

	assert.Empty(t, got, "nothing runs before Flush")
	assert.Equal(t, 2, Default.Len())
	assert.Equal(t, 2, Flush())
	assert.Equal(t, []any{1, 2}, got, "dispatch order")
}

func TestGateAndDestroy(t *testing.T) {
	o := New(nil)
	assert.True(t, o.Enabled())
	o.SetEnabled(false)
	assert.False(t, o.Enabled())
	o.SetEnabled(true)
	assert.True(t, o.Enabled())

	o.Subscribe(func(Event) {})
	o.Destroy()
	assert.Zero(t, o.Subscribers())
}

func TestQueueDrainsNestedSchedules(t *testing.T) {
	q := &Queue{}
	ran := 0
	q.Schedule(func() {
		ran++
		q.Schedule(func() { ran++ })
	})
	assert.Equal(t, 2, q.Drain())
	assert.Equal(t, 2, ran)
	assert.Zero(t, q.Len())
}
