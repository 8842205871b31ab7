package observable

import "sync"

// Scheduler defers a callback to a later point in time.
type Scheduler interface {
	Schedule(func())
}

// Queue holds callbacks until Drain is called, the way an event loop holds
// timers until the current turn ends. It is safe for concurrent use.
type Queue struct {
	mu      sync.Mutex
	pending []func()
}

func (q *Queue) Schedule(fn func()) {
	q.mu.Lock()
	q.pending = append(q.pending, fn)
	q.mu.Unlock()
}

// Len returns the number of callbacks waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Drain runs callbacks until none are left, including ones scheduled while
// draining, and returns how many ran.
func (q *Queue) Drain() int {
	n := 0
	for {
		q.mu.Lock()
		batch := q.pending
		q.pending = nil
		q.mu.Unlock()
		if len(batch) == 0 {
			return n
		}
		for _, fn := range batch {
			fn()
			n++
		}
	}
}

// Default is the queue observables use when no scheduler is given. Like a
// single event loop it belongs to one goroutine: the goroutine that mutates
// entities calls Flush to run their subscribers. Owners that mutate from
// several goroutines give each one its own Queue.
var Default = &Queue{}

// Flush drains Default and returns how many callbacks ran.
func Flush() int { return Default.Drain() }
