package model

import (
	"github.com/example/flowide/internal/log"
	"github.com/example/flowide/internal/observable"
	"github.com/example/flowide/pkg/id"
)

// Env carries the collaborators every entity needs. The zero Env is usable:
// callbacks wait in observable.Default until the owning goroutine calls
// observable.Flush, logs go to log.Root, ids are UUIDs and every document
// validates.
//
// Entities are not safe for concurrent use. Callbacks run on the goroutine
// that drains Scheduler, one at a time in dispatch order, so whoever drains
// must be the goroutine that mutates.
type Env struct {
	Scheduler observable.Scheduler
	Logger    log.Logger
	Recorder  observable.Recorder
	Validator Validator
	IDs       id.Generator
}

// NewObservable creates the observable for one entity.
func (e Env) NewObservable(source any) *observable.Observable {
	return observable.New(source,
		observable.WithScheduler(e.Scheduler),
		observable.WithLogger(e.Logger),
		observable.WithRecorder(e.Recorder),
	)
}

// NewID returns a fresh identifier.
func (e Env) NewID() string {
	return id.Or(e.IDs).Generate()
}

// Log returns the injected logger or log.Root.
func (e Env) Log() log.Logger {
	return log.Or(e.Logger)
}

// Ptr returns a pointer to v. Data structs use pointers to tell unset from zero.
func Ptr[T any](v T) *T {
	return &v
}
