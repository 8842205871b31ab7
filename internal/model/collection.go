package model

import (
	"errors"
	"fmt"

	"github.com/example/flowide/internal/wire"
)

// Item is what a Collection can hold: an entity whose normalized form is D.
type Item[D any] interface {
	ID() string
	SetID(string)
	HasID() bool
	Name() string
	SetName(string)
	SetData(D) []string
	Serialize() D
	SerializeToDB() any
	SetForward(func(field string, value any))
	Destroy()
}

// EventKind names what happened to a collection.
type EventKind string

const (
	EventCreate EventKind = "create"
	EventUpdate EventKind = "update"
	EventDelete EventKind = "delete"
	EventRename EventKind = "rename"
)

// CollectionEvent is handed synchronously to the owner of a collection.
type CollectionEvent struct {
	Kind EventKind
	Prop string
	Key  string
}

type slot[T any] struct {
	key  string
	item T
}

// Collection is an insertion-ordered map of exclusively owned items.
type Collection[T Item[D], D any] struct {
	prop    string
	newItem func() T
	handler func(CollectionEvent)
	byID    bool

	order []*slot[T]
	index map[string]*slot[T]
}

// NewCollection creates a collection stored under prop in its owner.
// handler may be nil.
func NewCollection[T Item[D], D any](prop string, newItem func() T, handler func(CollectionEvent)) *Collection[T, D] {
	return &Collection[T, D]{
		prop:    prop,
		newItem: newItem,
		handler: handler,
		index:   make(map[string]*slot[T]),
	}
}

// NewIDCollection creates a collection whose serialized forms are keyed by
// each item's ID instead of its collection key.
func NewIDCollection[T Item[D], D any](prop string, newItem func() T, handler func(CollectionEvent)) *Collection[T, D] {
	c := NewCollection[T, D](prop, newItem, handler)
	c.byID = true
	return c
}

// Prop returns the name of the collection in its owner.
func (c *Collection[T, D]) Prop() string { return c.prop }

func (c *Collection[T, D]) CheckExists(key string) bool {
	_, ok := c.index[key]
	return ok
}

func (c *Collection[T, D]) Item(key string) (T, bool) {
	s, ok := c.index[key]
	if !ok {
		var zero T
		return zero, false
	}
	return s.item, true
}

// Items returns the items in insertion order.
func (c *Collection[T, D]) Items() []T {
	out := make([]T, len(c.order))
	for i, s := range c.order {
		out[i] = s.item
	}
	return out
}

// Keys returns the collection keys in insertion order.
func (c *Collection[T, D]) Keys() []string {
	out := make([]string, len(c.order))
	for i, s := range c.order {
		out[i] = s.key
	}
	return out
}

func (c *Collection[T, D]) Len() int       { return len(c.order) }
func (c *Collection[T, D]) HasItems() bool { return len(c.order) > 0 }

// SetItem creates an item under key. The key becomes the item's name unless
// content carries one.
func (c *Collection[T, D]) SetItem(key string, content D) error {
	if c.CheckExists(key) {
		return &DuplicateKeyError{Prop: c.prop, Key: key}
	}
	item := c.newItem()
	item.SetName(key)
	item.SetData(content)

	s := &slot[T]{key: key, item: item}
	item.SetForward(func(string, any) { c.emit(EventUpdate, s.key) })
	c.order = append(c.order, s)
	c.index[key] = s
	c.emit(EventCreate, key)
	return nil
}

// UpdateItem applies content to the item under key. Missing keys are ignored.
func (c *Collection[T, D]) UpdateItem(key string, content D) bool {
	s, ok := c.index[key]
	if !ok {
		return false
	}
	s.item.SetData(content)
	c.emit(EventUpdate, key)
	return true
}

// DeleteItem releases and removes the item under key.
func (c *Collection[T, D]) DeleteItem(key string) bool {
	s, ok := c.index[key]
	if !ok {
		return false
	}
	s.item.Destroy()
	delete(c.index, key)
	for i, o := range c.order {
		if o == s {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.emit(EventDelete, key)
	return true
}

// RenameItem moves the item under prev to name, keeping its position and
// instance. The item's name follows, and so does its id when the id was the
// old key.
func (c *Collection[T, D]) RenameItem(prev, name string) error {
	s, ok := c.index[prev]
	if !ok {
		return fmt.Errorf("%s %q: %w", c.prop, prev, ErrNotFound)
	}
	if prev == name {
		return nil
	}
	if c.CheckExists(name) {
		return &DuplicateKeyError{Prop: c.prop, Key: name}
	}
	delete(c.index, prev)
	s.key = name
	c.index[name] = s
	if s.item.HasID() && s.item.ID() == prev {
		s.item.SetID(name)
	}
	s.item.SetName(name)
	c.emit(EventRename, name)
	return nil
}

// SetData creates an item for every entry. Entries whose key is taken are
// skipped and reported in the joined error.
func (c *Collection[T, D]) SetData(entries Entries[D]) error {
	var errs []error
	for _, e := range entries {
		if err := c.SetItem(e.Key, e.Content); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Collection[T, D]) outKey(item T) string {
	if c.byID {
		return item.ID()
	}
	return item.Name()
}

// Serialize returns the normalized items keyed by name, or by ID for id collections.
func (c *Collection[T, D]) Serialize() Entries[D] {
	out := make(Entries[D], 0, len(c.order))
	for _, s := range c.order {
		out = append(out, Entry[D]{Key: c.outKey(s.item), Content: s.item.Serialize()})
	}
	return out
}

// SerializeToDB returns the wire form of every item.
func (c *Collection[T, D]) SerializeToDB() *wire.Object {
	out := wire.NewObject()
	for _, s := range c.order {
		out.Set(c.outKey(s.item), s.item.SerializeToDB())
	}
	return out
}

// Destroy releases every item and empties the collection.
func (c *Collection[T, D]) Destroy() {
	for _, s := range c.order {
		s.item.Destroy()
	}
	c.order = nil
	c.index = make(map[string]*slot[T])
}

func (c *Collection[T, D]) emit(kind EventKind, key string) {
	if c.handler != nil {
		c.handler(CollectionEvent{Kind: kind, Prop: c.prop, Key: key})
	}
}
