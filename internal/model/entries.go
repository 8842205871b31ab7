package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/example/flowide/internal/wire"
)

// Entry is one keyed item of a normalized collection.
type Entry[D any] struct {
	Key     string
	Content D
}

// Entries is the normalized form of a collection: a JSON object whose key
// order is kept.
type Entries[D any] []Entry[D]

// Get returns the content under key.
func (e Entries[D]) Get(key string) (D, bool) {
	for _, en := range e {
		if en.Key == key {
			return en.Content, true
		}
	}
	var zero D
	return zero, false
}

// Keys returns the keys in order.
func (e Entries[D]) Keys() []string {
	keys := make([]string, len(e))
	for i, en := range e {
		keys[i] = en.Key
	}
	return keys
}

func (e Entries[D]) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, en := range e {
		if i > 0 {
			b.WriteByte(',')
		}
		kb, err := json.Marshal(en.Key)
		if err != nil {
			return nil, err
		}
		b.Write(kb)
		b.WriteByte(':')
		vb, err := json.Marshal(en.Content)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", en.Key, err)
		}
		b.Write(vb)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func (e *Entries[D]) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*e = nil
		return nil
	}
	obj, err := wire.ParseObject(data)
	if err != nil {
		return err
	}
	out := make(Entries[D], 0, obj.Len())
	var rerr error
	obj.Range(func(key string, v any) bool {
		raw, err := json.Marshal(v)
		if err != nil {
			rerr = err
			return false
		}
		var d D
		if err := json.Unmarshal(raw, &d); err != nil {
			rerr = fmt.Errorf("entry %q: %w", key, err)
			return false
		}
		out = append(out, Entry[D]{Key: key, Content: d})
		return true
	})
	if rerr != nil {
		return rerr
	}
	*e = out
	return nil
}

// EntriesFromDB maps every entry of a wire object through decode. decode
// gets the outer key and the entry's content; content that is not an object
// is passed as an empty object. A value that is not an object yields nil.
func EntriesFromDB[D any](v any, decode func(key string, content *wire.Object) D) Entries[D] {
	obj, ok := wire.AsObject(v)
	if !ok {
		return nil
	}
	out := make(Entries[D], 0, obj.Len())
	obj.Range(func(key string, val any) bool {
		content, ok := wire.AsObject(val)
		if !ok {
			content = wire.NewObject()
		}
		out = append(out, Entry[D]{Key: key, Content: decode(key, content)})
		return true
	})
	return out
}
