package domain

import (
	"github.com/example/flowide/internal/model"
	"github.com/example/flowide/internal/wire"
)

// The opt helpers read a wire field, returning nil when it is absent or of
// the wrong type so that SetData leaves the entity default alone.

func optString(o *wire.Object, key string) *string {
	if s, ok := wire.String(o.Value(key)); ok {
		return &s
	}
	return nil
}

func optBool(o *wire.Object, key string) *bool {
	if b, ok := wire.Bool(o.Value(key)); ok {
		return &b
	}
	return nil
}

func optInt(o *wire.Object, key string) *int {
	if n, ok := wire.Int(o.Value(key)); ok {
		return &n
	}
	return nil
}

func optStrings(o *wire.Object, key string) []string {
	if ss, ok := wire.Strings(o.Value(key)); ok {
		return ss
	}
	return nil
}

func stringOr(p *string, def string) *string {
	if p == nil {
		return &def
	}
	return p
}

// headerFromDB reads the fields every document shares. A legacy string
// LastUpdate is the date, with the user kept in a sibling User key.
func headerFromDB(o *wire.Object) model.BaseData {
	d := model.BaseData{
		Name:      optString(o, "Label"),
		Workspace: optString(o, "workspace"),
		Version:   optString(o, "version"),
	}
	switch v := o.Value("LastUpdate").(type) {
	case string:
		user := model.NotAvailable
		if u, ok := wire.String(o.Value("User")); ok {
			user = u
		}
		d.Details = &model.Details{User: user, Date: v}
	default:
		if lu, ok := wire.AsObject(v); ok {
			d.Details = &model.Details{
				User: *stringOr(optString(lu, "user"), model.NotAvailable),
				Date: *stringOr(optString(lu, "date"), model.NotAvailable),
			}
		}
	}
	return d
}

func detailsToDB(d model.Details) *wire.Object {
	return wire.NewObject().Set("user", d.User).Set("date", d.Date)
}

type section interface {
	HasItems() bool
	SerializeToDB() *wire.Object
}

// setSection writes a collection under key unless it is empty.
func setSection(o *wire.Object, key string, s section) {
	if s.HasItems() {
		o.Set(key, s.SerializeToDB())
	}
}
