package domain

import (
	"github.com/example/flowide/internal/model"
	"github.com/example/flowide/internal/wire"
)

// LayerData is the normalized form of a Layer.
type LayerData struct {
	model.BaseData
	Enabled *bool `json:"enabled,omitempty"`
}

// Layer is a named group of node instances that can be switched on and off.
// Flows store layers under numeric ids and edit them by name.
type Layer struct {
	model.Base
	enabled bool
}

func NewLayer(env model.Env) *Layer {
	l := &Layer{enabled: true}
	l.Init(env, l, "enabled")
	return l
}

func (l *Layer) Enabled() bool { return l.enabled }

func (l *Layer) SetEnabled(v bool) {
	l.enabled = v
	l.Changed("enabled", v)
}

func (l *Layer) SetData(d LayerData) []string {
	applied := l.SetBaseData(d.BaseData)
	if d.Enabled != nil {
		l.SetEnabled(*d.Enabled)
		applied = append(applied, "enabled")
	}
	return applied
}

func (l *Layer) Serialize() LayerData {
	return LayerData{
		BaseData: model.BaseData{ID: model.Ptr(l.ID()), Name: model.Ptr(l.Name())},
		Enabled:  model.Ptr(l.enabled),
	}
}

func (l *Layer) SerializeToDB() any {
	return wire.NewObject().Set("name", l.Name()).Set("on", l.enabled)
}

// LayerFromDB reads {name, on} keyed by the layer id. Layers are on unless
// stored otherwise.
func LayerFromDB(key string, content *wire.Object) LayerData {
	on := optBool(content, "on")
	if on == nil {
		on = model.Ptr(true)
	}
	return LayerData{
		BaseData: model.BaseData{ID: model.Ptr(key), Name: optString(content, "name")},
		Enabled:  on,
	}
}

// LayersFromDB reads a Layers section.
func LayersFromDB(v any) model.Entries[LayerData] {
	return model.EntriesFromDB(v, LayerFromDB)
}
