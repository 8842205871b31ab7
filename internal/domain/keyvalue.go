package domain

import (
	"github.com/example/flowide/internal/model"
	"github.com/example/flowide/internal/wire"
)

// KeyValueData is the normalized form of commands and environment variables.
type KeyValueData struct {
	model.BaseData
	Value       *string `json:"value,omitempty"`
	Description *string `json:"description,omitempty"`
}

type keyValue struct {
	model.Base
	value       string
	description string
}

func (kv *keyValue) Value() string { return kv.value }

func (kv *keyValue) SetValue(v string) {
	kv.value = v
	kv.Changed("value", v)
}

func (kv *keyValue) Description() string { return kv.description }

func (kv *keyValue) SetDescription(v string) {
	kv.description = v
	kv.Changed("description", v)
}

func (kv *keyValue) SetData(d KeyValueData) []string {
	applied := kv.SetBaseData(d.BaseData)
	if d.Value != nil {
		kv.SetValue(*d.Value)
		applied = append(applied, "value")
	}
	if d.Description != nil {
		kv.SetDescription(*d.Description)
		applied = append(applied, "description")
	}
	return applied
}

func (kv *keyValue) Serialize() KeyValueData {
	d := KeyValueData{BaseData: kv.Identity(), Value: model.Ptr(kv.value)}
	if kv.description != "" {
		d.Description = model.Ptr(kv.description)
	}
	return d
}

// KeyValueFromDB reads {Value, Description}.
func KeyValueFromDB(key string, content *wire.Object) KeyValueData {
	return KeyValueData{
		BaseData:    model.BaseData{Name: model.Ptr(key)},
		Value:       optString(content, "Value"),
		Description: optString(content, "Description"),
	}
}

// Command is a command line of a node.
type Command struct{ keyValue }

func NewCommand(env model.Env) *Command {
	c := &Command{}
	c.Init(env, c, "value", "description")
	return c
}

func (c *Command) SerializeToDB() any {
	return wire.NewObject().Set("Value", c.value).Set("Description", c.description)
}

// EnvVar is an environment variable of a node.
type EnvVar struct{ keyValue }

func NewEnvVar(env model.Env) *EnvVar {
	e := &EnvVar{}
	e.Init(env, e, "value", "description")
	return e
}

// SerializeToDB writes Description only when there is one.
func (e *EnvVar) SerializeToDB() any {
	o := wire.NewObject().Set("Value", e.value)
	return o.SetIf(e.description != "", "Description", e.description)
}

func NewCommands(env model.Env, handler func(model.CollectionEvent)) *model.Collection[*Command, KeyValueData] {
	return model.NewCollection[*Command, KeyValueData]("commands",
		func() *Command { return NewCommand(env) }, handler)
}

func NewEnvVars(env model.Env, handler func(model.CollectionEvent)) *model.Collection[*EnvVar, KeyValueData] {
	return model.NewCollection[*EnvVar, KeyValueData]("envVars",
		func() *EnvVar { return NewEnvVar(env) }, handler)
}

// KeyValuesFromDB reads a CmdLine or EnvVar section.
func KeyValuesFromDB(v any) model.Entries[KeyValueData] {
	return model.EntriesFromDB(v, KeyValueFromDB)
}
