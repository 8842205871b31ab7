package domain

import (
	"github.com/example/flowide/internal/model"
	"github.com/example/flowide/internal/wire"
)

// DefaultParameterType is the type of parameters that do not declare one.
const DefaultParameterType = "any"

// ParameterData is the normalized form of a Parameter. Value holds whatever
// the document stored: usually a string, sometimes a number or an object.
// ValueSet tells a stored null from an absent Value.
type ParameterData struct {
	model.BaseData
	Value       any     `json:"value,omitempty"`
	ValueSet    bool    `json:"-"`
	Type        *string `json:"type,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Parameter is a named, typed value of a flow, node or sub-flow.
type Parameter struct {
	model.Base
	value       any
	typ         string
	description string
}

func NewParameter(env model.Env) *Parameter {
	p := &Parameter{value: "", typ: DefaultParameterType}
	p.Init(env, p, "value", "type", "description")
	return p
}

func (p *Parameter) Value() any { return p.value }

func (p *Parameter) SetValue(v any) {
	p.value = v
	p.Changed("value", v)
}

func (p *Parameter) Type() string { return p.typ }

func (p *Parameter) SetType(v string) {
	p.typ = v
	p.Changed("type", v)
}

func (p *Parameter) Description() string { return p.description }

func (p *Parameter) SetDescription(v string) {
	p.description = v
	p.Changed("description", v)
}

func (p *Parameter) SetData(d ParameterData) []string {
	applied := p.SetBaseData(d.BaseData)
	if d.Value != nil || d.ValueSet {
		p.SetValue(d.Value)
		applied = append(applied, "value")
	}
	if d.Type != nil {
		p.SetType(*d.Type)
		applied = append(applied, "type")
	}
	if d.Description != nil {
		p.SetDescription(*d.Description)
		applied = append(applied, "description")
	}
	return applied
}

func (p *Parameter) Serialize() ParameterData {
	return ParameterData{
		BaseData:    p.Identity(),
		Value:       p.value,
		ValueSet:    true,
		Type:        model.Ptr(p.typ),
		Description: model.Ptr(p.description),
	}
}

func (p *Parameter) SerializeToDB() any {
	return wire.NewObject().
		Set("Value", p.value).
		Set("Type", p.typ).
		Set("Description", p.description)
}

// ParameterFromDB reads {Value, Type, Description}; Type defaults to "any".
// A Value stored as null stays null.
func ParameterFromDB(key string, content *wire.Object) ParameterData {
	value, set := content.Get("Value")
	return ParameterData{
		BaseData:    model.BaseData{Name: model.Ptr(key)},
		Value:       value,
		ValueSet:    set,
		Type:        stringOr(optString(content, "Type"), DefaultParameterType),
		Description: optString(content, "Description"),
	}
}

// NewParameters creates the parameter collection an entity stores under "parameters".
func NewParameters(env model.Env, handler func(model.CollectionEvent)) *model.Collection[*Parameter, ParameterData] {
	return model.NewCollection[*Parameter, ParameterData]("parameters",
		func() *Parameter { return NewParameter(env) }, handler)
}

// ParametersFromDB reads a Parameter section.
func ParametersFromDB(v any) model.Entries[ParameterData] {
	return model.EntriesFromDB(v, ParameterFromDB)
}
