package domain

import (
	"github.com/example/flowide/internal/model"
	"github.com/example/flowide/internal/wire"
)

// PositionData is the normalized form of a Position.
type PositionData struct {
	X *float64 `json:"x,omitempty"`
	Y *float64 `json:"y,omitempty"`
}

// Position places a node or sub-flow on the canvas.
type Position struct {
	model.Base
	x, y float64
}

func NewPosition(env model.Env) *Position {
	p := &Position{}
	p.Init(env, p, "x", "y")
	return p
}

func (p *Position) X() float64 { return p.x }

func (p *Position) SetX(v float64) {
	p.x = v
	p.Changed("x", v)
}

func (p *Position) Y() float64 { return p.y }

func (p *Position) SetY(v float64) {
	p.y = v
	p.Changed("y", v)
}

func (p *Position) SetData(d PositionData) []string {
	var applied []string
	if d.X != nil {
		p.SetX(*d.X)
		applied = append(applied, "x")
	}
	if d.Y != nil {
		p.SetY(*d.Y)
		applied = append(applied, "y")
	}
	return applied
}

func (p *Position) Serialize() PositionData {
	return PositionData{X: model.Ptr(p.x), Y: model.Ptr(p.y)}
}

// SerializeToDB always writes the {x: {Value}, y: {Value}} form.
func (p *Position) SerializeToDB() *wire.Object {
	return wire.NewObject().
		Set("x", wire.NewObject().Set("Value", p.x)).
		Set("y", wire.NewObject().Set("Value", p.y))
}

// PositionFromDB reads the {x: {Value}, y: {Value}} form and the legacy
// [x, y] array. Missing axis values read as 0.
func PositionFromDB(v any) PositionData {
	if arr, ok := v.([]any); ok {
		var d PositionData
		if len(arr) > 0 {
			d.X = model.Ptr(axisValue(arr[0]))
		}
		if len(arr) > 1 {
			d.Y = model.Ptr(axisValue(arr[1]))
		}
		return d
	}
	obj, ok := wire.AsObject(v)
	if !ok {
		return PositionData{}
	}
	var d PositionData
	if axis, ok := wire.AsObject(obj.Value("x")); ok {
		d.X = model.Ptr(axisValue(axis.Value("Value")))
	}
	if axis, ok := wire.AsObject(obj.Value("y")); ok {
		d.Y = model.Ptr(axisValue(axis.Value("Value")))
	}
	return d
}

func axisValue(v any) float64 {
	f, _ := wire.Float(v)
	return f
}
