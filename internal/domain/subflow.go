package domain

import (
	"github.com/example/flowide/internal/model"
	"github.com/example/flowide/internal/wire"
)

// SubFlowData is the normalized form of a SubFlow.
type SubFlowData struct {
	model.BaseData
	Template   *string                      `json:"template,omitempty"`
	Position   *PositionData                `json:"position,omitempty"`
	Parameters model.Entries[ParameterData] `json:"parameters,omitempty"`
}

// SubFlow is another flow embedded in a flow as a container.
type SubFlow struct {
	model.Base
	template   string
	position   *Position
	parameters *model.Collection[*Parameter, ParameterData]
}

func NewSubFlow(env model.Env) *SubFlow {
	s := &SubFlow{}
	s.Init(env, s, "template", "position", "parameters")
	s.position = NewPosition(env)
	s.position.SetForward(func(string, any) { s.Changed("position", s.position.Serialize()) })
	s.parameters = NewParameters(env, func(ev model.CollectionEvent) { s.Changed(ev.Prop, ev) })
	return s
}

// Template is the name of the embedded flow.
func (s *SubFlow) Template() string { return s.template }

func (s *SubFlow) SetTemplate(v string) {
	s.template = v
	s.Changed("template", v)
}

func (s *SubFlow) Position() *Position { return s.position }

func (s *SubFlow) SetPosition(x, y float64) {
	s.position.SetData(PositionData{X: &x, Y: &y})
}

func (s *SubFlow) Parameters() *model.Collection[*Parameter, ParameterData] {
	return s.parameters
}

func (s *SubFlow) SetData(d SubFlowData) []string {
	applied := s.SetBaseData(d.BaseData)
	if d.Template != nil {
		s.SetTemplate(*d.Template)
		applied = append(applied, "template")
	}
	if d.Position != nil {
		s.position.SetData(*d.Position)
		applied = append(applied, "position")
	}
	if d.Parameters != nil {
		if err := s.parameters.SetData(d.Parameters); err != nil {
			s.Env().Log().Debug("skipped entries", "subflow", s.Name(), "err", err)
		}
		applied = append(applied, "parameters")
	}
	return applied
}

func (s *SubFlow) Serialize() SubFlowData {
	return SubFlowData{
		BaseData:   s.Identity(),
		Template:   model.Ptr(s.template),
		Position:   model.Ptr(s.position.Serialize()),
		Parameters: s.parameters.Serialize(),
	}
}

// SerializeToDB omits an empty Parameter section.
func (s *SubFlow) SerializeToDB() any {
	o := wire.NewObject().
		Set("ContainerLabel", s.Name()).
		Set("ContainerFlow", s.template).
		Set("Visualization", s.position.SerializeToDB())
	setSection(o, "Parameter", s.parameters)
	return o
}

func (s *SubFlow) Destroy() {
	s.parameters.Destroy()
	s.position.Destroy()
	s.Base.Destroy()
}

// SubFlowFromDB reads a Container entry keyed by the sub-flow name.
func SubFlowFromDB(key string, content *wire.Object) SubFlowData {
	d := SubFlowData{
		BaseData:   model.BaseData{Name: model.Ptr(key)},
		Template:   optString(content, "ContainerFlow"),
		Parameters: ParametersFromDB(content.Value("Parameter")),
	}
	if v, ok := content.Get("Visualization"); ok {
		d.Position = model.Ptr(PositionFromDB(v))
	}
	return d
}
