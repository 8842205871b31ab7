package domain

import (
	"github.com/example/flowide/internal/model"
	"github.com/example/flowide/internal/wire"
)

// PortTypeData is the normalized form of one input or output of a port.
type PortTypeData struct {
	model.BaseData
	Message    *string      `json:"message,omitempty"`
	Callback   *string      `json:"callback,omitempty"`
	Parameters *wire.Object `json:"parameters,omitempty"`
}

// PortType is a typed input or output of a port, optionally bound to a
// callback.
type PortType struct {
	model.Base
	message    string
	callback   string
	parameters *wire.Object
}

func NewPortType(env model.Env) *PortType {
	p := &PortType{parameters: wire.NewObject()}
	p.Init(env, p, "message", "callback", "parameters")
	return p
}

func (p *PortType) Message() string { return p.message }

func (p *PortType) SetMessage(v string) {
	p.message = v
	p.Changed("message", v)
}

// Callback returns the callback bound to the port, "" when none.
func (p *PortType) Callback() string { return p.callback }

func (p *PortType) SetCallback(v string) {
	p.callback = v
	p.Changed("callback", v)
}

// Parameters returns the free-form parameter object. Callers must not
// modify it; use SetParameter.
func (p *PortType) Parameters() *wire.Object { return p.parameters }

func (p *PortType) SetParameters(v *wire.Object) {
	if v == nil {
		v = wire.NewObject()
	}
	p.parameters = v
	p.Changed("parameters", v)
}

func (p *PortType) SetParameter(name string, value any) {
	p.parameters.Set(name, value)
	p.Changed("parameters", p.parameters)
}

func (p *PortType) SetData(d PortTypeData) []string {
	applied := p.SetBaseData(d.BaseData)
	if d.Message != nil {
		p.SetMessage(*d.Message)
		applied = append(applied, "message")
	}
	if d.Callback != nil {
		p.SetCallback(*d.Callback)
		applied = append(applied, "callback")
	}
	if d.Parameters != nil {
		p.SetParameters(d.Parameters)
		applied = append(applied, "parameters")
	}
	return applied
}

func (p *PortType) Serialize() PortTypeData {
	d := PortTypeData{
		BaseData:   p.Identity(),
		Message:    model.Ptr(p.message),
		Parameters: p.parameters,
	}
	if p.callback != "" {
		d.Callback = model.Ptr(p.callback)
	}
	return d
}

// SerializeToDB writes Callback only when one is bound.
func (p *PortType) SerializeToDB() any {
	o := wire.NewObject().Set("Message", p.message)
	o.SetIf(p.callback != "", "Callback", p.callback)
	return o.Set("Parameter", p.parameters)
}

// PortTypeFromDB reads {Message, Callback, Parameter}.
func PortTypeFromDB(key string, content *wire.Object) PortTypeData {
	d := PortTypeData{
		BaseData: model.BaseData{Name: model.Ptr(key)},
		Message:  optString(content, "Message"),
		Callback: optString(content, "Callback"),
	}
	if params, ok := wire.AsObject(content.Value("Parameter")); ok {
		d.Parameters = params
	}
	return d
}

// PortData is the normalized form of a Port.
type PortData struct {
	model.BaseData
	Description *string                     `json:"description,omitempty"`
	Template    *string                     `json:"template,omitempty"`
	MsgPackage  *string                     `json:"msgPackage,omitempty"`
	Message     *string                     `json:"message,omitempty"`
	PortIn      model.Entries[PortTypeData] `json:"portIn,omitempty"`
	PortOut     model.Entries[PortTypeData] `json:"portOut,omitempty"`
}

// Port is a communication endpoint a node template declares.
type Port struct {
	model.Base
	description string
	template    string
	msgPackage  string
	message     string
	portIn      *model.Collection[*PortType, PortTypeData]
	portOut     *model.Collection[*PortType, PortTypeData]
}

func NewPort(env model.Env) *Port {
	p := &Port{}
	p.Init(env, p, "description", "template", "msgPackage", "message", "portIn", "portOut")
	newType := func() *PortType { return NewPortType(env) }
	changed := func(ev model.CollectionEvent) { p.Changed(ev.Prop, ev) }
	p.portIn = model.NewCollection[*PortType, PortTypeData]("portIn", newType, changed)
	p.portOut = model.NewCollection[*PortType, PortTypeData]("portOut", newType, changed)
	return p
}

func (p *Port) Description() string { return p.description }

func (p *Port) SetDescription(v string) {
	p.description = v
	p.Changed("description", v)
}

func (p *Port) Template() string { return p.template }

func (p *Port) SetTemplate(v string) {
	p.template = v
	p.Changed("template", v)
}

func (p *Port) MsgPackage() string { return p.msgPackage }

func (p *Port) SetMsgPackage(v string) {
	p.msgPackage = v
	p.Changed("msgPackage", v)
}

func (p *Port) Message() string { return p.message }

func (p *Port) SetMessage(v string) {
	p.message = v
	p.Changed("message", v)
}

func (p *Port) PortIn() *model.Collection[*PortType, PortTypeData]  { return p.portIn }
func (p *Port) PortOut() *model.Collection[*PortType, PortTypeData] { return p.portOut }

func (p *Port) SetData(d PortData) []string {
	applied := p.SetBaseData(d.BaseData)
	for _, f := range []struct {
		name string
		v    *string
		set  func(string)
	}{
		{"description", d.Description, p.SetDescription},
		{"template", d.Template, p.SetTemplate},
		{"msgPackage", d.MsgPackage, p.SetMsgPackage},
		{"message", d.Message, p.SetMessage},
	} {
		if f.v != nil {
			f.set(*f.v)
			applied = append(applied, f.name)
		}
	}
	if d.PortIn != nil {
		p.logSkipped(p.portIn.SetData(d.PortIn))
		applied = append(applied, "portIn")
	}
	if d.PortOut != nil {
		p.logSkipped(p.portOut.SetData(d.PortOut))
		applied = append(applied, "portOut")
	}
	return applied
}

func (p *Port) logSkipped(err error) {
	if err != nil {
		p.Env().Log().Debug("skipped entries", "port", p.Name(), "err", err)
	}
}

func (p *Port) Serialize() PortData {
	return PortData{
		BaseData:    p.Identity(),
		Description: model.Ptr(p.description),
		Template:    model.Ptr(p.template),
		MsgPackage:  model.Ptr(p.msgPackage),
		Message:     model.Ptr(p.message),
		PortIn:      p.portIn.Serialize(),
		PortOut:     p.portOut.Serialize(),
	}
}

func (p *Port) SerializeToDB() any {
	return wire.NewObject().
		Set("Template", p.template).
		Set("Info", p.description).
		Set("Package", p.msgPackage).
		Set("Message", p.message).
		Set("In", p.portIn.SerializeToDB()).
		Set("Out", p.portOut.SerializeToDB())
}

func (p *Port) Destroy() {
	p.portIn.Destroy()
	p.portOut.Destroy()
	p.Base.Destroy()
}

// PortFromDB reads a PortsInst entry keyed by the port name.
func PortFromDB(key string, content *wire.Object) PortData {
	return PortData{
		BaseData:    model.BaseData{Name: model.Ptr(key)},
		Description: optString(content, "Info"),
		Template:    optString(content, "Template"),
		MsgPackage:  optString(content, "Package"),
		Message:     optString(content, "Message"),
		PortIn:      model.EntriesFromDB(content.Value("In"), PortTypeFromDB),
		PortOut:     model.EntriesFromDB(content.Value("Out"), PortTypeFromDB),
	}
}
