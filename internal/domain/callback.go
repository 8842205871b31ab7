package domain

import (
	"context"

	"github.com/example/flowide/internal/model"
	"github.com/example/flowide/internal/wire"
)

// ScopeCallback is the document scope of callbacks.
const ScopeCallback = "Callback"

// PyLibData is the normalized form of a PyLib. LibClass is a class name,
// or false when the whole module is imported.
type PyLibData struct {
	model.BaseData
	Module   *string `json:"module,omitempty"`
	LibClass any     `json:"libClass,omitempty"`
}

// PyLib is a python import of a callback.
type PyLib struct {
	model.Base
	module   string
	libClass any
}

func NewPyLib(env model.Env) *PyLib {
	p := &PyLib{libClass: false}
	p.Init(env, p, "module", "libClass")
	return p
}

func (p *PyLib) Module() string { return p.module }

func (p *PyLib) SetModule(v string) {
	p.module = v
	p.Changed("module", v)
}

func (p *PyLib) LibClass() any { return p.libClass }

func (p *PyLib) SetLibClass(v any) {
	p.libClass = v
	p.Changed("libClass", v)
}

func (p *PyLib) SetData(d PyLibData) []string {
	applied := p.SetBaseData(d.BaseData)
	if d.Module != nil {
		p.SetModule(*d.Module)
		applied = append(applied, "module")
	}
	if d.LibClass != nil {
		p.SetLibClass(d.LibClass)
		applied = append(applied, "libClass")
	}
	return applied
}

func (p *PyLib) Serialize() PyLibData {
	return PyLibData{BaseData: p.Identity(), Module: model.Ptr(p.module), LibClass: p.libClass}
}

func (p *PyLib) SerializeToDB() any {
	return wire.NewObject().Set("Module", p.module).Set("Class", p.libClass)
}

// PyLibFromDB reads {Module, Class}.
func PyLibFromDB(key string, content *wire.Object) PyLibData {
	return PyLibData{
		BaseData: model.BaseData{Name: model.Ptr(key)},
		Module:   optString(content, "Module"),
		LibClass: content.Value("Class"),
	}
}

// CallbackData is the normalized form of a Callback.
type CallbackData struct {
	model.BaseData
	Code    *string                  `json:"code,omitempty"`
	Message *string                  `json:"message,omitempty"`
	PyLibs  model.Entries[PyLibData] `json:"pyLibs,omitempty"`
}

// Callback is python code run when a port receives a message.
type Callback struct {
	model.Base
	code    string
	message string
	pyLibs  *model.Collection[*PyLib, PyLibData]
}

func NewCallback(env model.Env) *Callback {
	c := &Callback{}
	c.Init(env, c, "code", "message", "pyLibs")
	c.pyLibs = model.NewCollection[*PyLib, PyLibData]("pyLibs",
		func() *PyLib { return NewPyLib(env) },
		func(ev model.CollectionEvent) { c.Changed(ev.Prop, ev) })
	return c
}

// CallbackOfJSON builds a clean callback from its wire document.
func CallbackOfJSON(env model.Env, obj *wire.Object) *Callback {
	c := NewCallback(env)
	c.Load(func() { c.SetData(CallbackFromDB(obj)) })
	return c
}

func (c *Callback) Scope() string { return ScopeCallback }
func (c *Callback) URL() string   { return c.URLFor(ScopeCallback) }

func (c *Callback) Code() string { return c.code }

func (c *Callback) SetCode(v string) {
	c.code = v
	c.Changed("code", v)
}

// Message is the message type the callback handles.
func (c *Callback) Message() string { return c.message }

func (c *Callback) SetMessage(v string) {
	c.message = v
	c.Changed("message", v)
}

func (c *Callback) PyLibs() *model.Collection[*PyLib, PyLibData] { return c.pyLibs }

func (c *Callback) SetData(d CallbackData) []string {
	applied := c.SetBaseData(d.BaseData)
	if d.Code != nil {
		c.SetCode(*d.Code)
		applied = append(applied, "code")
	}
	if d.Message != nil {
		c.SetMessage(*d.Message)
		applied = append(applied, "message")
	}
	if d.PyLibs != nil {
		if err := c.pyLibs.SetData(d.PyLibs); err != nil {
			c.Env().Log().Debug("skipped entries", "callback", c.Name(), "err", err)
		}
		applied = append(applied, "pyLibs")
	}
	return applied
}

func (c *Callback) Serialize() CallbackData {
	return CallbackData{
		BaseData: c.Snapshot(),
		Code:     model.Ptr(c.code),
		Message:  model.Ptr(c.message),
		PyLibs:   c.pyLibs.Serialize(),
	}
}

func (c *Callback) Normalized() any { return c.Serialize() }

func (c *Callback) SerializeToDB() *wire.Object {
	return wire.NewObject().
		Set("Label", c.Name()).
		Set("Code", c.code).
		Set("Message", c.message).
		Set("Py3Lib", c.pyLibs.SerializeToDB()).
		Set("LastUpdate", detailsToDB(c.Details()))
}

func (c *Callback) Validate(ctx context.Context) model.ValidationResult {
	return c.ValidateWith(ctx, ScopeCallback, c.SerializeToDB())
}

func (c *Callback) Destroy() {
	c.pyLibs.Destroy()
	c.Base.Destroy()
}

// CallbackFromDB reads a callback wire document.
func CallbackFromDB(obj *wire.Object) CallbackData {
	return CallbackData{
		BaseData: headerFromDB(obj),
		Code:     optString(obj, "Code"),
		Message:  optString(obj, "Message"),
		PyLibs:   model.EntriesFromDB(obj.Value("Py3Lib"), PyLibFromDB),
	}
}
