package domain

import (
	"context"

	"github.com/example/flowide/internal/model"
	"github.com/example/flowide/internal/wire"
)

// ScopeNode is the document scope of node templates.
const ScopeNode = "Node"

// NodeData is the normalized form of a Node template.
type NodeData struct {
	model.BaseData
	Path       *string                      `json:"path,omitempty"`
	Info       *string                      `json:"info,omitempty"`
	Type       *string                      `json:"type,omitempty"`
	PackageDep *string                      `json:"packageDep,omitempty"`
	Persistent *bool                        `json:"persistent,omitempty"`
	Launch     *bool                        `json:"launch,omitempty"`
	Remappable *bool                        `json:"remappable,omitempty"`
	Parameters model.Entries[ParameterData] `json:"parameters,omitempty"`
	EnvVars    model.Entries[KeyValueData]  `json:"envVars,omitempty"`
	Commands   model.Entries[KeyValueData]  `json:"commands,omitempty"`
	Ports      model.Entries[PortData]      `json:"ports,omitempty"`
}

// Node is a node template document: what a flow instantiates as a
// NodeInstance.
type Node struct {
	model.Base
	path       string
	info       string
	typ        string
	packageDep string
	persistent bool
	launch     bool
	remappable bool
	parameters *model.Collection[*Parameter, ParameterData]
	envVars    *model.Collection[*EnvVar, KeyValueData]
	commands   *model.Collection[*Command, KeyValueData]
	ports      *model.Collection[*Port, PortData]
}

func NewNode(env model.Env) *Node {
	n := &Node{launch: true, remappable: true}
	n.Init(env, n, "path", "info", "type", "packageDep", "persistent", "launch",
		"remappable", "parameters", "envVars", "commands", "ports")
	changed := func(ev model.CollectionEvent) { n.Changed(ev.Prop, ev) }
	n.parameters = NewParameters(env, changed)
	n.envVars = NewEnvVars(env, changed)
	n.commands = NewCommands(env, changed)
	n.ports = model.NewCollection[*Port, PortData]("ports",
		func() *Port { return NewPort(env) }, changed)
	return n
}

// NodeOfJSON builds a clean node template from its wire document.
func NodeOfJSON(env model.Env, obj *wire.Object) *Node {
	n := NewNode(env)
	n.Load(func() { n.SetData(NodeFromDB(obj)) })
	return n
}

func (n *Node) Scope() string { return ScopeNode }
func (n *Node) URL() string   { return n.URLFor(ScopeNode) }

func (n *Node) Path() string { return n.path }

func (n *Node) SetPath(v string) {
	n.path = v
	n.Changed("path", v)
}

func (n *Node) Info() string { return n.info }

func (n *Node) SetInfo(v string) {
	n.info = v
	n.Changed("info", v)
}

func (n *Node) Type() string { return n.typ }

func (n *Node) SetType(v string) {
	n.typ = v
	n.Changed("type", v)
}

func (n *Node) PackageDep() string { return n.packageDep }

func (n *Node) SetPackageDep(v string) {
	n.packageDep = v
	n.Changed("packageDep", v)
}

func (n *Node) Persistent() bool { return n.persistent }

func (n *Node) SetPersistent(v bool) {
	n.persistent = v
	n.Changed("persistent", v)
}

func (n *Node) Launch() bool { return n.launch }

func (n *Node) SetLaunch(v bool) {
	n.launch = v
	n.Changed("launch", v)
}

func (n *Node) Remappable() bool { return n.remappable }

func (n *Node) SetRemappable(v bool) {
	n.remappable = v
	n.Changed("remappable", v)
}

func (n *Node) Parameters() *model.Collection[*Parameter, ParameterData] { return n.parameters }
func (n *Node) EnvVars() *model.Collection[*EnvVar, KeyValueData]        { return n.envVars }
func (n *Node) Commands() *model.Collection[*Command, KeyValueData]      { return n.commands }
func (n *Node) Ports() *model.Collection[*Port, PortData]                { return n.ports }

func (n *Node) SetData(d NodeData) []string {
	applied := n.SetBaseData(d.BaseData)
	for _, f := range []struct {
		name string
		v    *string
		set  func(string)
	}{
		{"path", d.Path, n.SetPath},
		{"info", d.Info, n.SetInfo},
		{"type", d.Type, n.SetType},
		{"packageDep", d.PackageDep, n.SetPackageDep},
	} {
		if f.v != nil {
			f.set(*f.v)
			applied = append(applied, f.name)
		}
	}
	for _, f := range []struct {
		name string
		v    *bool
		set  func(bool)
	}{
		{"persistent", d.Persistent, n.SetPersistent},
		{"launch", d.Launch, n.SetLaunch},
		{"remappable", d.Remappable, n.SetRemappable},
	} {
		if f.v != nil {
			f.set(*f.v)
			applied = append(applied, f.name)
		}
	}
	load := func(prop string, err error) {
		applied = append(applied, prop)
		if err != nil {
			n.Env().Log().Debug("skipped entries", "node", n.Name(), "err", err)
		}
	}
	if d.Parameters != nil {
		load("parameters", n.parameters.SetData(d.Parameters))
	}
	if d.EnvVars != nil {
		load("envVars", n.envVars.SetData(d.EnvVars))
	}
	if d.Commands != nil {
		load("commands", n.commands.SetData(d.Commands))
	}
	if d.Ports != nil {
		load("ports", n.ports.SetData(d.Ports))
	}
	return applied
}

func (n *Node) Serialize() NodeData {
	return NodeData{
		BaseData:   n.Snapshot(),
		Path:       model.Ptr(n.path),
		Info:       model.Ptr(n.info),
		Type:       model.Ptr(n.typ),
		PackageDep: model.Ptr(n.packageDep),
		Persistent: model.Ptr(n.persistent),
		Launch:     model.Ptr(n.launch),
		Remappable: model.Ptr(n.remappable),
		Parameters: n.parameters.Serialize(),
		EnvVars:    n.envVars.Serialize(),
		Commands:   n.commands.Serialize(),
		Ports:      n.ports.Serialize(),
	}
}

func (n *Node) Normalized() any { return n.Serialize() }

// SerializeToDB writes every section, empty ones as {}.
func (n *Node) SerializeToDB() *wire.Object {
	return wire.NewObject().
		Set("Label", n.Name()).
		Set("LastUpdate", detailsToDB(n.Details())).
		Set("Path", n.path).
		Set("Info", n.info).
		Set("Type", n.typ).
		Set("Persistent", n.persistent).
		Set("PackageDepends", n.packageDep).
		Set("Remappable", n.remappable).
		Set("Launch", n.launch).
		Set("Parameter", n.parameters.SerializeToDB()).
		Set("CmdLine", n.commands.SerializeToDB()).
		Set("EnvVar", n.envVars.SerializeToDB()).
		Set("PortsInst", n.ports.SerializeToDB())
}

func (n *Node) Validate(ctx context.Context) model.ValidationResult {
	return n.ValidateWith(ctx, ScopeNode, n.SerializeToDB())
}

func (n *Node) Destroy() {
	n.parameters.Destroy()
	n.envVars.Destroy()
	n.commands.Destroy()
	n.ports.Destroy()
	n.Base.Destroy()
}

// NodeFromDB reads a node template wire document. Only fields present in
// obj are set.
func NodeFromDB(obj *wire.Object) NodeData {
	return NodeData{
		BaseData:   headerFromDB(obj),
		Path:       optString(obj, "Path"),
		Info:       optString(obj, "Info"),
		Type:       optString(obj, "Type"),
		PackageDep: optString(obj, "PackageDepends"),
		Persistent: optBool(obj, "Persistent"),
		Launch:     optBool(obj, "Launch"),
		Remappable: optBool(obj, "Remappable"),
		Parameters: ParametersFromDB(obj.Value("Parameter")),
		EnvVars:    KeyValuesFromDB(obj.Value("EnvVar")),
		Commands:   KeyValuesFromDB(obj.Value("CmdLine")),
		Ports:      model.EntriesFromDB(obj.Value("PortsInst"), PortFromDB),
	}
}
