package domain

import (
	"slices"

	"github.com/example/flowide/internal/model"
	"github.com/example/flowide/internal/wire"
)

// NodeInstanceData is the normalized form of a NodeInstance.
type NodeInstanceData struct {
	model.BaseData
	Template   *string                      `json:"template,omitempty"`
	Persistent *bool                        `json:"persistent,omitempty"`
	Launch     *bool                        `json:"launch,omitempty"`
	Remappable *bool                        `json:"remappable,omitempty"`
	Groups     []string                     `json:"groups,omitempty"`
	Position   *PositionData                `json:"position,omitempty"`
	Parameters model.Entries[ParameterData] `json:"parameters,omitempty"`
	EnvVars    model.Entries[KeyValueData]  `json:"envVars,omitempty"`
	Commands   model.Entries[KeyValueData]  `json:"commands,omitempty"`
}

// NodeInstance is a node template placed in a flow.
type NodeInstance struct {
	model.Base
	template   string
	persistent bool
	launch     bool
	remappable bool
	groups     []string
	position   *Position
	parameters *model.Collection[*Parameter, ParameterData]
	envVars    *model.Collection[*EnvVar, KeyValueData]
	commands   *model.Collection[*Command, KeyValueData]
}

func NewNodeInstance(env model.Env) *NodeInstance {
	n := &NodeInstance{launch: true, remappable: true, groups: []string{}}
	n.Init(env, n, "template", "persistent", "launch", "remappable", "groups",
		"position", "parameters", "envVars", "commands")
	n.position = NewPosition(env)
	n.position.SetForward(func(string, any) { n.Changed("position", n.position.Serialize()) })
	n.parameters = NewParameters(env, n.childChanged)
	n.envVars = NewEnvVars(env, n.childChanged)
	n.commands = NewCommands(env, n.childChanged)
	return n
}

func (n *NodeInstance) childChanged(ev model.CollectionEvent) { n.Changed(ev.Prop, ev) }

func (n *NodeInstance) Template() string { return n.template }

func (n *NodeInstance) SetTemplate(v string) {
	n.template = v
	n.Changed("template", v)
}

func (n *NodeInstance) Persistent() bool { return n.persistent }

func (n *NodeInstance) SetPersistent(v bool) {
	n.persistent = v
	n.Changed("persistent", v)
}

func (n *NodeInstance) Launch() bool { return n.launch }

func (n *NodeInstance) SetLaunch(v bool) {
	n.launch = v
	n.Changed("launch", v)
}

func (n *NodeInstance) Remappable() bool { return n.remappable }

func (n *NodeInstance) SetRemappable(v bool) {
	n.remappable = v
	n.Changed("remappable", v)
}

// Groups returns the ids of the layers the instance belongs to.
func (n *NodeInstance) Groups() []string { return slices.Clone(n.groups) }

func (n *NodeInstance) SetGroups(v []string) {
	n.groups = slices.Clone(v)
	if n.groups == nil {
		n.groups = []string{}
	}
	n.Changed("groups", n.Groups())
}

func (n *NodeInstance) AddGroup(id string) {
	n.SetGroups(append(slices.Clone(n.groups), id))
}

// RemoveGroup drops the first occurrence of id and reports whether there was one.
func (n *NodeInstance) RemoveGroup(id string) bool {
	i := slices.Index(n.groups, id)
	if i < 0 {
		return false
	}
	n.SetGroups(slices.Delete(slices.Clone(n.groups), i, i+1))
	return true
}

func (n *NodeInstance) Position() *Position { return n.position }

func (n *NodeInstance) SetPosition(x, y float64) {
	n.position.SetData(PositionData{X: &x, Y: &y})
}

func (n *NodeInstance) Parameters() *model.Collection[*Parameter, ParameterData] {
	return n.parameters
}

func (n *NodeInstance) EnvVars() *model.Collection[*EnvVar, KeyValueData] { return n.envVars }

func (n *NodeInstance) Commands() *model.Collection[*Command, KeyValueData] { return n.commands }

// SetData applies d. Entries whose key already exists in a nested
// collection are skipped.
func (n *NodeInstance) SetData(d NodeInstanceData) []string {
	applied := n.SetBaseData(d.BaseData)
	if d.Template != nil {
		n.SetTemplate(*d.Template)
		applied = append(applied, "template")
	}
	if d.Persistent != nil {
		n.SetPersistent(*d.Persistent)
		applied = append(applied, "persistent")
	}
	if d.Launch != nil {
		n.SetLaunch(*d.Launch)
		applied = append(applied, "launch")
	}
	if d.Remappable != nil {
		n.SetRemappable(*d.Remappable)
		applied = append(applied, "remappable")
	}
	if d.Groups != nil {
		n.SetGroups(d.Groups)
		applied = append(applied, "groups")
	}
	if d.Position != nil {
		n.position.SetData(*d.Position)
		applied = append(applied, "position")
	}
	if d.Parameters != nil {
		n.logSkipped(n.parameters.SetData(d.Parameters))
		applied = append(applied, "parameters")
	}
	if d.EnvVars != nil {
		n.logSkipped(n.envVars.SetData(d.EnvVars))
		applied = append(applied, "envVars")
	}
	if d.Commands != nil {
		n.logSkipped(n.commands.SetData(d.Commands))
		applied = append(applied, "commands")
	}
	return applied
}

func (n *NodeInstance) logSkipped(err error) {
	if err != nil {
		n.Env().Log().Debug("skipped entries", "node", n.Name(), "err", err)
	}
}

func (n *NodeInstance) Serialize() NodeInstanceData {
	return NodeInstanceData{
		BaseData:   n.Identity(),
		Template:   model.Ptr(n.template),
		Persistent: model.Ptr(n.persistent),
		Launch:     model.Ptr(n.launch),
		Remappable: model.Ptr(n.remappable),
		Groups:     n.Groups(),
		Position:   model.Ptr(n.position.Serialize()),
		Parameters: n.parameters.Serialize(),
		EnvVars:    n.envVars.Serialize(),
		Commands:   n.commands.Serialize(),
	}
}

// SerializeToDB omits empty Parameter, EnvVar and CmdLine sections.
func (n *NodeInstance) SerializeToDB() any {
	o := wire.NewObject().
		Set("NodeLabel", n.Name()).
		Set("Template", n.template).
		Set("Persistent", n.persistent).
		Set("Launch", n.launch).
		Set("Remappable", n.remappable).
		Set("NodeLayers", wire.StringList(n.groups)).
		Set("Visualization", n.position.SerializeToDB())
	setSection(o, "Parameter", n.parameters)
	setSection(o, "EnvVar", n.envVars)
	setSection(o, "CmdLine", n.commands)
	return o
}

// Destroy releases the instance and everything it owns.
func (n *NodeInstance) Destroy() {
	n.parameters.Destroy()
	n.envVars.Destroy()
	n.commands.Destroy()
	n.position.Destroy()
	n.Base.Destroy()
}

// NodeInstanceFromDB reads a NodeInst entry keyed by the instance name.
func NodeInstanceFromDB(key string, content *wire.Object) NodeInstanceData {
	d := NodeInstanceData{
		BaseData:   model.BaseData{Name: model.Ptr(key)},
		Template:   optString(content, "Template"),
		Persistent: optBool(content, "Persistent"),
		Launch:     optBool(content, "Launch"),
		Remappable: optBool(content, "Remappable"),
		Groups:     optStrings(content, "NodeLayers"),
		Parameters: ParametersFromDB(content.Value("Parameter")),
		EnvVars:    KeyValuesFromDB(content.Value("EnvVar")),
		Commands:   KeyValuesFromDB(content.Value("CmdLine")),
	}
	if v, ok := content.Get("Visualization"); ok {
		d.Position = model.Ptr(PositionFromDB(v))
	}
	return d
}
