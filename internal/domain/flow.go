package domain

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/example/flowide/internal/model"
	"github.com/example/flowide/internal/wire"
)

// ScopeFlow is the document scope of flows.
const ScopeFlow = "Flow"

// FlowData is the normalized form of a Flow.
type FlowData struct {
	model.BaseData
	Description   *string                         `json:"description,omitempty"`
	NodeInstances model.Entries[NodeInstanceData] `json:"nodeInstances,omitempty"`
	SubFlows      model.Entries[SubFlowData]      `json:"subFlows,omitempty"`
	Links         model.Entries[LinkData]         `json:"links,omitempty"`
	Groups        model.Entries[LayerData]        `json:"groups,omitempty"`
	Parameters    model.Entries[ParameterData]    `json:"parameters,omitempty"`
	ExposedPorts  model.ExposedPortsData          `json:"exposedPorts,omitempty"`
}

// Flow is the graph document: node instances and sub-flows connected by
// links, with layers, parameters and exposed ports. Every nested change is
// re-emitted through the flow, so one subscription sees all of them.
type Flow struct {
	model.Base
	description   string
	nodeInstances *model.Collection[*NodeInstance, NodeInstanceData]
	subFlows      *model.Collection[*SubFlow, SubFlowData]
	links         *model.Collection[*Link, LinkData]
	groups        *model.Collection[*Layer, LayerData]
	parameters    *model.Collection[*Parameter, ParameterData]
	exposedPorts  *model.ExposedPortsCollection
}

func NewFlow(env model.Env) *Flow {
	f := &Flow{}
	f.Init(env, f, "description", "nodeInstances", "subFlows", "links", "groups",
		"parameters", "exposedPorts")
	f.nodeInstances = model.NewCollection[*NodeInstance, NodeInstanceData]("nodeInstances",
		func() *NodeInstance { return NewNodeInstance(env) }, f.childChanged)
	f.subFlows = model.NewCollection[*SubFlow, SubFlowData]("subFlows",
		func() *SubFlow { return NewSubFlow(env) }, f.childChanged)
	f.links = model.NewCollection[*Link, LinkData]("links",
		func() *Link { return NewLink(env) }, f.childChanged)
	f.groups = model.NewIDCollection[*Layer, LayerData]("groups",
		func() *Layer { return NewLayer(env) }, f.childChanged)
	f.parameters = NewParameters(env, f.childChanged)
	f.exposedPorts = model.NewExposedPortsCollection(env, "exposedPorts", f.childChanged)
	return f
}

// FlowOfJSON builds a clean flow from its wire document.
func FlowOfJSON(env model.Env, obj *wire.Object) *Flow {
	f := NewFlow(env)
	f.Load(func() { f.SetData(FlowFromDB(obj)) })
	return f
}

func (f *Flow) childChanged(ev model.CollectionEvent) { f.Changed(ev.Prop, ev) }

func (f *Flow) Scope() string { return ScopeFlow }
func (f *Flow) URL() string   { return f.URLFor(ScopeFlow) }

func (f *Flow) Description() string { return f.description }

func (f *Flow) SetDescription(v string) {
	f.description = v
	f.Changed("description", v)
}

func (f *Flow) NodeInstances() *model.Collection[*NodeInstance, NodeInstanceData] {
	return f.nodeInstances
}

func (f *Flow) SubFlows() *model.Collection[*SubFlow, SubFlowData] { return f.subFlows }
func (f *Flow) Links() *model.Collection[*Link, LinkData]          { return f.links }
func (f *Flow) Groups() *model.Collection[*Layer, LayerData]       { return f.groups }

func (f *Flow) Parameters() *model.Collection[*Parameter, ParameterData] {
	return f.parameters
}

func (f *Flow) ExposedPorts() *model.ExposedPortsCollection { return f.exposedPorts }

// AddNode inserts a node instance given in its wire form.
func (f *Flow) AddNode(name string, node *wire.Object) error {
	return f.nodeInstances.SetItem(name, NodeInstanceFromDB(name, node))
}

// AddSubFlow inserts a sub-flow given in its wire form.
func (f *Flow) AddSubFlow(name string, container *wire.Object) error {
	return f.subFlows.SetItem(name, SubFlowFromDB(name, container))
}

// DeleteNode removes a node instance and every link attached to it. It
// returns the ids of the deleted links.
func (f *Flow) DeleteNode(id string) []string {
	deleted := f.deleteLinksOf(id)
	f.nodeInstances.DeleteItem(id)
	return deleted
}

// DeleteSubFlow removes a sub-flow and every link attached to it.
func (f *Flow) DeleteSubFlow(id string) []string {
	deleted := f.deleteLinksOf(id)
	f.subFlows.DeleteItem(id)
	return deleted
}

func (f *Flow) deleteLinksOf(node string) []string {
	deleted := []string{}
	for _, key := range f.links.Keys() {
		link, _ := f.links.Item(key)
		if slices.Contains(link.Nodes(), node) {
			deleted = append(deleted, link.ID())
			f.links.DeleteItem(key)
		}
	}
	return deleted
}

// LinksOf returns the links attached to a node or sub-flow.
func (f *Flow) LinksOf(node string) []*Link {
	var out []*Link
	for _, link := range f.links.Items() {
		if slices.Contains(link.Nodes(), node) {
			out = append(out, link)
		}
	}
	return out
}

// AddLink connects from to to under a fresh id.
func (f *Flow) AddLink(from, to string) (LinkRef, error) {
	id := f.Env().NewID()
	err := f.links.SetItem(id, LinkData{
		BaseData: model.BaseData{ID: model.Ptr(id)},
		From:     model.Ptr(from),
		To:       model.Ptr(to),
	})
	if err != nil {
		return LinkRef{}, err
	}
	return LinkRef{ID: id, From: from, To: to}, nil
}

func (f *Flow) link(id string) (*Link, error) {
	link, ok := f.links.Item(id)
	if !ok {
		return nil, fmt.Errorf("link %q: %w", id, ErrNotFound)
	}
	return link, nil
}

func (f *Flow) SetLinkDependency(id string, level int) error {
	link, err := f.link(id)
	if err != nil {
		return err
	}
	link.SetDependency(level)
	return nil
}

func (f *Flow) LinkDependency(id string) (int, error) {
	link, err := f.link(id)
	if err != nil {
		return 0, err
	}
	return link.Dependency(), nil
}

// ToggleExposedPort flips the exposure of a node port and returns the
// exposed ports in their wire form.
func (f *Flow) ToggleExposedPort(template, node, port string) *wire.Object {
	f.exposedPorts.TogglePort(template, node, port)
	return f.exposedPorts.SerializeToDB()
}

// AddGroup creates an enabled layer under the lowest free numeric id.
func (f *Flow) AddGroup(name string) (string, error) {
	n := 0
	for f.groups.CheckExists(strconv.Itoa(n)) {
		n++
	}
	id := strconv.Itoa(n)
	err := f.groups.SetItem(id, LayerData{
		BaseData: model.BaseData{ID: model.Ptr(id), Name: model.Ptr(name)},
		Enabled:  model.Ptr(true),
	})
	return id, err
}

// DeleteGroup removes a layer and takes every node instance out of it.
func (f *Flow) DeleteGroup(id string) bool {
	if !f.groups.DeleteItem(id) {
		return false
	}
	for _, n := range f.nodeInstances.Items() {
		n.RemoveGroup(id)
	}
	return true
}

func (f *Flow) SetData(d FlowData) []string {
	applied := f.SetBaseData(d.BaseData)
	if d.Description != nil {
		f.SetDescription(*d.Description)
		applied = append(applied, "description")
	}
	load := func(prop string, err error) {
		applied = append(applied, prop)
		if err != nil {
			f.Env().Log().Debug("skipped entries", "flow", f.Name(), "err", err)
		}
	}
	if d.NodeInstances != nil {
		load("nodeInstances", f.nodeInstances.SetData(d.NodeInstances))
	}
	if d.SubFlows != nil {
		load("subFlows", f.subFlows.SetData(d.SubFlows))
	}
	if d.Links != nil {
		load("links", f.links.SetData(d.Links))
	}
	if d.Groups != nil {
		load("groups", f.groups.SetData(d.Groups))
	}
	if d.Parameters != nil {
		load("parameters", f.parameters.SetData(d.Parameters))
	}
	if d.ExposedPorts != nil {
		f.exposedPorts.SetData(d.ExposedPorts)
		applied = append(applied, "exposedPorts")
	}
	return applied
}

func (f *Flow) Serialize() FlowData {
	return FlowData{
		BaseData:      f.Snapshot(),
		Description:   model.Ptr(f.description),
		NodeInstances: f.nodeInstances.Serialize(),
		SubFlows:      f.subFlows.Serialize(),
		Links:         f.links.Serialize(),
		Groups:        f.groups.Serialize(),
		Parameters:    f.parameters.Serialize(),
		ExposedPorts:  f.exposedPorts.Serialize(),
	}
}

func (f *Flow) Normalized() any { return f.Serialize() }

// SerializeToDB assembles the wire document. Empty sections are left out
// rather than written as {}.
func (f *Flow) SerializeToDB() *wire.Object {
	o := wire.NewObject().
		Set("Label", f.Name()).
		Set("Description", f.description).
		Set("LastUpdate", detailsToDB(f.Details()))
	setSection(o, "NodeInst", f.nodeInstances)
	setSection(o, "Container", f.subFlows)
	setSection(o, "Links", f.links)
	setSection(o, "Layers", f.groups)
	setSection(o, "Parameter", f.parameters)
	setSection(o, "ExposedPorts", f.exposedPorts)
	return o
}

func (f *Flow) Validate(ctx context.Context) model.ValidationResult {
	return f.ValidateWith(ctx, ScopeFlow, f.SerializeToDB())
}

// Destroy releases the flow and everything it owns.
func (f *Flow) Destroy() {
	f.nodeInstances.Destroy()
	f.subFlows.Destroy()
	f.links.Destroy()
	f.groups.Destroy()
	f.parameters.Destroy()
	f.exposedPorts.Destroy()
	f.Base.Destroy()
}

// FlowFromDB reads a flow wire document.
func FlowFromDB(obj *wire.Object) FlowData {
	return FlowData{
		BaseData:      headerFromDB(obj),
		Description:   optString(obj, "Description"),
		NodeInstances: model.EntriesFromDB(obj.Value("NodeInst"), NodeInstanceFromDB),
		SubFlows:      model.EntriesFromDB(obj.Value("Container"), SubFlowFromDB),
		Links:         LinksFromDB(obj.Value("Links")),
		Groups:        LayersFromDB(obj.Value("Layers")),
		Parameters:    ParametersFromDB(obj.Value("Parameter")),
		ExposedPorts:  model.ExposedPortsFromDB(obj.Value("ExposedPorts")),
	}
}
