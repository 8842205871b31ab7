package model

import (
	"slices"

	"github.com/example/flowide/internal/wire"
)

// PortListData is the normalized form of one node instance's exposed ports.
type PortListData struct {
	BaseData
	Ports []string `json:"ports,omitempty"`
}

// PortList holds the ports one node instance exposes, in toggle order.
type PortList struct {
	Base
	ports []string
}

func NewPortList(env Env) *PortList {
	p := &PortList{ports: []string{}}
	p.Init(env, p, "ports")
	return p
}

// Ports returns a copy of the exposed ports.
func (p *PortList) Ports() []string { return slices.Clone(p.ports) }

// SetPorts replaces the ports. A repeated port keeps its first position.
func (p *PortList) SetPorts(ports []string) {
	p.ports = make([]string, 0, len(ports))
	for _, port := range ports {
		if !slices.Contains(p.ports, port) {
			p.ports = append(p.ports, port)
		}
	}
	p.Changed("ports", p.Ports())
}

func (p *PortList) Has(port string) bool { return slices.Contains(p.ports, port) }

// TogglePort removes port if present and appends it otherwise. It returns
// the resulting ports.
func (p *PortList) TogglePort(port string) []string {
	if i := slices.Index(p.ports, port); i >= 0 {
		p.SetPorts(slices.Delete(slices.Clone(p.ports), i, i+1))
	} else {
		p.SetPorts(append(slices.Clone(p.ports), port))
	}
	return p.Ports()
}

func (p *PortList) Count() int { return len(p.ports) }

func (p *PortList) SetData(d PortListData) []string {
	applied := p.SetBaseData(d.BaseData)
	if d.Ports != nil {
		p.SetPorts(d.Ports)
		applied = append(applied, "ports")
	}
	return applied
}

func (p *PortList) Serialize() PortListData {
	return PortListData{BaseData: p.Identity(), Ports: p.Ports()}
}

// SerializeToDB returns the bare port list.
func (p *PortList) SerializeToDB() any { return wire.StringList(p.ports) }

// ExposedPortsData is the normalized form of an ExposedPortsCollection:
// template, then instance, then ports.
type ExposedPortsData = Entries[Entries[PortListData]]

// TemplatePorts holds the instances of one node template that expose ports.
type TemplatePorts struct {
	name      string
	instances []*PortList
}

func (t *TemplatePorts) Name() string { return t.name }

// Instances returns the instances in creation order.
func (t *TemplatePorts) Instances() []*PortList { return slices.Clone(t.instances) }

func (t *TemplatePorts) Instance(name string) (*PortList, bool) {
	for _, in := range t.instances {
		if in.Name() == name {
			return in, true
		}
	}
	return nil, false
}

func (t *TemplatePorts) Len() int { return len(t.instances) }

// ExposedPortsCollection is the ordered tree template → instance → ports.
// Every mutating call prunes, so no empty instance or template survives one.
type ExposedPortsCollection struct {
	env       Env
	prop      string
	handler   func(CollectionEvent)
	templates []*TemplatePorts
}

func NewExposedPortsCollection(env Env, prop string, handler func(CollectionEvent)) *ExposedPortsCollection {
	return &ExposedPortsCollection{env: env, prop: prop, handler: handler}
}

// Template returns the entry of a template.
func (c *ExposedPortsCollection) Template(name string) (*TemplatePorts, bool) {
	for _, t := range c.templates {
		if t.name == name {
			return t, true
		}
	}
	return nil, false
}

// Templates returns the templates in creation order.
func (c *ExposedPortsCollection) Templates() []*TemplatePorts { return slices.Clone(c.templates) }

func (c *ExposedPortsCollection) HasItems() bool { return len(c.templates) > 0 }

func (c *ExposedPortsCollection) GetOrCreateTemplate(name string) *TemplatePorts {
	if t, ok := c.Template(name); ok {
		return t
	}
	t := &TemplatePorts{name: name}
	c.templates = append(c.templates, t)
	return t
}

func (c *ExposedPortsCollection) GetOrCreateInstance(t *TemplatePorts, name string) *PortList {
	if in, ok := t.Instance(name); ok {
		return in
	}
	in := NewPortList(c.env)
	in.SetName(name)
	t.instances = append(t.instances, in)
	return in
}

// TogglePort flips port on the instance of template and prunes. It returns
// the instance's ports after the toggle.
func (c *ExposedPortsCollection) TogglePort(template, instance, port string) []string {
	in := c.GetOrCreateInstance(c.GetOrCreateTemplate(template), instance)
	ports := in.TogglePort(port)
	c.Prune()
	c.emit(EventUpdate, template)
	return ports
}

// Prune drops instances without ports, then templates without instances.
func (c *ExposedPortsCollection) Prune() {
	templates := c.templates[:0]
	for _, t := range c.templates {
		instances := t.instances[:0]
		for _, in := range t.instances {
			if in.Count() == 0 {
				in.Destroy()
				continue
			}
			instances = append(instances, in)
		}
		t.instances = instances
		if len(t.instances) > 0 {
			templates = append(templates, t)
		}
	}
	c.templates = templates
}

// SetData replaces the tree with data and prunes.
func (c *ExposedPortsCollection) SetData(data ExposedPortsData) {
	had := c.HasItems()
	c.Destroy()
	for _, te := range data {
		t := c.GetOrCreateTemplate(te.Key)
		for _, ie := range te.Content {
			c.GetOrCreateInstance(t, ie.Key).SetData(ie.Content)
		}
	}
	c.Prune()
	if had || len(data) > 0 {
		c.emit(EventUpdate, "")
	}
}

func (c *ExposedPortsCollection) Serialize() ExposedPortsData {
	out := make(ExposedPortsData, 0, len(c.templates))
	for _, t := range c.templates {
		inst := make(Entries[PortListData], 0, len(t.instances))
		for _, in := range t.instances {
			inst = append(inst, Entry[PortListData]{Key: in.Name(), Content: in.Serialize()})
		}
		out = append(out, Entry[Entries[PortListData]]{Key: t.name, Content: inst})
	}
	return out
}

// SerializeToDB returns {template: {instance: [ports]}}.
func (c *ExposedPortsCollection) SerializeToDB() *wire.Object {
	out := wire.NewObject()
	for _, t := range c.templates {
		inst := wire.NewObject()
		for _, in := range t.instances {
			inst.Set(in.Name(), in.SerializeToDB())
		}
		out.Set(t.name, inst)
	}
	return out
}

// Destroy releases every instance and empties the tree.
func (c *ExposedPortsCollection) Destroy() {
	for _, t := range c.templates {
		for _, in := range t.instances {
			in.Destroy()
		}
	}
	c.templates = nil
}

func (c *ExposedPortsCollection) emit(kind EventKind, key string) {
	if c.handler != nil {
		c.handler(CollectionEvent{Kind: kind, Prop: c.prop, Key: key})
	}
}

// ExposedPortsFromDB reads {template: {instance: [ports]}}. Port lists that
// are not lists of strings read as empty.
func ExposedPortsFromDB(v any) ExposedPortsData {
	return EntriesFromDB(v, func(_ string, tpl *wire.Object) Entries[PortListData] {
		out := make(Entries[PortListData], 0, tpl.Len())
		tpl.Range(func(name string, val any) bool {
			ports, ok := wire.Strings(val)
			if !ok {
				ports = []string{}
			}
			out = append(out, Entry[PortListData]{
				Key:     name,
				Content: PortListData{BaseData: BaseData{Name: Ptr(name)}, Ports: ports},
			})
			return true
		})
		return out
	})
}
