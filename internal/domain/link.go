package domain

import (
	"strings"

	"github.com/example/flowide/internal/model"
	"github.com/example/flowide/internal/wire"
)

const (
	nodeSeparator    = "/"
	subFlowSeparator = "__"
)

// LinkData is the normalized form of a Link.
type LinkData struct {
	model.BaseData
	From       *string `json:"from,omitempty"`
	To         *string `json:"to,omitempty"`
	Dependency *int    `json:"dependency,omitempty"`
}

// Link connects an output port to an input port. Endpoints reference nodes
// by name; the link does not own them.
type Link struct {
	model.Base
	from       string
	to         string
	dependency int
}

func NewLink(env model.Env) *Link {
	l := &Link{}
	l.Init(env, l, "from", "to", "dependency")
	return l
}

func (l *Link) From() string { return l.from }

func (l *Link) SetFrom(v string) {
	l.from = v
	l.Changed("from", v)
}

func (l *Link) To() string { return l.to }

func (l *Link) SetTo(v string) {
	l.to = v
	l.Changed("to", v)
}

func (l *Link) Dependency() int { return l.dependency }

func (l *Link) SetDependency(v int) {
	l.dependency = v
	l.Changed("dependency", v)
}

// Nodes returns the ids of the nodes at both ends.
func (l *Link) Nodes() []string {
	return []string{ParseEndpoint(l.from).Node, ParseEndpoint(l.to).Node}
}

func (l *Link) SetData(d LinkData) []string {
	applied := l.SetBaseData(d.BaseData)
	if d.From != nil {
		l.SetFrom(*d.From)
		applied = append(applied, "from")
	}
	if d.To != nil {
		l.SetTo(*d.To)
		applied = append(applied, "to")
	}
	if d.Dependency != nil {
		l.SetDependency(*d.Dependency)
		applied = append(applied, "dependency")
	}
	return applied
}

func (l *Link) Serialize() LinkData {
	return LinkData{
		BaseData:   model.BaseData{ID: model.Ptr(l.ID())},
		From:       model.Ptr(l.from),
		To:         model.Ptr(l.to),
		Dependency: model.Ptr(l.dependency),
	}
}

func (l *Link) SerializeToDB() any {
	return wire.NewObject().
		Set("From", l.from).
		Set("To", l.to).
		Set("Dependency", l.dependency)
}

// LinkFromDB reads {From, To, Dependency} keyed by the link id.
func LinkFromDB(key string, content *wire.Object) LinkData {
	dep := optInt(content, "Dependency")
	if dep == nil {
		dep = model.Ptr(0)
	}
	return LinkData{
		BaseData:   model.BaseData{ID: model.Ptr(key)},
		From:       optString(content, "From"),
		To:         optString(content, "To"),
		Dependency: dep,
	}
}

// LinksFromDB reads a Links section.
func LinksFromDB(v any) model.Entries[LinkData] {
	return model.EntriesFromDB(v, LinkFromDB)
}

// Endpoint is a parsed link end such as "align/trans/in" or
// "subflow__node/port/in".
type Endpoint struct {
	// Node is the node or sub-flow the link attaches to in this flow.
	Node string
	// Port is the rest of the reference: the port of a node, or the
	// node/port path inside a sub-flow.
	Port string
	// Path lists the sub-flow chain down to the node.
	Path []string
}

// ParseEndpoint splits a link end on "/", then its first segment on "__".
func ParseEndpoint(s string) Endpoint {
	head, rest, _ := strings.Cut(s, nodeSeparator)
	path := strings.Split(head, subFlowSeparator)
	e := Endpoint{Node: path[0], Port: rest, Path: path}
	if len(path) > 1 {
		e.Port = strings.TrimPrefix(s, path[0]+subFlowSeparator)
	}
	return e
}

// LinkRef is what AddLink reports back.
type LinkRef struct {
	ID   string `json:"id"`
	From string `json:"from"`
	To   string `json:"to"`
}
