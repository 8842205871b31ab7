// Package model holds the reactive entity framework shared by every document
// type: the Base entity with its lifecycle flags, ordered child collections
// and the exposed-ports tree.
package model

import (
	"context"
	"fmt"

	"github.com/example/flowide/internal/observable"
)

const (
	// DefaultWorkspace is the workspace of entities that never had one set.
	DefaultWorkspace = "global"

	// NotAvailable fills details nobody recorded.
	NotAvailable = "N/A"
)

// Details records who last changed a document and when.
type Details struct {
	User string `json:"user"`
	Date string `json:"date"`
}

// DefaultDetails returns {N/A, N/A}.
func DefaultDetails() Details {
	return Details{User: NotAvailable, Date: NotAvailable}
}

// BaseData is the normalized form of the fields every entity has.
// A nil field is unset and left alone by SetData.
type BaseData struct {
	ID        *string  `json:"id,omitempty"`
	Name      *string  `json:"name,omitempty"`
	Version   *string  `json:"version,omitempty"`
	Workspace *string  `json:"workspace,omitempty"`
	Details   *Details `json:"details,omitempty"`
}

// Base is embedded by every entity. Setters of observed fields call Changed,
// which marks the entity dirty and notifies subscribers while the gate is open.
//
// Init must be called before use.
type Base struct {
	env      Env
	obs      *observable.Observable
	observed map[string]bool
	forward  func(field string, value any)

	id        string
	hasID     bool
	name      string
	version   string
	workspace string
	details   Details

	isNew    bool
	isLoaded bool
	isDirty  bool
}

var baseObserved = []string{"id", "name", "version", "workspace", "details"}

// Init prepares the base for self, observing the base fields plus observed.
func (b *Base) Init(env Env, self any, observed ...string) {
	b.env = env
	b.obs = env.NewObservable(self)
	b.observed = make(map[string]bool, len(baseObserved)+len(observed))
	for _, f := range baseObserved {
		b.observed[f] = true
	}
	for _, f := range observed {
		b.observed[f] = true
	}
	b.workspace = DefaultWorkspace
	b.details = DefaultDetails()
	b.isNew = true
	b.isDirty = true
}

// Env returns the collaborators the entity was created with.
func (b *Base) Env() Env { return b.env }

// Changed reports a mutation of field. It returns whether the mutation was
// observed: the field is in the observed set and the gate is open.
func (b *Base) Changed(field string, value any) bool {
	if !b.observed[field] || !b.obs.Enabled() {
		return false
	}
	b.isDirty = true
	if b.forward != nil {
		b.forward(field, value)
	}
	b.obs.Dispatch(field, value)
	return true
}

// Observes reports whether field is in the observed set.
func (b *Base) Observes(field string) bool { return b.observed[field] }

// ID returns the explicit id, or the name when none was set.
func (b *Base) ID() string {
	if b.hasID {
		return b.id
	}
	return b.name
}

// HasID reports whether an explicit id was set.
func (b *Base) HasID() bool { return b.hasID }

func (b *Base) SetID(v string) {
	b.id, b.hasID = v, true
	b.Changed("id", v)
}

func (b *Base) Name() string { return b.name }

func (b *Base) SetName(v string) {
	b.name = v
	b.Changed("name", v)
}

func (b *Base) Version() string { return b.version }

func (b *Base) SetVersion(v string) {
	b.version = v
	b.Changed("version", v)
}

func (b *Base) Workspace() string { return b.workspace }

func (b *Base) SetWorkspace(v string) {
	b.workspace = v
	b.Changed("workspace", v)
}

func (b *Base) Details() Details { return b.details }

func (b *Base) SetDetails(v Details) {
	b.details = v
	b.Changed("details", v)
}

func (b *Base) IsNew() bool        { return b.isNew }
func (b *Base) SetIsNew(v bool)    { b.isNew = v }
func (b *Base) IsLoaded() bool     { return b.isLoaded }
func (b *Base) SetIsLoaded(v bool) { b.isLoaded = v }
func (b *Base) IsDirty() bool      { return b.isDirty }
func (b *Base) SetDirty(v bool)    { b.isDirty = v }

// URLFor addresses the entity as workspace/scope/name.
func (b *Base) URLFor(scope string) string {
	return fmt.Sprintf("%s/%s/%s", b.workspace, scope, b.name)
}

// SetBaseData applies the set fields of d and returns their names.
func (b *Base) SetBaseData(d BaseData) []string {
	var applied []string
	if d.ID != nil {
		b.SetID(*d.ID)
		applied = append(applied, "id")
	}
	if d.Name != nil {
		b.SetName(*d.Name)
		applied = append(applied, "name")
	}
	if d.Version != nil {
		b.SetVersion(*d.Version)
		applied = append(applied, "version")
	}
	if d.Workspace != nil {
		b.SetWorkspace(*d.Workspace)
		applied = append(applied, "workspace")
	}
	if d.Details != nil {
		b.SetDetails(*d.Details)
		applied = append(applied, "details")
	}
	return applied
}

// Identity returns the name, and the id when one was set explicitly.
// Sub-entities serialize with it.
func (b *Base) Identity() BaseData {
	d := BaseData{Name: Ptr(b.name)}
	if b.hasID {
		d.ID = Ptr(b.id)
	}
	return d
}

// Snapshot returns every base field. Documents serialize with it.
func (b *Base) Snapshot() BaseData {
	d := BaseData{
		ID:        Ptr(b.ID()),
		Name:      Ptr(b.name),
		Workspace: Ptr(b.workspace),
		Details:   Ptr(b.details),
	}
	if b.version != "" {
		d.Version = Ptr(b.version)
	}
	return d
}

// Load runs apply with the gate closed and leaves the entity clean and not
// new, the state of an entity read from storage.
func (b *Base) Load(apply func()) {
	b.obs.SetEnabled(false)
	apply()
	b.obs.SetEnabled(true)
	b.isDirty = false
	b.isNew = false
}

// EnableObservables opens or closes the gate.
func (b *Base) EnableObservables(on bool) { b.obs.SetEnabled(on) }

// ObservablesEnabled reports whether the gate is open.
func (b *Base) ObservablesEnabled() bool { return b.obs.Enabled() }

func (b *Base) Subscribe(cb observable.Callback) observable.SubscriptionID {
	return b.obs.Subscribe(cb)
}

func (b *Base) Unsubscribe(id observable.SubscriptionID) bool {
	return b.obs.Unsubscribe(id)
}

// Subscribers returns the number of live subscriptions.
func (b *Base) Subscribers() int { return b.obs.Subscribers() }

// SetForward installs the hook an owning collection uses to hear about
// changes synchronously.
func (b *Base) SetForward(fn func(field string, value any)) { b.forward = fn }

// Destroy drops subscribers and the owner hook.
func (b *Base) Destroy() {
	b.obs.Destroy()
	b.forward = nil
}

// ValidateWith runs the injected validator. Without one everything is valid.
func (b *Base) ValidateWith(ctx context.Context, schema string, data any) ValidationResult {
	if b.env.Validator == nil {
		return Valid()
	}
	return b.env.Validator.Validate(ctx, schema, data)
}
