package model

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/flowide/internal/observable"
	"github.com/example/flowide/internal/wire"
)

type noteData struct {
	BaseData
	Text *string `json:"text,omitempty"`
}

type note struct {
	Base
	text string
}

func newNote(env Env) *note {
	n := &note{}
	n.Init(env, n, "text")
	return n
}

func (n *note) SetText(v string) {
	n.text = v
	n.Changed("text", v)
}

func (n *note) SetData(d noteData) []string {
	applied := n.SetBaseData(d.BaseData)
	if d.Text != nil {
		n.SetText(*d.Text)
		applied = append(applied, "text")
	}
	return applied
}

func (n *note) Serialize() noteData {
	return noteData{BaseData: n.Identity(), Text: Ptr(n.text)}
}

func (n *note) SerializeToDB() any {
	return wire.NewObject().Set("Text", n.text)
}

func queueEnv() (Env, *observable.Queue) {
	q := &observable.Queue{}
	return Env{Scheduler: q}, q
}

func TestBaseDefaults(t *testing.T) {
	env, _ := queueEnv()
	n := newNote(env)

	assert.Equal(t, DefaultWorkspace, n.Workspace())
	assert.Equal(t, Details{User: "N/A", Date: "N/A"}, n.Details())
	assert.True(t, n.IsNew())
	assert.False(t, n.IsLoaded())
	assert.True(t, n.IsDirty())

	n.SetName("n1")
	assert.Equal(t, "n1", n.ID(), "id falls back to the name")
	n.SetID("x")
	assert.Equal(t, "x", n.ID())
	assert.Equal(t, "global/Note/n1", n.URLFor("Note"))
}

func TestDirtyFlag(t *testing.T) {
	env, q := queueEnv()
	n := newNote(env)

	var fields []string
	n.Subscribe(func(ev observable.Event) { fields = append(fields, ev.Field) })

	n.Load(func() { n.SetData(noteData{Text: Ptr("a")}) })
	assert.False(t, n.IsDirty())
	assert.False(t, n.IsNew())
	assert.Zero(t, q.Drain(), "bulk load must not notify")

	n.EnableObservables(false)
	n.SetText("b")
	assert.False(t, n.IsDirty())
	n.EnableObservables(true)

	n.SetText("c")
	assert.True(t, n.IsDirty())
	q.Drain()
	assert.Equal(t, []string{"text"}, fields)
}

func TestSetDataReturnsApplied(t *testing.T) {
	env, _ := queueEnv()
	n := newNote(env)
	applied := n.SetData(noteData{BaseData: BaseData{Name: Ptr("x")}, Text: Ptr("t")})
	assert.Equal(t, []string{"name", "text"}, applied)
	assert.Empty(t, n.SetData(noteData{}))
}

func TestValidateWithoutValidator(t *testing.T) {
	env, _ := queueEnv()
	n := newNote(env)
	assert.Equal(t, Valid(), n.ValidateWith(context.Background(), "Note", nil))

	env.Validator = ValidatorFunc(func(_ context.Context, schema string, _ any) ValidationResult {
		return Invalid("bad " + schema)
	})
	n = newNote(env)
	assert.Equal(t, ValidationResult{Result: false, Error: "bad Note"}, n.ValidateWith(context.Background(), "Note", nil))
}

func newNotes(env Env, events *[]CollectionEvent) *Collection[*note, noteData] {
	return NewCollection[*note, noteData]("notes", func() *note { return newNote(env) },
		func(ev CollectionEvent) { *events = append(*events, ev) })
}

func TestSetItemRejectsDuplicates(t *testing.T) {
	env, _ := queueEnv()
	var events []CollectionEvent
	c := newNotes(env, &events)

	require.NoError(t, c.SetItem("x", noteData{}))
	err := c.SetItem("x", noteData{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateKey)
	var dup *DuplicateKeyError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "x", dup.Key)
	assert.Equal(t, 1, c.Len())
}

func TestSetItemNamesFromKey(t *testing.T) {
	env, _ := queueEnv()
	var events []CollectionEvent
	c := newNotes(env, &events)

	require.NoError(t, c.SetItem("a", noteData{Text: Ptr("t")}))
	require.NoError(t, c.SetItem("b", noteData{BaseData: BaseData{Name: Ptr("renamed")}}))

	a, ok := c.Item("a")
	require.True(t, ok)
	assert.Equal(t, "a", a.Name())
	b, _ := c.Item("b")
	assert.Equal(t, "renamed", b.Name())
	assert.Equal(t, []string{"a", "b"}, c.Keys())
	assert.Equal(t, []string{"a", "renamed"}, c.Serialize().Keys())
	assert.Equal(t, EventCreate, events[0].Kind)
	assert.Equal(t, "notes", events[0].Prop)
}

func TestUpdateAndDeleteMissingAreNoops(t *testing.T) {
	env, _ := queueEnv()
	var events []CollectionEvent
	c := newNotes(env, &events)

	assert.False(t, c.UpdateItem("nope", noteData{Text: Ptr("x")}))
	assert.False(t, c.DeleteItem("nope"))
	assert.Empty(t, events)

	require.NoError(t, c.SetItem("a", noteData{}))
	a, _ := c.Item("a")
	a.Subscribe(func(observable.Event) {})
	assert.True(t, c.UpdateItem("a", noteData{Text: Ptr("x")}))
	assert.True(t, c.DeleteItem("a"))
	assert.Zero(t, a.Subscribers(), "deleted items are released")
	assert.False(t, c.HasItems())
}

func TestItemChangesReachOwner(t *testing.T) {
	env, _ := queueEnv()
	var events []CollectionEvent
	c := newNotes(env, &events)

	require.NoError(t, c.SetItem("a", noteData{}))
	events = nil
	a, _ := c.Item("a")
	a.SetText("changed")
	require.Len(t, events, 1)
	assert.Equal(t, CollectionEvent{Kind: EventUpdate, Prop: "notes", Key: "a"}, events[0])
}

func TestRenameItem(t *testing.T) {
	env, _ := queueEnv()
	var events []CollectionEvent
	c := newNotes(env, &events)
	require.NoError(t, c.SetItem("a", noteData{}))
	require.NoError(t, c.SetItem("b", noteData{}))
	a, _ := c.Item("a")

	require.NoError(t, c.RenameItem("a", "c"))
	assert.Equal(t, []string{"c", "b"}, c.Keys())
	moved, ok := c.Item("c")
	require.True(t, ok)
	assert.Same(t, a, moved)
	assert.Equal(t, "c", moved.Name())

	assert.ErrorIs(t, c.RenameItem("zz", "y"), ErrNotFound)
	assert.ErrorIs(t, c.RenameItem("c", "b"), ErrDuplicateKey)

	moved.SetText("x")
	assert.Equal(t, "c", events[len(events)-1].Key)
}

func TestIDCollectionKeysByID(t *testing.T) {
	env, _ := queueEnv()
	c := NewIDCollection[*note, noteData]("layers", func() *note { return newNote(env) }, nil)
	require.NoError(t, c.SetItem("0", noteData{BaseData: BaseData{ID: Ptr("0"), Name: Ptr("layer1")}}))

	assert.Equal(t, []string{"0"}, c.Serialize().Keys())
	assert.Equal(t, []string{"0"}, c.SerializeToDB().Keys())
	item, _ := c.Item("0")
	assert.Equal(t, "layer1", item.Name())
}

func TestSetDataJoinsDuplicates(t *testing.T) {
	env, _ := queueEnv()
	var events []CollectionEvent
	c := newNotes(env, &events)
	err := c.SetData(Entries[noteData]{{Key: "a"}, {Key: "a"}, {Key: "b"}})
	assert.ErrorIs(t, err, ErrDuplicateKey)
	assert.Equal(t, []string{"a", "b"}, c.Keys())
}

func TestEntriesJSON(t *testing.T) {
	in := `{"z":{"name":"z","text":"1"},"a":{"text":"2"}}`
	var e Entries[noteData]
	require.NoError(t, json.Unmarshal([]byte(in), &e))
	assert.Equal(t, []string{"z", "a"}, e.Keys())
	a, ok := e.Get("a")
	require.True(t, ok)
	assert.Equal(t, "2", *a.Text)

	out, err := json.Marshal(e)
	require.NoError(t, err)
	assert.Equal(t, in, string(out))
}

func TestEntriesFromDB(t *testing.T) {
	obj, err := wire.ParseObject([]byte(`{"b":{"Text":"1"},"a":"junk"}`))
	require.NoError(t, err)

	e := EntriesFromDB(obj, func(key string, content *wire.Object) noteData {
		d := noteData{BaseData: BaseData{Name: Ptr(key)}}
		if s, ok := wire.String(content.Value("Text")); ok {
			d.Text = Ptr(s)
		}
		return d
	})
	assert.Equal(t, []string{"b", "a"}, e.Keys())
	b, _ := e.Get("b")
	assert.Equal(t, "1", *b.Text)
	a, _ := e.Get("a")
	assert.Nil(t, a.Text)

	assert.Nil(t, EntriesFromDB(nil, func(string, *wire.Object) noteData { return noteData{} }))
}

func TestToggleTwiceRestoresState(t *testing.T) {
	env, _ := queueEnv()
	c := NewExposedPortsCollection(env, "exposedPorts", nil)
	c.TogglePort("tpl", "n1", "p1")
	c.TogglePort("tpl", "n1", "p2")
	c.TogglePort("other", "n2", "p1")

	before, err := json.Marshal(c.SerializeToDB())
	require.NoError(t, err)

	assert.Equal(t, []string{"p1", "p2", "p3"}, c.TogglePort("tpl", "n1", "p3"))
	assert.Equal(t, []string{"p1", "p2"}, c.TogglePort("tpl", "n1", "p3"))

	after, err := json.Marshal(c.SerializeToDB())
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
	assert.Equal(t, `{"tpl":{"n1":["p1","p2"]},"other":{"n2":["p1"]}}`, string(after))
}

func TestPruneAfterToggle(t *testing.T) {
	env, _ := queueEnv()
	var events []CollectionEvent
	c := NewExposedPortsCollection(env, "exposedPorts", func(ev CollectionEvent) { events = append(events, ev) })

	c.TogglePort("tpl", "n1", "p1")
	c.TogglePort("tpl", "n2", "p1")
	c.TogglePort("tpl", "n1", "p1")

	tpl, ok := c.Template("tpl")
	require.True(t, ok)
	assert.Equal(t, 1, tpl.Len())
	_, ok = tpl.Instance("n1")
	assert.False(t, ok)

	c.TogglePort("tpl", "n2", "p1")
	assert.False(t, c.HasItems())
	assert.Equal(t, 0, c.SerializeToDB().Len())
	assert.Len(t, events, 4)
}

func TestExposedPortsFromDBRoundTrip(t *testing.T) {
	doc := `{"align_cart":{"align":["trans_in","trans_out"],"empty":[]},"none":{}}`
	obj, err := wire.ParseObject([]byte(doc))
	require.NoError(t, err)

	env, _ := queueEnv()
	c := NewExposedPortsCollection(env, "exposedPorts", nil)
	c.SetData(ExposedPortsFromDB(obj))

	out, err := json.Marshal(c.SerializeToDB())
	require.NoError(t, err)
	assert.Equal(t, `{"align_cart":{"align":["trans_in","trans_out"]}}`, string(out))

	norm, err := json.Marshal(c.Serialize())
	require.NoError(t, err)
	assert.JSONEq(t, `{"align_cart":{"align":{"name":"align","ports":["trans_in","trans_out"]}}}`, string(norm))
}

func TestLoadedDuplicatePortsCollapse(t *testing.T) {
	obj, err := wire.ParseObject([]byte(`{"T":{"i":["a","a","b"]}}`))
	require.NoError(t, err)

	env, _ := queueEnv()
	c := NewExposedPortsCollection(env, "exposedPorts", nil)
	c.SetData(ExposedPortsFromDB(obj))

	out, err := json.Marshal(c.SerializeToDB())
	require.NoError(t, err)
	assert.Equal(t, `{"T":{"i":["a","b"]}}`, string(out))

	assert.Equal(t, []string{"b"}, c.TogglePort("T", "i", "a"), "one toggle hides the port")
}

func TestExposedPortsSetDataReplacesTree(t *testing.T) {
	obj, err := wire.ParseObject([]byte(`{"T":{"i":["a"]}}`))
	require.NoError(t, err)

	env, _ := queueEnv()
	var events []CollectionEvent
	c := NewExposedPortsCollection(env, "exposedPorts", func(ev CollectionEvent) { events = append(events, ev) })
	c.TogglePort("Old", "x", "p")
	c.SetData(ExposedPortsFromDB(obj))

	out, err := json.Marshal(c.SerializeToDB())
	require.NoError(t, err)
	assert.Equal(t, `{"T":{"i":["a"]}}`, string(out))
	_, ok := c.Template("Old")
	assert.False(t, ok)

	c.SetData(ExposedPortsData{})
	assert.False(t, c.HasItems())
	assert.Len(t, events, 3)
}
