package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/example/flowide/internal/domain"
	"github.com/example/flowide/internal/log"
	"github.com/example/flowide/internal/observability"
	"github.com/example/flowide/internal/observable"
	"github.com/example/flowide/internal/wire"
)

const testFlow = `{
  "Label": "f1",
  "Description": "align then drive",
  "NodeInst": {
    "align": {"Template": "align_cart", "NodeLabel": "align"},
    "drive": {"Template": "drive", "NodeLabel": "drive"}
  },
  "Links": {
    "l1": {"From": "align/out/out", "To": "drive/in/in"}
  },
  "Parameter": {
    "speed": {"Value": "$(config robot.arm.speed)"}
  }
}`

const testConfiguration = `{"Label": "robot", "Yaml": "arm:\n  speed: 2\n"}`

// setup isolates flowctl from the environment and returns a temp dir.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("FLOWCTL_DB", filepath.Join(dir, "flowide.db"))
	t.Setenv("FLOWCTL_DRIVER", "")
	t.Setenv("FLOWCTL_WORKSPACE", "")
	t.Setenv("FLOWCTL_USER", "tester")
	t.Setenv("FLOWCTL_OUTPUT", "")
	t.Setenv("FLOWCTL_METRICS", "")
	return dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetArgs(append([]string{"--plain"}, args...))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func readObject(t *testing.T, path string) *wire.Object {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	obj, err := wire.ParseObject(data)
	require.NoError(t, err)
	return obj
}

func TestLoadConfig(t *testing.T) {
	setup(t)
	t.Setenv("FLOWCTL_OUTPUT", "yaml")
	t.Setenv("FLOWCTL_WORKSPACE", "lab")
	t.Setenv("FLOWCTL_METRICS", "true")

	cfg := loadConfig()
	assert.Equal(t, OutputYAML, cfg.Output)
	assert.Equal(t, "lab", cfg.Workspace)
	assert.Equal(t, "tester", cfg.User)
	assert.True(t, cfg.Metrics)
	assert.NoError(t, cfg.validate())

	cfg.Output = "xml"
	assert.Error(t, cfg.validate())
}

func TestUnknownOutputIsRejected(t *testing.T) {
	setup(t)
	_, _, err := run(t, "--output", "xml", "scopes")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestDecode(t *testing.T) {
	dir := setup(t)
	path := writeFile(t, dir, "flow.json", testFlow)

	out, _, err := run(t, "decode", path)
	require.NoError(t, err)
	var data map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &data))
	assert.Equal(t, "f1", data["name"])
	assert.Contains(t, data["nodeInstances"], "align")

	out, _, err = run(t, "decode", "-o", "yaml", path)
	require.NoError(t, err)
	data = nil
	require.NoError(t, yaml.Unmarshal([]byte(out), &data))
	assert.Equal(t, "align then drive", data["description"])
}

func TestEncodeWritesCanonicalOrder(t *testing.T) {
	dir := setup(t)
	path := writeFile(t, dir, "flow.json", testFlow)

	out, _, err := run(t, "encode", path)
	require.NoError(t, err)
	obj, err := wire.ParseObject([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, []string{"Label", "Description", "LastUpdate", "NodeInst", "Links", "Parameter"}, obj.Keys())
}

func TestValidate(t *testing.T) {
	dir := setup(t)
	valid := writeFile(t, dir, "valid.json", testFlow)
	invalid := writeFile(t, dir, "invalid.json",
		`{"Label": "f2", "Links": {"l1": {"From": "a/out/out", "To": "a/out/out"}}}`)

	out, stderr, err := run(t, "validate", valid)
	require.NoError(t, err)
	assert.JSONEq(t, `{"result": true}`, out)
	assert.Contains(t, stderr, "is valid")

	out, _, err = run(t, "validate", invalid)
	require.ErrorIs(t, err, ErrInvalid)
	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, false, res["result"])
	assert.Contains(t, res["error"], "to itself")
}

func TestValidateResolvesConfigurations(t *testing.T) {
	dir := setup(t)
	flow := writeFile(t, dir, "flow.json", testFlow)
	cfg := writeFile(t, dir, "robot.json", testConfiguration)

	_, _, err := run(t, "validate", "--resolve", flow)
	require.ErrorIs(t, err, ErrInvalid, "configuration not stored yet")

	_, _, err = run(t, "store", "put", "--scope", domain.ScopeConfiguration, cfg)
	require.NoError(t, err)

	_, _, err = run(t, "validate", "--resolve", flow)
	assert.NoError(t, err)
}

func TestFlowEdits(t *testing.T) {
	dir := setup(t)
	path := writeFile(t, dir, "flow.json", testFlow)

	out, _, err := run(t, "flow", "add-link", path, "drive/out/out", "align/in/in")
	require.NoError(t, err)
	var ref domain.LinkRef
	require.NoError(t, json.Unmarshal([]byte(out), &ref))
	require.NotEmpty(t, ref.ID)
	assert.Equal(t, "drive/out/out", ref.From)

	_, _, err = run(t, "flow", "set-dependency", path, ref.ID, "2")
	require.NoError(t, err)
	links, ok := wire.AsObject(readObject(t, path).Value("Links"))
	require.True(t, ok)
	link, ok := wire.AsObject(links.Value(ref.ID))
	require.True(t, ok)
	dep, _ := wire.Int(link.Value("Dependency"))
	assert.Equal(t, 2, dep)

	_, _, err = run(t, "flow", "set-dependency", path, "missing", "1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	out, _, err = run(t, "flow", "toggle-port", path, "align_cart", "align", "out/out")
	require.NoError(t, err)
	assert.JSONEq(t, `{"align_cart": {"align": ["out/out"]}}`, out)

	out, _, err = run(t, "flow", "delete-node", path, "align")
	require.NoError(t, err)
	var deleted []string
	require.NoError(t, json.Unmarshal([]byte(out), &deleted))
	assert.ElementsMatch(t, []string{"l1", ref.ID}, deleted)

	flow := readObject(t, path)
	nodes, _ := wire.AsObject(flow.Value("NodeInst"))
	assert.Equal(t, []string{"drive"}, nodes.Keys())
	assert.False(t, flow.Has("Links"), "empty sections are dropped")
}

func TestFlowEditToStdout(t *testing.T) {
	dir := setup(t)
	path := writeFile(t, dir, "flow.json", testFlow)

	out, _, err := run(t, "flow", "delete-node", "--out", "-", path, "drive")
	require.NoError(t, err)
	edited, err := wire.ParseObject([]byte(out))
	require.NoError(t, err)
	nodes, _ := wire.AsObject(edited.Value("NodeInst"))
	assert.Equal(t, []string{"align"}, nodes.Keys())

	// the input file is untouched
	original := readObject(t, path)
	nodes, _ = wire.AsObject(original.Value("NodeInst"))
	assert.Equal(t, []string{"align", "drive"}, nodes.Keys())
}

func TestStoreCommands(t *testing.T) {
	dir := setup(t)
	cfg := writeFile(t, dir, "robot.json", testConfiguration)
	flow := writeFile(t, dir, "flow.json", testFlow)

	_, _, err := run(t, "store", "put", "--scope", domain.ScopeConfiguration, cfg)
	require.NoError(t, err)

	out, stderr, err := run(t, "store", "put", flow)
	require.NoError(t, err)
	assert.Contains(t, stderr, "saved global/Flow/f1 (revision 1)")
	var put map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &put))
	assert.EqualValues(t, 1, put["revision"])
	assert.Equal(t, "tester", put["details"].(map[string]any)["user"])

	out, _, err = run(t, "store", "put", flow)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &put))
	assert.EqualValues(t, 2, put["revision"])

	out, _, err = run(t, "store", "get", "Flow", "f1")
	require.NoError(t, err)
	stored, err := wire.ParseObject([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, "f1", stored.Value("Label"))
	lastUpdate, _ := wire.AsObject(stored.Value("LastUpdate"))
	assert.Equal(t, "tester", lastUpdate.Value("user"))

	out, _, err = run(t, "store", "ls")
	require.NoError(t, err)
	var keys []keyView
	require.NoError(t, json.Unmarshal([]byte(out), &keys))
	assert.Equal(t, []keyView{
		{Workspace: "global", Scope: "Configuration", Name: "robot"},
		{Workspace: "global", Scope: "Flow", Name: "f1"},
	}, keys)

	out, _, err = run(t, "store", "ls", "--workspace", "lab")
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(out))

	_, stderr, err = run(t, "store", "rm", "Flow", "f1")
	require.NoError(t, err)
	assert.Contains(t, stderr, "deleted global/Flow/f1")

	_, _, err = run(t, "store", "get", "Flow", "f1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, _, err = run(t, "store", "rm", "Flow", "f1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStorePutRejectsInvalid(t *testing.T) {
	dir := setup(t)
	path := writeFile(t, dir, "robot.json", `{"Label": "robot", "Yaml": "speed: [1"}`)

	_, _, err := run(t, "store", "put", "--scope", domain.ScopeConfiguration, path)
	assert.ErrorContains(t, err, "invalid document")

	out, _, err := run(t, "store", "ls")
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(out))
}

func TestMetricsReport(t *testing.T) {
	dir := setup(t)
	flow := writeFile(t, dir, "flow.json", testFlow)
	t.Setenv("FLOWCTL_METRICS", "1")

	// the flow references a configuration that is not stored
	_, _, err := run(t, "store", "put", flow)
	require.Error(t, err)

	_, stderr, err := run(t, "store", "ls")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Metrics")
}

func TestEntityCallbacksWaitForCommandQueue(t *testing.T) {
	setup(t)
	a := &app{cfg: loadConfig(), metrics: observability.NewMetrics(), logger: log.Nop{}}
	f := domain.NewFlow(a.env(nil))

	var got []string
	f.Subscribe(func(ev observable.Event) { got = append(got, ev.Field) })
	f.SetDescription("x")
	assert.Empty(t, got)
	assert.Equal(t, 1, a.events.Len())

	a.events.Drain()
	assert.Equal(t, []string{"description"}, got)
}
