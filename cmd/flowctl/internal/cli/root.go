package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/example/flowide/cmd/flowctl/internal/ui"
	"github.com/example/flowide/internal/log"
	"github.com/example/flowide/internal/model"
	"github.com/example/flowide/internal/observability"
	"github.com/example/flowide/internal/observable"
	"github.com/example/flowide/internal/service"
	"github.com/example/flowide/internal/storage/sqldb"
	"github.com/example/flowide/internal/validation"
	"github.com/example/flowide/internal/wire"
)

// app is the state shared by every command of one invocation.
type app struct {
	cfg     Config
	plain   bool
	metrics *observability.Metrics
	logger  log.Logger
	status  *ui.Printer
	// events holds entity callbacks until the command finishes.
	events observable.Queue
}

// NewRootCmd builds the flowctl command tree.
func NewRootCmd() *cobra.Command {
	a := &app{cfg: loadConfig(), metrics: observability.NewMetrics(), logger: log.Nop{}}

	root := &cobra.Command{
		Use:   "flowctl",
		Short: "Inspect, edit and store flow documents",
		Long: `flowctl works with the documents of the flow editor: flows, nodes,
callbacks and configurations, in their stored JSON form.

File commands read a document from a file ("-" is stdin). Store commands
use a SQLite file or a PostgreSQL database.

WORKFLOW:
  1. flowctl validate --scope Flow flow.json
  2. flowctl flow add-link flow.json align/out/out drive/in/in
  3. flowctl store put --scope Flow flow.json
  4. flowctl store ls Flow

ENVIRONMENT:
  FLOWCTL_DB         database file or DSN (default: flowide.db)
  FLOWCTL_DRIVER     sqlite3 or pgx (default: sqlite3)
  FLOWCTL_WORKSPACE  workspace of stored documents (default: global)
  FLOWCTL_USER       user recorded in LastUpdate
  FLOWCTL_OUTPUT     json or yaml
  FLOWCTL_METRICS    print metrics to stderr after each command`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.validate(); err != nil {
				return err
			}
			a.status = &ui.Printer{W: cmd.ErrOrStderr(), Plain: a.plain}
			if a.cfg.Verbose {
				a.logger = &log.Default{Tags: []any{"cmd", cmd.Name()}}
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.events.Drain()
			if a.cfg.Metrics {
				a.status.Header("Metrics")
				a.metrics.WriteText(cmd.ErrOrStderr())
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfg.DB, "db", a.cfg.DB, "database file (sqlite3) or DSN (pgx)")
	flags.StringVar(&a.cfg.Driver, "driver", a.cfg.Driver, "database driver: sqlite3 or pgx")
	flags.StringVarP(&a.cfg.Workspace, "workspace", "w", a.cfg.Workspace, "workspace of stored documents")
	flags.StringVar(&a.cfg.User, "user", a.cfg.User, "user recorded in LastUpdate on save")
	flags.StringVarP(&a.cfg.Output, "output", "o", a.cfg.Output, "output format: json or yaml")
	flags.BoolVar(&a.cfg.Metrics, "metrics", a.cfg.Metrics, "print metrics to stderr when done")
	flags.BoolVarP(&a.cfg.Verbose, "verbose", "v", a.cfg.Verbose, "log storage and save activity")
	flags.BoolVar(&a.plain, "plain", false, "disable colored status output")

	root.AddCommand(newDecodeCmd(a))
	root.AddCommand(newEncodeCmd(a))
	root.AddCommand(newValidateCmd(a))
	root.AddCommand(newFlowCmd(a))
	root.AddCommand(newStoreCmd(a))
	root.AddCommand(newScopesCmd(a))
	return root
}

// Execute runs flowctl with the process arguments.
func Execute() error {
	return NewRootCmd().Execute()
}

// env returns the entity environment. Callbacks wait in the invocation's
// queue, which is drained on the command goroutine once the command is done.
func (a *app) env(v model.Validator) model.Env {
	return model.Env{
		Scheduler: &a.events,
		Logger:    a.logger,
		Recorder:  a.metrics,
		Validator: v,
	}
}

// withService opens the store for the duration of fn.
func (a *app) withService(ctx context.Context, fn func(*service.DocumentService) error) error {
	store, err := sqldb.Open(a.cfg.Driver, a.cfg.DB, sqldb.WithMetrics(a.metrics), sqldb.WithLogger(a.logger))
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	// $(config ...) references resolve against the same store.
	var svc *service.DocumentService
	validator := validation.New(validation.WithConfigLookup(func(ctx context.Context, name string) (string, error) {
		return svc.ConfigSource(a.cfg.Workspace)(ctx, name)
	}))
	svc = service.NewDocumentService(store, a.env(validator),
		service.WithMetrics(a.metrics),
		service.WithLogger(a.logger),
		service.WithUser(a.cfg.User))
	return fn(svc)
}

// readDocument reads a wire document from path, or stdin for "-".
func readDocument(cmd *cobra.Command, path string) (*wire.Object, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	obj, err := wire.ParseObject(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return obj, nil
}

// writeDocument writes doc as indented JSON to path, or w for "-".
func writeDocument(w io.Writer, path string, doc *wire.Object) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "-" {
		_, err = w.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// print writes v to w in the configured output format.
func (a *app) print(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	if a.cfg.Output == OutputYAML {
		doc, err := wire.Parse(data)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(yamlDoc(doc)); err != nil {
			return err
		}
		return enc.Close()
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err = w.Write(buf.Bytes())
	return err
}

// yamlDoc turns numbers outside objects into plain values. Objects render
// themselves in key order.
func yamlDoc(v any) any {
	switch t := v.(type) {
	case json.Number:
		return wire.Plain(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = yamlDoc(t[i])
		}
		return out
	}
	return v
}
