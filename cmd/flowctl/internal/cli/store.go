package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/flowide/internal/domain"
	"github.com/example/flowide/internal/service"
	"github.com/example/flowide/internal/storage"
)

// keyView is how store commands print a document key.
type keyView struct {
	Workspace string `json:"workspace"`
	Scope     string `json:"scope"`
	Name      string `json:"name"`
}

func newStoreCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Read and write documents in the database",
		Long: `Store commands work on the documents of one workspace (--workspace).

The database is created and migrated on first use.`,
	}
	cmd.AddCommand(newStorePutCmd(a), newStoreGetCmd(a), newStoreListCmd(a), newStoreRemoveCmd(a))
	return cmd
}

func newStorePutCmd(a *app) *cobra.Command {
	var scope string
	cmd := &cobra.Command{
		Use:   "put <file>",
		Short: "Validate and save a document",
		Long: `Save a document under its Label, creating it or replacing the stored one.

The document is validated first and LastUpdate is stamped with --user and
the current time.

EXAMPLES:
  flowctl store put flow.json
  flowctl store put --scope Configuration robot.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			obj, err := readDocument(cmd, args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			return a.withService(ctx, func(svc *service.DocumentService) error {
				t, err := svc.Open(scope, obj)
				if err != nil {
					return err
				}
				defer t.Doc.Destroy()
				if t.Doc.Name() == "" {
					return fmt.Errorf("%s: document has no Label", args[0])
				}
				t.Doc.SetWorkspace(a.cfg.Workspace)
				t.Doc.SetIsNew(true)

				stored, err := svc.Load(ctx, t.Key())
				switch {
				case err == nil:
					t.Revision = stored.Revision
					t.Doc.SetIsNew(false)
					stored.Doc.Destroy()
				case !errors.Is(err, domain.ErrNotFound):
					return err
				}

				if err := svc.Save(ctx, t); err != nil {
					return err
				}
				a.status.Success(fmt.Sprintf("saved %s (revision %d)", t.Doc.URL(), t.Revision))
				return a.print(cmd.OutOrStdout(), map[string]any{
					"url":      t.Doc.URL(),
					"revision": t.Revision,
					"details":  t.Doc.Details(),
				})
			})
		},
	}
	cmd.Flags().StringVarP(&scope, "scope", "s", domain.ScopeFlow, "document scope")
	return cmd
}

func newStoreGetCmd(a *app) *cobra.Command {
	var decode bool
	cmd := &cobra.Command{
		Use:   "get <scope> <name>",
		Short: "Print a stored document",
		Long: `Print a stored document in its stored form, or normalized with --decode.

EXAMPLES:
  flowctl store get Flow align_and_drive
  flowctl store get --decode -o yaml Node align`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			key := storage.Key{Workspace: a.cfg.Workspace, Scope: args[0], Name: args[1]}
			return a.withService(ctx, func(svc *service.DocumentService) error {
				t, err := svc.Load(ctx, key)
				if err != nil {
					return err
				}
				defer t.Doc.Destroy()
				if decode {
					return a.print(cmd.OutOrStdout(), t.Doc.Normalized())
				}
				return a.print(cmd.OutOrStdout(), t.Doc.SerializeToDB())
			})
		},
	}
	cmd.Flags().BoolVar(&decode, "decode", false, "print the normalized form")
	return cmd
}

func newStoreListCmd(a *app) *cobra.Command {
	var (
		prefix string
		limit  int
		offset int
		all    bool
	)
	cmd := &cobra.Command{
		Use:   "ls [scope]",
		Short: "List stored documents",
		Long: `List the documents of the workspace, optionally of one scope.

EXAMPLES:
  # Every flow
  flowctl store ls Flow

  # Documents whose name starts with "align", across workspaces
  flowctl store ls --all --prefix align`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := storage.ListOptions{Prefix: prefix, Limit: limit, Offset: offset}
			if !all {
				opts.Workspace = a.cfg.Workspace
			}
			if len(args) == 1 {
				opts.Scope = args[0]
			}

			ctx := cmd.Context()
			return a.withService(ctx, func(svc *service.DocumentService) error {
				keys, err := svc.List(ctx, opts)
				if err != nil {
					return err
				}
				views := make([]keyView, len(keys))
				for i, k := range keys {
					views[i] = keyView{Workspace: k.Workspace, Scope: k.Scope, Name: k.Name}
				}
				return a.print(cmd.OutOrStdout(), views)
			})
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "only names starting with prefix")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "limit number of documents shown (0 = all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "skip this many documents")
	cmd.Flags().BoolVar(&all, "all", false, "list every workspace")
	return cmd
}

func newStoreRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <scope> <name>",
		Short: "Delete a stored document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			key := storage.Key{Workspace: a.cfg.Workspace, Scope: args[0], Name: args[1]}
			return a.withService(ctx, func(svc *service.DocumentService) error {
				if err := svc.Delete(ctx, key); err != nil {
					return err
				}
				a.status.Success("deleted " + key.String())
				return nil
			})
		},
	}
}
