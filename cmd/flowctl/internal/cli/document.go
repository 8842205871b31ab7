package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/flowide/internal/domain"
	"github.com/example/flowide/internal/service"
	"github.com/example/flowide/internal/validation"
)

// ErrInvalid is returned by validate when the document fails validation.
var ErrInvalid = errors.New("document is invalid")

func newDecodeCmd(a *app) *cobra.Command {
	var scope string
	cmd := &cobra.Command{
		Use:   "decode <file>",
		Short: "Print the normalized form of a stored document",
		Long: `Read a document in its stored JSON form and print the normalized
data the editor works with.

EXAMPLES:
  # Normalize a flow
  flowctl decode flow.json

  # Normalize a node as YAML
  flowctl decode --scope Node -o yaml node.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			obj, err := readDocument(cmd, args[0])
			if err != nil {
				return err
			}
			data, err := domain.Decode(scope, obj)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), data)
		},
	}
	cmd.Flags().StringVarP(&scope, "scope", "s", domain.ScopeFlow, "document scope")
	return cmd
}

func newEncodeCmd(a *app) *cobra.Command {
	var scope string
	cmd := &cobra.Command{
		Use:   "encode <file>",
		Short: "Load a document and write it back in its stored form",
		Long: `Load a document into the editor model and serialize it again.

The output is what the editor would store: sections in their canonical
order, empty sections dropped and defaults filled in.

EXAMPLES:
  flowctl encode flow.json > canonical.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			obj, err := readDocument(cmd, args[0])
			if err != nil {
				return err
			}
			doc, err := domain.Open(a.env(nil), scope, obj)
			if err != nil {
				return err
			}
			defer doc.Destroy()
			return a.print(cmd.OutOrStdout(), doc.SerializeToDB())
		},
	}
	cmd.Flags().StringVarP(&scope, "scope", "s", domain.ScopeFlow, "document scope")
	return cmd
}

func newValidateCmd(a *app) *cobra.Command {
	var (
		scope   string
		resolve bool
	)
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a document",
		Long: `Check a document the way the editor does before saving it.

Prints {result, error} and exits with status 1 when the document is invalid.
With --resolve, $(config name.key) parameter values must name a key of a
configuration in the store.

EXAMPLES:
  flowctl validate flow.json
  flowctl validate --resolve --db flowide.db flow.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			obj, err := readDocument(cmd, args[0])
			if err != nil {
				return err
			}

			check := func(v *validation.Validator) error {
				doc, err := domain.Open(a.env(v), scope, obj)
				if err != nil {
					return err
				}
				defer doc.Destroy()

				res := doc.Validate(cmd.Context())
				if err := a.print(cmd.OutOrStdout(), res); err != nil {
					return err
				}
				if !res.Result {
					a.status.Error(fmt.Sprintf("%s: %s", doc.URL(), res.Error))
					return ErrInvalid
				}
				a.status.Success(doc.URL() + " is valid")
				return nil
			}

			if !resolve {
				return check(validation.New())
			}
			return a.withService(cmd.Context(), func(svc *service.DocumentService) error {
				return check(validation.New(validation.WithConfigLookup(svc.ConfigSource(a.cfg.Workspace))))
			})
		},
	}
	cmd.Flags().StringVarP(&scope, "scope", "s", domain.ScopeFlow, "document scope")
	cmd.Flags().BoolVar(&resolve, "resolve", false, "resolve $(config ...) references against the store")
	return cmd
}

func newScopesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scopes",
		Short: "List the document scopes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.print(cmd.OutOrStdout(), domain.Scopes())
		},
	}
}
