package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/example/flowide/internal/domain"
)

func newFlowCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "flow",
		Short: "Edit the graph of a flow file",
		Long: `Edit a flow file in place, or write the result to --out ("-" is stdout).

The result of the edit (deleted links, the new link, exposed ports) is
printed in the output format.`,
	}
	cmd.PersistentFlags().StringVar(&out, "out", "", "write the edited flow here instead of in place")

	// edit loads the flow at path, applies fn and writes the flow back when fn
	// changed it.
	edit := func(cmd *cobra.Command, path string, fn func(*domain.Flow) (any, error)) error {
		obj, err := readDocument(cmd, path)
		if err != nil {
			return err
		}
		flow := domain.FlowOfJSON(a.env(nil), obj)
		defer flow.Destroy()

		result, err := fn(flow)
		if err != nil {
			return err
		}

		target := out
		if target == "" {
			target = path
		}
		if flow.IsDirty() {
			if err := writeDocument(cmd.OutOrStdout(), target, flow.SerializeToDB()); err != nil {
				return fmt.Errorf("failed to write flow: %w", err)
			}
		}
		if target == "-" {
			return nil
		}
		return a.print(cmd.OutOrStdout(), result)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle-port <file> <template> <node> <port>",
		Short: "Expose or hide a node port",
		Long: `Flip the exposure of a port of a node instance and print the exposed
ports of the flow.

EXAMPLES:
  flowctl flow toggle-port flow.json align_cart align out/out`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return edit(cmd, args[0], func(f *domain.Flow) (any, error) {
				return f.ToggleExposedPort(args[1], args[2], args[3]), nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete-node <file> <node>",
		Short: "Delete a node instance or sub-flow and its links",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return edit(cmd, args[0], func(f *domain.Flow) (any, error) {
				switch {
				case f.NodeInstances().CheckExists(args[1]):
					return f.DeleteNode(args[1]), nil
				case f.SubFlows().CheckExists(args[1]):
					return f.DeleteSubFlow(args[1]), nil
				}
				return nil, fmt.Errorf("node %q: %w", args[1], domain.ErrNotFound)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add-link <file> <from> <to>",
		Short: "Connect two ports",
		Long: `Add a link between two port references and print it with its new id.

EXAMPLES:
  flowctl flow add-link flow.json align/out/out drive/in/in`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return edit(cmd, args[0], func(f *domain.Flow) (any, error) {
				return f.AddLink(args[1], args[2])
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set-dependency <file> <link> <level>",
		Short: "Set the dependency level of a link",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid level %q: %w", args[2], err)
			}
			return edit(cmd, args[0], func(f *domain.Flow) (any, error) {
				if err := f.SetLinkDependency(args[1], level); err != nil {
					return nil, err
				}
				return map[string]any{"id": args[1], "dependency": level}, nil
			})
		},
	})

	return cmd
}
