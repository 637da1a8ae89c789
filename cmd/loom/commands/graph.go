package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newGraphCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "graph [path...]",
		Short: "Render synthesized graphs as DOT",
		Long: `Synthesize the stack documents and render each resource graph in
Graphviz DOT format, one digraph per declared resource.`,
		Example: `  # Render to stdout
  loom graph ./stacks/orders.cue

  # Render to a file
  loom graph -o orders.dot ./stacks/orders.cue`,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := args
			if len(paths) == 0 {
				paths = []string{"."}
			}

			doc, err := loadDocument(cmd.Context(), paths)
			if err != nil {
				return err
			}
			env, err := resolveEnvironment(doc)
			if err != nil {
				return err
			}
			results, err := synthesize(cmd.Context(), doc, env)
			if err != nil {
				return err
			}

			out := os.Stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}

			for _, r := range results {
				if _, err := fmt.Fprintln(out, r.Result.Graph.ToDOT()); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write DOT output to a file instead of stdout")

	return cmd
}
