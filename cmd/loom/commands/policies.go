package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/loomworks/loom/pkg/policy"
)

func newPoliciesCommand() *cobra.Command {
	var policyPaths []string

	cmd := &cobra.Command{
		Use:   "policies",
		Short: "List guard policies",
		Long: `List the guard policies that would run during synthesis: the
built-in set plus any loaded with --policy.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			guard, err := policy.NewGuard(log.Logger)
			if err != nil {
				return err
			}
			if len(policyPaths) > 0 {
				if err := guard.LoadPaths(cmd.Context(), policyPaths); err != nil {
					return err
				}
			}

			policies := guard.ListPolicies()
			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(policies)
			}

			for _, p := range policies {
				state := "enabled"
				if !p.Enabled {
					state = "disabled"
				}
				fmt.Printf("%-24s %-8s %-9s %s\n", p.Name, p.Severity, state, p.Description)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&policyPaths, "policy", nil, "additional guard policy files or directories")

	return cmd
}
