package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/loomworks/loom/pkg/spec"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [path...]",
		Short: "Validate stack documents",
		Long: `Validate stack documents without synthesizing anything.

This command checks:
  - CUE/YAML syntax validity
  - Family schema conformance
  - Spec field and cross-field rules, reporting every violation at once`,
		Example: `  # Validate documents in current directory
  loom validate

  # Validate a specific document
  loom validate ./stacks/orders.cue`,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := args
			if len(paths) == 0 {
				paths = []string{"."}
			}

			doc, err := loadDocument(cmd.Context(), paths)
			if err != nil {
				return err
			}

			specs, err := doc.Specs()
			if err != nil {
				return err
			}

			type report struct {
				LogicalID  string                 `json:"logical_id"`
				Family     string                 `json:"family"`
				Violations []spec.ValidationError `json:"violations,omitempty"`
			}

			var reports []report
			var invalid int
			for _, s := range specs {
				violations := spec.Validate(s)
				metrics.RecordSpecValidated(string(s.Family()), len(violations) == 0, len(violations))
				if len(violations) > 0 {
					invalid++
				}
				reports = append(reports, report{
					LogicalID:  s.ID(),
					Family:     string(s.Family()),
					Violations: violations,
				})
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(reports); err != nil {
					return err
				}
			} else {
				for _, r := range reports {
					if len(r.Violations) == 0 {
						log.Info().Str("logical_id", r.LogicalID).Str("family", r.Family).Msg("valid")
						continue
					}
					for _, v := range r.Violations {
						log.Error().Str("logical_id", r.LogicalID).Str("family", r.Family).Msg(v.Error())
					}
				}
			}

			if invalid > 0 {
				return fmt.Errorf("%d of %d spec(s) failed validation", invalid, len(specs))
			}
			log.Info().Int("specs", len(specs)).Str("stack", doc.Stack.Name).Msg("all specs valid")
			return nil
		},
	}

	return cmd
}
