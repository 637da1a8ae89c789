package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loomworks/loom/pkg/stores"
)

func newHistoryCommand() *cobra.Command {
	var (
		dbPath string
		stack  string
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded synthesis snapshots",
		Long: `List the synthesis snapshots recorded in a snapshot database,
newest first. Snapshots with the same spec hash carry identical graphs.`,
		Example: `  loom history --db ./loom.db --stack orders-prod`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				return fmt.Errorf("--db is required")
			}
			if stack == "" {
				return fmt.Errorf("--stack is required")
			}
			ctx := cmd.Context()

			store, err := stores.NewSQLiteStore(stores.Config{Path: dbPath})
			if err != nil {
				return err
			}
			if err := store.Init(ctx); err != nil {
				return err
			}
			defer store.Close()
			if err := store.Migrate(ctx); err != nil {
				return err
			}

			snaps, err := store.ListSnapshots(ctx, stack, limit, offset)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(snaps)
			}

			for _, snap := range snaps {
				fmt.Printf("%s  %s  %-8s %-6s nodes=%-3d hash=%.12s\n",
					snap.CreatedAt.Format("2006-01-02 15:04:05"),
					snap.ID,
					snap.Family,
					snap.Environment,
					snap.NodeCount,
					snap.SpecHash,
				)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "snapshot database path")
	cmd.Flags().StringVar(&stack, "stack", "", "stack name to list snapshots for")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum snapshots to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "snapshots to skip")

	return cmd
}
