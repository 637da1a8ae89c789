package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/loomworks/loom/pkg/config"
	"github.com/loomworks/loom/pkg/engine"
	"github.com/loomworks/loom/pkg/policy"
	"github.com/loomworks/loom/pkg/stores"
	"github.com/loomworks/loom/pkg/telemetry"
)

func newSynthCommand() *cobra.Command {
	var (
		policyPaths []string
		noGuard     bool
		dbPath      string
	)

	cmd := &cobra.Command{
		Use:   "synth [path...]",
		Short: "Synthesize resource graphs from stack documents",
		Long: `Synthesize every resource declared in the stack documents into a
deployable graph: validation, environment defaults, dependent-resource
wiring, tagging, and topological ordering.

Guard policies (built-in plus any loaded with --policy) run against each
synthesized graph; an error-severity violation fails the synth. With --db
the synthesized graphs are recorded as a snapshot.`,
		Example: `  # Synthesize the current directory's documents
  loom synth

  # Synthesize with extra guard policies and snapshot history
  loom synth --policy ./policies --db ./loom.db ./stacks/orders.cue`,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := args
			if len(paths) == 0 {
				paths = []string{"."}
			}
			ctx := cmd.Context()

			doc, err := loadDocument(ctx, paths)
			if err != nil {
				return err
			}
			env, err := resolveEnvironment(doc)
			if err != nil {
				return err
			}

			results, err := synthesize(ctx, doc, env)
			if err != nil {
				return err
			}

			var violations int
			if !noGuard {
				violations, err = runGuard(ctx, policyPaths, doc.Stack.Name, env, results)
				if err != nil {
					return err
				}
			}

			if dbPath != "" {
				if err := saveSnapshots(ctx, dbPath, doc, env, results); err != nil {
					return err
				}
			}

			if jsonOutput {
				return writeSynthJSON(doc.Stack.Name, env, results)
			}

			for _, r := range results {
				log.Info().
					Str("logical_id", r.Spec.ID()).
					Str("family", string(r.Spec.Family())).
					Int("nodes", len(r.Result.Graph.Nodes)).
					Msg("synthesized")
			}
			log.Info().
				Str("stack", doc.Stack.Name).
				Bool("prod", env.IsProd).
				Int("graphs", len(results)).
				Msg("synthesis complete")

			if violations > 0 {
				return fmt.Errorf("guard rejected the synthesis with %d violation(s)", violations)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&policyPaths, "policy", nil, "additional guard policy files or directories")
	cmd.Flags().BoolVar(&noGuard, "no-guard", false, "skip guard policy evaluation")
	cmd.Flags().StringVar(&dbPath, "db", "", "record the synthesis in the given snapshot database")

	return cmd
}

// runGuard evaluates guard policies against every synthesized graph and
// returns the number of error-severity violations.
func runGuard(ctx context.Context, policyPaths []string, stack string, env engine.Environment, results []synthResult) (int, error) {
	ctx, span := tracer.StartGuardSpan(ctx, stack)
	defer span.End()

	guard, err := policy.NewGuard(log.Logger)
	if err != nil {
		return 0, fmt.Errorf("initialize guard: %w", err)
	}
	if len(policyPaths) > 0 {
		if err := guard.LoadPaths(ctx, policyPaths); err != nil {
			return 0, fmt.Errorf("load guard policies: %w", err)
		}
	}

	var blocking int
	for _, r := range results {
		result, err := guard.Evaluate(ctx, &policy.GuardInput{
			Graph:       r.Result.Graph,
			Environment: env,
			Grants:      r.Result.Grants,
		})
		if err != nil {
			telemetry.RecordError(span, err)
			return 0, fmt.Errorf("evaluate guard for %s: %w", r.Spec.ID(), err)
		}
		metrics.RecordGuardEvaluation(result.Allowed)
		for _, w := range result.Warnings {
			metrics.RecordGuardViolation(w.Policy, "warning")
			log.Warn().Str("policy", w.Policy).Str("node", w.Node).Msg(w.Message)
		}
		for _, v := range result.Violations {
			metrics.RecordGuardViolation(v.Policy, "error")
			log.Error().Str("policy", v.Policy).Str("node", v.Node).Msg(v.Message)
		}
		if !result.Allowed {
			blocking += len(result.Violations)
		}
	}

	if blocking > 0 {
		telemetry.RecordError(span, fmt.Errorf("%d blocking violation(s)", blocking))
	} else {
		telemetry.RecordSuccess(span)
	}
	return blocking, nil
}

// saveSnapshots records one snapshot per synthesized graph.
func saveSnapshots(ctx context.Context, dbPath string, doc *config.StackDocument, env engine.Environment, results []synthResult) error {
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

	hash := specHash(doc)
	envName := "nonprod"
	if env.IsProd {
		envName = "prod"
	}

	for _, r := range results {
		graphJSON, err := json.Marshal(r.Result.Graph)
		if err != nil {
			return fmt.Errorf("encode graph %s: %w", r.Spec.ID(), err)
		}
		snap := &stores.Snapshot{
			ID:          uuid.New().String(),
			Stack:       doc.Stack.Name,
			Environment: envName,
			SpecHash:    hash,
			Family:      string(r.Spec.Family()),
			Graph:       string(graphJSON),
			NodeCount:   len(r.Result.Graph.Nodes),
			CreatedAt:   time.Now().UTC(),
		}
		if len(r.Result.Grants) > 0 {
			grantsJSON, err := json.Marshal(r.Result.Grants)
			if err != nil {
				return fmt.Errorf("encode grants %s: %w", r.Spec.ID(), err)
			}
			s := string(grantsJSON)
			snap.Grants = &s
		}
		if err := store.SaveSnapshot(ctx, snap); err != nil {
			return err
		}
	}

	log.Info().Str("db", dbPath).Int("snapshots", len(results)).Msg("synthesis recorded")
	return nil
}

// writeSynthJSON emits the synthesized graphs on stdout.
func writeSynthJSON(stack string, env engine.Environment, results []synthResult) error {
	type graphOut struct {
		LogicalID string        `json:"logical_id"`
		Family    string        `json:"family"`
		Graph     *engine.Graph `json:"graph"`
		Grants    any           `json:"grants,omitempty"`
	}
	out := struct {
		Stack  string     `json:"stack"`
		Prod   bool       `json:"prod"`
		Graphs []graphOut `json:"graphs"`
	}{Stack: stack, Prod: env.IsProd}

	for _, r := range results {
		g := graphOut{
			LogicalID: r.Spec.ID(),
			Family:    string(r.Spec.Family()),
			Graph:     r.Result.Graph,
		}
		if len(r.Result.Grants) > 0 {
			g.Grants = r.Result.Grants
		}
		out.Graphs = append(out.Graphs, g)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
