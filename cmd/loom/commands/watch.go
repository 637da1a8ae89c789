package commands

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/loomworks/loom/pkg/policy"
)

// watchDebounce coalesces the event bursts editors produce on save.
const watchDebounce = 500 * time.Millisecond

func newWatchCommand() *cobra.Command {
	var policyPaths []string

	cmd := &cobra.Command{
		Use:   "watch [path...]",
		Short: "Re-synthesize on document changes",
		Long: `Watch the given documents and directories and re-run synthesis
whenever a CUE or YAML source changes. With --policy the guard runs on
every pass and policy file changes also trigger a re-synthesis.
Synthesis failures are logged and watching continues.`,
		Example: `  loom watch ./stacks
  loom watch --policy ./policies ./stacks`,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := args
			if len(paths) == 0 {
				paths = []string{"."}
			}
			ctx := cmd.Context()

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return err
			}
			defer watcher.Close()

			for _, path := range paths {
				// Watch the directory so renames and new files are seen.
				info, err := os.Stat(path)
				if err != nil {
					return err
				}
				dir := path
				if !info.IsDir() {
					dir = filepath.Dir(path)
				}
				if err := watcher.Add(dir); err != nil {
					return err
				}
			}

			if len(policyPaths) > 0 {
				loader := policy.NewLoader(log.Logger)
				err := loader.Watch(ctx, policyPaths, func([]policy.GuardPolicy) error {
					resynth(ctx, paths, policyPaths)
					return nil
				})
				if err != nil {
					return err
				}
				defer loader.StopWatching()
			}

			resynth(ctx, paths, policyPaths)
			return watchLoop(ctx, watcher, paths, policyPaths)
		},
	}

	cmd.Flags().StringSliceVar(&policyPaths, "policy", nil, "guard policy files or directories to evaluate and watch")

	return cmd
}

func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, paths, policyPaths []string) error {
	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !documentSource(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			log.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("document changed")
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
				timerCh = timer.C
			} else {
				timer.Reset(watchDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("watch error")
		case <-timerCh:
			timer = nil
			timerCh = nil
			resynth(ctx, paths, policyPaths)
		}
	}
}

// resynth runs one synthesis pass, logging failures instead of exiting.
func resynth(ctx context.Context, paths, policyPaths []string) {
	doc, err := loadDocument(ctx, paths)
	if err != nil {
		log.Error().Err(err).Msg("load failed")
		return
	}
	env, err := resolveEnvironment(doc)
	if err != nil {
		log.Error().Err(err).Msg("environment resolution failed")
		return
	}
	results, err := synthesize(ctx, doc, env)
	if err != nil {
		log.Error().Err(err).Msg("synthesis failed")
		return
	}

	if len(policyPaths) > 0 {
		violations, err := runGuard(ctx, policyPaths, doc.Stack.Name, env, results)
		if err != nil {
			log.Error().Err(err).Msg("guard evaluation failed")
			return
		}
		if violations > 0 {
			log.Error().Int("violations", violations).Msg("guard rejected the synthesis")
			return
		}
	}

	nodes := 0
	for _, r := range results {
		nodes += len(r.Result.Graph.Nodes)
	}
	log.Info().
		Str("stack", doc.Stack.Name).
		Int("graphs", len(results)).
		Int("nodes", nodes).
		Msg("synthesis complete")
}

func documentSource(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue", ".yaml", ".yml":
		return true
	}
	return false
}
