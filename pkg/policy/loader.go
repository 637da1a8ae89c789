package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Loader loads guard policies from .rego and .json files.
type Loader struct {
	logger  zerolog.Logger
	cache   map[string]*GuardPolicy
	mu      sync.RWMutex
	watcher *fsnotify.Watcher
}

// NewLoader creates a new policy loader.
func NewLoader(logger zerolog.Logger) *Loader {
	return &Loader{
		logger: logger.With().Str("component", "policy-loader").Logger(),
		cache:  make(map[string]*GuardPolicy),
	}
}

// LoadFromPaths loads policies from a list of file or directory paths.
func (l *Loader) LoadFromPaths(ctx context.Context, paths []string) ([]GuardPolicy, error) {
	var all []GuardPolicy

	for _, path := range paths {
		policies, err := l.loadPath(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("load path %s: %w", path, err)
		}
		all = append(all, policies...)
	}

	l.logger.Info().
		Int("total", len(all)).
		Int("sources", len(paths)).
		Msg("Policies loaded from paths")

	return all, nil
}

func (l *Loader) loadPath(ctx context.Context, path string) ([]GuardPolicy, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat path: %w", err)
	}

	if !info.IsDir() {
		p, err := l.loadFile(path)
		if err != nil {
			return nil, err
		}
		return []GuardPolicy{*p}, nil
	}

	var policies []GuardPolicy
	err = filepath.WalkDir(path, func(file string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !policyFile(file) {
			return nil
		}

		p, err := l.loadFile(file)
		if err != nil {
			// A broken file should not block the rest of the directory.
			l.logger.Warn().Err(err).Str("path", file).Msg("Failed to load policy file")
			return nil
		}
		policies = append(policies, *p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}

	return policies, nil
}

func policyFile(path string) bool {
	return strings.HasSuffix(path, ".rego") || strings.HasSuffix(path, ".json")
}

// loadFile loads one policy, serving repeated loads from the cache.
func (l *Loader) loadFile(path string) (*GuardPolicy, error) {
	l.mu.RLock()
	if cached, ok := l.cache[path]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var policy *GuardPolicy
	if strings.HasSuffix(path, ".json") {
		policy = &GuardPolicy{}
		if err := json.Unmarshal(data, policy); err != nil {
			return nil, fmt.Errorf("parse JSON policy: %w", err)
		}
		if policy.Severity == "" {
			policy.Severity = SeverityWarning
		}
	} else {
		policy = &GuardPolicy{
			Name:        strings.TrimSuffix(filepath.Base(path), ".rego"),
			Description: regoDescription(string(data)),
			Rego:        string(data),
			Severity:    SeverityWarning,
			Enabled:     true,
		}
	}

	l.mu.Lock()
	l.cache[path] = policy
	l.mu.Unlock()

	l.logger.Debug().Str("path", path).Str("policy", policy.Name).Msg("Policy loaded from file")
	return policy, nil
}

// regoDescription collects the leading comment block of a Rego source.
func regoDescription(src string) string {
	var desc strings.Builder
	for _, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)
		comment, ok := strings.CutPrefix(trimmed, "#")
		if !ok {
			if trimmed != "" && desc.Len() > 0 {
				break
			}
			continue
		}
		comment = strings.TrimSpace(comment)
		if comment == "" {
			continue
		}
		if desc.Len() > 0 {
			desc.WriteString(" ")
		}
		desc.WriteString(comment)
	}
	return desc.String()
}

// Watch starts watching paths for policy changes and calls reloadFn with the
// freshly loaded set whenever a .rego or .json file is written or created.
// Events are debounced so editors that write in bursts trigger one reload.
func (l *Loader) Watch(ctx context.Context, paths []string, reloadFn func([]GuardPolicy) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	l.watcher = watcher

	for _, path := range paths {
		if err := watcher.Add(path); err != nil {
			l.logger.Warn().Err(err).Str("path", path).Msg("Failed to watch path")
		}
	}

	go l.processEvents(ctx, paths, reloadFn)

	l.logger.Info().Int("paths", len(paths)).Msg("Started watching policy paths")
	return nil
}

func (l *Loader) processEvents(ctx context.Context, paths []string, reloadFn func([]GuardPolicy) error) {
	const reloadDelay = 500 * time.Millisecond
	var reloadTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			_ = l.watcher.Close()
			return

		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || !policyFile(event.Name) {
				continue
			}

			l.logger.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("Policy file changed")

			l.mu.Lock()
			delete(l.cache, event.Name)
			l.mu.Unlock()

			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			reloadTimer = time.AfterFunc(reloadDelay, func() {
				policies, err := l.LoadFromPaths(ctx, paths)
				if err != nil {
					l.logger.Error().Err(err).Msg("Failed to reload policies")
					return
				}
				if err := reloadFn(policies); err != nil {
					l.logger.Error().Err(err).Msg("Failed to apply reloaded policies")
				}
			})

		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.logger.Error().Err(err).Msg("Watcher error")
		}
	}
}

// StopWatching stops watching for file changes.
func (l *Loader) StopWatching() error {
	if l.watcher != nil {
		return l.watcher.Close()
	}
	return nil
}
