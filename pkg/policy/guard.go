package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/open-policy-agent/opa/rego"
	"github.com/rs/zerolog"
)

// Guard audits synthesized resource graphs against Rego policies. It runs
// after construction: the engine's own validator gates what a caller may
// request, the guard gates what an organization allows to be synthesized.
type Guard struct {
	mu       sync.RWMutex
	policies map[string]*compiledGuard
	logger   zerolog.Logger
}

// compiledGuard pairs a policy with its prepared deny query.
type compiledGuard struct {
	policy *GuardPolicy
	query  rego.PreparedEvalQuery
}

// NewGuard creates a guard with the built-in policies loaded.
func NewGuard(logger zerolog.Logger) (*Guard, error) {
	g := &Guard{
		policies: make(map[string]*compiledGuard),
		logger:   logger.With().Str("component", "policy-guard").Logger(),
	}

	for _, p := range BuiltinGuardPolicies() {
		if err := g.compile(context.Background(), p); err != nil {
			return nil, fmt.Errorf("compile built-in policy %s: %w", p.Name, err)
		}
	}

	return g, nil
}

// Evaluate runs every enabled policy over the input and aggregates findings.
// Error-level findings make the result not allowed; warnings are advisory.
func (g *Guard) Evaluate(ctx context.Context, input *GuardInput) (*GuardResult, error) {
	start := time.Now()

	g.mu.RLock()
	defer g.mu.RUnlock()

	// Rego input must be plain JSON values.
	doc, err := toDocument(input)
	if err != nil {
		return nil, fmt.Errorf("encode guard input: %w", err)
	}

	result := &GuardResult{
		Allowed:           true,
		EvaluatedPolicies: make([]string, 0, len(g.policies)),
	}

	names := make([]string, 0, len(g.policies))
	for name := range g.policies {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cp := g.policies[name]
		if !cp.policy.Enabled {
			continue
		}
		result.EvaluatedPolicies = append(result.EvaluatedPolicies, name)

		violations, err := g.evaluatePolicy(ctx, cp, doc)
		if err != nil {
			return nil, fmt.Errorf("evaluate policy %s: %w", name, err)
		}

		for _, v := range violations {
			if v.Severity == SeverityError {
				result.Allowed = false
				result.Violations = append(result.Violations, v)
			} else {
				result.Warnings = append(result.Warnings, v)
			}
		}
	}

	result.Duration = time.Since(start)
	g.logger.Debug().
		Int("violations", len(result.Violations)).
		Int("warnings", len(result.Warnings)).
		Dur("duration", result.Duration).
		Msg("Guard evaluation completed")

	return result, nil
}

// LoadPaths loads and compiles additional policies from files or
// directories of .rego sources.
func (g *Guard) LoadPaths(ctx context.Context, paths []string) error {
	loader := NewLoader(g.logger)
	policies, err := loader.LoadFromPaths(ctx, paths)
	if err != nil {
		return fmt.Errorf("load policies: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for _, p := range policies {
		if err := g.compileLocked(ctx, p); err != nil {
			return fmt.Errorf("compile policy %s: %w", p.Name, err)
		}
	}

	g.logger.Info().Int("count", len(policies)).Msg("Guard policies loaded")
	return nil
}

// ListPolicies returns all loaded policies sorted by name.
func (g *Guard) ListPolicies() []GuardPolicy {
	g.mu.RLock()
	defer g.mu.RUnlock()

	policies := make([]GuardPolicy, 0, len(g.policies))
	for _, cp := range g.policies {
		policies = append(policies, *cp.policy)
	}
	sort.Slice(policies, func(i, j int) bool { return policies[i].Name < policies[j].Name })
	return policies
}

// SetEnabled enables or disables a policy by name.
func (g *Guard) SetEnabled(name string, enabled bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	cp, ok := g.policies[name]
	if !ok {
		return fmt.Errorf("policy not found: %s", name)
	}
	cp.policy.Enabled = enabled
	g.logger.Info().Str("policy", name).Bool("enabled", enabled).Msg("Guard policy toggled")
	return nil
}

func (g *Guard) compile(ctx context.Context, p GuardPolicy) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.compileLocked(ctx, p)
}

// compileLocked prepares the policy's deny query for reuse. Callers hold mu.
func (g *Guard) compileLocked(ctx context.Context, p GuardPolicy) error {
	pkg := regoPackage(p.Rego)

	query, err := rego.New(
		rego.Module(p.Name, p.Rego),
		rego.Query(fmt.Sprintf("data.%s.deny", pkg)),
	).PrepareForEval(ctx)
	if err != nil {
		return fmt.Errorf("prepare query: %w", err)
	}

	policy := p
	g.policies[p.Name] = &compiledGuard{policy: &policy, query: query}

	g.logger.Debug().Str("policy", p.Name).Msg("Guard policy compiled")
	return nil
}

// evaluatePolicy runs one prepared deny query and converts its results.
func (g *Guard) evaluatePolicy(ctx context.Context, cp *compiledGuard, doc any) ([]Violation, error) {
	results, err := cp.query.Eval(ctx, rego.EvalInput(doc))
	if err != nil {
		return nil, err
	}

	var violations []Violation
	for _, result := range results {
		for _, expr := range result.Expressions {
			denySet, ok := expr.Value.([]any)
			if !ok {
				continue
			}
			for _, d := range denySet {
				violations = append(violations, asViolation(cp.policy, d))
			}
		}
	}
	return violations, nil
}

// asViolation converts one deny result into a Violation, falling back to the
// policy's default severity when the rule does not set one.
func asViolation(p *GuardPolicy, result any) Violation {
	v := Violation{
		Policy:   p.Name,
		Severity: p.Severity,
	}

	switch r := result.(type) {
	case string:
		v.Message = r
	case map[string]any:
		if msg, ok := r["message"].(string); ok {
			v.Message = msg
		}
		if sev, ok := r["severity"].(string); ok {
			v.Severity = Severity(sev)
		}
		if node, ok := r["node"].(string); ok {
			v.Node = node
		}
	default:
		v.Message = fmt.Sprintf("%v", result)
	}

	return v
}

// regoPackage extracts the package path from Rego source.
func regoPackage(src string) string {
	for _, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(trimmed, "package "); ok {
			return strings.TrimSpace(rest)
		}
	}
	return "loom.guard"
}

// toDocument round-trips a value through JSON so Rego sees plain maps.
func toDocument(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
