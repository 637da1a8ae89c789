package engine

import (
	"strings"

	"github.com/loomworks/loom/pkg/spec"
)

// Environment is the production / non-production classification that drives
// lifecycle defaults. Callers pass it into the builder explicitly; the engine
// never reads it from ambient state.
type Environment struct {
	// IsProd is true when the target environment is production.
	IsProd bool `json:"is_prod"`
}

// nonProdMarkers are the stack-identifier substrings that classify an
// environment as non-production. Absence of every marker implies production.
var nonProdMarkers = []string{"dev", "test", "sandbox", "local", "demo"}

// DetectEnvironment infers an Environment from a stack identifier by
// case-insensitive substring matching against a fixed marker set.
//
// This is a convenience helper for callers that name their stacks by
// convention; it lives outside the engine's trusted core and can misclassify
// stacks whose names merely contain a marker (for example "devops-prod").
// Callers that know their environment should construct it directly.
func DetectEnvironment(stackID string) Environment {
	lower := strings.ToLower(stackID)
	for _, marker := range nonProdMarkers {
		if strings.Contains(lower, marker) {
			return Environment{IsProd: false}
		}
	}
	return Environment{IsProd: true}
}

// DefaultRemovalPolicy returns the lifecycle default for this environment:
// retain in production, destroy otherwise.
func (e Environment) DefaultRemovalPolicy() spec.RemovalPolicy {
	if e.IsProd {
		return spec.RemovalRetain
	}
	return spec.RemovalDestroy
}

// ResolveRemovalPolicy applies the lifecycle rule: an explicit override in
// the spec always wins; otherwise the environment default applies. The
// environment is a default provider, never an enforcer.
func ResolveRemovalPolicy(override *spec.RemovalPolicy, env Environment) spec.RemovalPolicy {
	if override != nil {
		return *override
	}
	return env.DefaultRemovalPolicy()
}
