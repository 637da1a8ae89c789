package policy

import (
	"time"

	"github.com/loomworks/loom/pkg/engine"
)

// Severity represents the severity level of a guard violation.
type Severity string

const (
	// SeverityInfo is for informational messages.
	SeverityInfo Severity = "info"

	// SeverityWarning is for findings that should be reviewed but do not
	// block synthesis.
	SeverityWarning Severity = "warning"

	// SeverityError is for findings that block synthesis in enforcing mode.
	SeverityError Severity = "error"
)

// GuardPolicy is one guard rule with its Rego source.
type GuardPolicy struct {
	// Name is the unique name of the policy.
	Name string `json:"name"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Rego contains the Rego policy source.
	Rego string `json:"rego"`

	// Severity is the default severity for violations.
	Severity Severity `json:"severity"`

	// Enabled indicates if the policy is active.
	Enabled bool `json:"enabled"`

	// Tags are labels for organizing policies.
	Tags []string `json:"tags,omitempty"`
}

// Violation is a single guard finding against a synthesized graph.
type Violation struct {
	// Policy is the name of the policy that produced the finding.
	Policy string `json:"policy"`

	// Node is the logical ID of the offending node, if applicable.
	Node string `json:"node,omitempty"`

	// Message is a human-readable description of the finding.
	Message string `json:"message"`

	// Severity is the finding's severity level.
	Severity Severity `json:"severity"`
}

// GuardResult is the outcome of evaluating all guard policies over a graph.
type GuardResult struct {
	// Allowed indicates whether the graph passes in enforcing mode.
	Allowed bool `json:"allowed"`

	// Violations lists error-level findings.
	Violations []Violation `json:"violations,omitempty"`

	// Warnings lists advisory findings.
	Warnings []Violation `json:"warnings,omitempty"`

	// EvaluatedPolicies lists the names of the policies evaluated.
	EvaluatedPolicies []string `json:"evaluated_policies"`

	// Duration is how long the evaluation took.
	Duration time.Duration `json:"duration"`
}

// GuardInput is the document handed to Rego evaluation.
type GuardInput struct {
	// Graph is the synthesized resource graph under audit.
	Graph *engine.Graph `json:"graph"`

	// Environment is the environment the graph targets.
	Environment engine.Environment `json:"environment"`

	// Grants are the composed key grants, when the graph carries any.
	Grants []Grant `json:"grants,omitempty"`
}
