package policy

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/loomworks/loom/pkg/engine"
	"github.com/loomworks/loom/pkg/spec"
)

func newTestGuard(t *testing.T) *Guard {
	t.Helper()
	g, err := NewGuard(zerolog.Nop())
	if err != nil {
		t.Fatalf("NewGuard() error: %v", err)
	}
	return g
}

// cleanGraph builds a graph that passes every built-in policy.
func cleanGraph() *engine.Graph {
	g := engine.NewGraph(spec.FamilyQueue)
	n := engine.NewNode(engine.KindQueue, "orders")
	n.RemovalPolicy = spec.RemovalRetain
	g.Add(n)
	g.ApplyTags(nil)
	return g
}

func TestGuardAllowsCleanGraph(t *testing.T) {
	guard := newTestGuard(t)

	result, err := guard.Evaluate(context.Background(), &GuardInput{Graph: cleanGraph()})
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if !result.Allowed {
		t.Errorf("clean graph should be allowed, violations: %v", result.Violations)
	}
	if len(result.EvaluatedPolicies) != 4 {
		t.Errorf("expected all 4 built-in policies evaluated, got %v", result.EvaluatedPolicies)
	}
}

func TestGuardDeniesWildcardGrant(t *testing.T) {
	guard := newTestGuard(t)

	result, err := guard.Evaluate(context.Background(), &GuardInput{
		Graph: cleanGraph(),
		Grants: []Grant{{
			Sid:       "Allow-everything",
			Principal: "sqs.amazonaws.com",
			Actions:   []string{"kms:*"},
			Resource:  "${k.arn}",
		}},
	})
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if result.Allowed {
		t.Fatal("wildcard grant must be denied")
	}
	if result.Violations[0].Policy != "no-wildcard-grants" {
		t.Errorf("violation from %q", result.Violations[0].Policy)
	}
}

func TestGuardDeniesReservedAlias(t *testing.T) {
	guard := newTestGuard(t)

	g := engine.NewGraph(spec.FamilyKey)
	key := engine.NewNode(engine.KindKey, "k")
	key.RemovalPolicy = spec.RemovalRetain
	alias := engine.NewNode(engine.KindKeyAlias, "k-alias")
	alias.RemovalPolicy = spec.RemovalRetain
	alias.Set("alias_name", "alias/AWS/sneaky")
	alias.AddDependency("k")
	g.Add(key)
	g.Add(alias)
	g.ApplyTags(nil)

	result, err := guard.Evaluate(context.Background(), &GuardInput{Graph: g})
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if result.Allowed {
		t.Fatal("reserved alias must be denied regardless of casing")
	}

	var found bool
	for _, v := range result.Violations {
		if v.Policy == "no-reserved-alias" && v.Node == "k-alias" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected no-reserved-alias violation naming the node, got %v", result.Violations)
	}
}

func TestGuardDeniesMissingManagedByTag(t *testing.T) {
	guard := newTestGuard(t)

	g := engine.NewGraph(spec.FamilyQueue)
	n := engine.NewNode(engine.KindQueue, "orders")
	n.RemovalPolicy = spec.RemovalRetain
	g.Add(n)
	// Tags deliberately not applied.

	result, err := guard.Evaluate(context.Background(), &GuardInput{Graph: g})
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if result.Allowed {
		t.Fatal("untagged node must be denied")
	}
	if result.Violations[0].Policy != "managed-by-tag" {
		t.Errorf("violation from %q", result.Violations[0].Policy)
	}
}

func TestGuardWarnsOnProdDestroy(t *testing.T) {
	guard := newTestGuard(t)

	g := engine.NewGraph(spec.FamilyQueue)
	n := engine.NewNode(engine.KindQueue, "orders")
	n.RemovalPolicy = spec.RemovalDestroy
	g.Add(n)
	g.ApplyTags(nil)

	result, err := guard.Evaluate(context.Background(), &GuardInput{
		Graph:       g,
		Environment: engine.Environment{IsProd: true},
	})
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if !result.Allowed {
		t.Errorf("lifecycle finding is advisory, got violations %v", result.Violations)
	}
	if len(result.Warnings) != 1 || result.Warnings[0].Policy != "prod-lifecycle" {
		t.Errorf("expected one prod-lifecycle warning, got %v", result.Warnings)
	}

	// The same graph outside production warns about nothing.
	result, err = guard.Evaluate(context.Background(), &GuardInput{Graph: g})
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("nonprod destroy should not warn, got %v", result.Warnings)
	}
}

func TestGuardSetEnabled(t *testing.T) {
	guard := newTestGuard(t)

	if err := guard.SetEnabled("managed-by-tag", false); err != nil {
		t.Fatalf("SetEnabled() error: %v", err)
	}

	g := engine.NewGraph(spec.FamilyQueue)
	n := engine.NewNode(engine.KindQueue, "orders")
	n.RemovalPolicy = spec.RemovalRetain
	g.Add(n)

	result, err := guard.Evaluate(context.Background(), &GuardInput{Graph: g})
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if !result.Allowed {
		t.Errorf("disabled policy must not deny, got %v", result.Violations)
	}

	if err := guard.SetEnabled("no-such-policy", true); err == nil {
		t.Error("expected error toggling an unknown policy")
	}
}

func TestGuardCustomPolicy(t *testing.T) {
	guard := newTestGuard(t)

	err := guard.compile(context.Background(), GuardPolicy{
		Name:     "no-queues",
		Severity: SeverityError,
		Enabled:  true,
		Rego: `package loom.guard.noqueues

import rego.v1

deny contains msg if {
	some node in input.graph.nodes
	node.kind == "queue"
	msg := sprintf("queue %q is not allowed here", [node.logical_id])
}
`,
	})
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}

	result, err := guard.Evaluate(context.Background(), &GuardInput{Graph: cleanGraph()})
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if result.Allowed {
		t.Fatal("custom deny should block the graph")
	}
	// String denies fall back to the policy's default severity.
	var found bool
	for _, v := range result.Violations {
		if v.Policy == "no-queues" && v.Severity == SeverityError {
			found = true
		}
	}
	if !found {
		t.Errorf("expected no-queues violation, got %v", result.Violations)
	}
}
