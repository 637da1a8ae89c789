package engine

import (
	"testing"

	"github.com/loomworks/loom/pkg/spec"
)

func TestDetectEnvironment(t *testing.T) {
	cases := []struct {
		stackID string
		isProd  bool
	}{
		{"my-app-dev-stack", false},
		{"my-app-production", true},
		{"orders-prod", true},
		{"ORDERS-TEST", false},
		{"sandbox-payments", false},
		{"local", false},
		{"demo-env", false},
		{"payments", true},
		// Known misclassification of the substring heuristic: "devops"
		// contains "dev".
		{"devops-prod", false},
	}

	for _, tc := range cases {
		if got := DetectEnvironment(tc.stackID); got.IsProd != tc.isProd {
			t.Errorf("DetectEnvironment(%q).IsProd = %v, want %v", tc.stackID, got.IsProd, tc.isProd)
		}
	}
}

func TestDefaultRemovalPolicy(t *testing.T) {
	if got := (Environment{IsProd: true}).DefaultRemovalPolicy(); got != spec.RemovalRetain {
		t.Errorf("prod default = %q, want retain", got)
	}
	if got := (Environment{IsProd: false}).DefaultRemovalPolicy(); got != spec.RemovalDestroy {
		t.Errorf("nonprod default = %q, want destroy", got)
	}
}

func TestResolveRemovalPolicyOverrideWins(t *testing.T) {
	prod := Environment{IsProd: true}

	if got := ResolveRemovalPolicy(spec.Removal(spec.RemovalDestroy), prod); got != spec.RemovalDestroy {
		t.Errorf("explicit destroy in prod must win, got %q", got)
	}
	if got := ResolveRemovalPolicy(nil, prod); got != spec.RemovalRetain {
		t.Errorf("nil override in prod must retain, got %q", got)
	}
}
