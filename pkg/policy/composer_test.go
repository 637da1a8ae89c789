package policy

import (
	"strings"
	"testing"

	"github.com/loomworks/loom/pkg/spec"
)

func TestComposeEmpty(t *testing.T) {
	grants, err := Compose("${ordersKey.arn}", nil)
	if err != nil {
		t.Fatalf("Compose() error: %v", err)
	}
	if len(grants) != 0 {
		t.Errorf("expected no grants, got %v", grants)
	}
}

func TestComposeQueueGrant(t *testing.T) {
	grants, err := Compose("${ordersKey.arn}", []spec.ServiceCapability{spec.CapabilityQueue})
	if err != nil {
		t.Fatalf("Compose() error: %v", err)
	}
	if len(grants) != 1 {
		t.Fatalf("expected 1 grant, got %d", len(grants))
	}

	g := grants[0]
	if g.Sid != "Allow-queue-service" {
		t.Errorf("Sid = %q", g.Sid)
	}
	if g.Principal != "sqs.amazonaws.com" {
		t.Errorf("Principal = %q", g.Principal)
	}
	if g.Resource != "${ordersKey.arn}" {
		t.Errorf("Resource = %q", g.Resource)
	}
	if g.Conditions["kms:ViaService"] != "sqs.${region}.amazonaws.com" {
		t.Errorf("ViaService = %q, region must stay late-bound", g.Conditions["kms:ViaService"])
	}
}

func TestComposeNoWildcardActions(t *testing.T) {
	all := []spec.ServiceCapability{
		spec.CapabilityQueue,
		spec.CapabilityNotification,
		spec.CapabilityCompute,
		spec.CapabilityStorage,
	}
	grants, err := Compose("${k.arn}", all)
	if err != nil {
		t.Fatalf("Compose() error: %v", err)
	}
	for _, g := range grants {
		if len(g.Actions) == 0 {
			t.Errorf("grant %s has no actions", g.Sid)
		}
		for _, a := range g.Actions {
			if strings.Contains(a, "*") {
				t.Errorf("grant %s carries wildcard action %q", g.Sid, a)
			}
		}
	}
}

func TestComposeAdditiveAndOrdered(t *testing.T) {
	grants, err := Compose("${k.arn}", []spec.ServiceCapability{
		spec.CapabilityStorage,
		spec.CapabilityQueue,
		spec.CapabilityStorage,
	})
	if err != nil {
		t.Fatalf("Compose() error: %v", err)
	}
	if len(grants) != 2 {
		t.Fatalf("duplicates must collapse, got %d grants", len(grants))
	}
	if grants[0].Sid != "Allow-storage-service" || grants[1].Sid != "Allow-queue-service" {
		t.Errorf("grants must follow input order: %s, %s", grants[0].Sid, grants[1].Sid)
	}
}

func TestComposeComputeNarrower(t *testing.T) {
	grants, err := Compose("${k.arn}", []spec.ServiceCapability{spec.CapabilityCompute})
	if err != nil {
		t.Fatalf("Compose() error: %v", err)
	}
	if len(grants[0].Actions) != 1 || grants[0].Actions[0] != "kms:Decrypt" {
		t.Errorf("compute grant should decrypt only, got %v", grants[0].Actions)
	}
}

func TestComposeUnknownCapability(t *testing.T) {
	if _, err := Compose("${k.arn}", []spec.ServiceCapability{"mystery-service"}); err == nil {
		t.Fatal("expected error for unknown capability")
	}
}
