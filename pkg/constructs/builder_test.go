package constructs

import (
	"errors"
	"testing"
	"time"

	"github.com/loomworks/loom/pkg/engine"
	"github.com/loomworks/loom/pkg/spec"
)

// straySpec implements spec.Spec without a registered wirer.
type straySpec struct{}

func (straySpec) Family() spec.Family { return spec.Family("stray") }
func (straySpec) ID() string          { return "stray" }

func TestBuildUnknownSpecIsInternal(t *testing.T) {
	_, violations, err := Build(straySpec{}, nonprod)
	if len(violations) > 0 {
		t.Fatalf("unexpected violations: %v", violations)
	}
	if err == nil {
		t.Fatal("expected an internal error for an unwirable spec")
	}
	var ee *engine.EngineError
	if !errors.As(err, &ee) || ee.Code != engine.ErrCodeInternal {
		t.Errorf("expected %s, got %v", engine.ErrCodeInternal, err)
	}
}

func TestBuildSpecTagsMergeWithExtras(t *testing.T) {
	result := buildQueue(t, spec.QueueSpec{
		Common: spec.Common{
			LogicalID: "orders",
			Tags:      map[string]string{"Team": "payments", "Tier": "gold"},
		},
		EncryptionKeyRef: "ordersKey",
	}, BuildOptions{
		Environment: engine.Environment{},
		ExtraTags:   map[string]string{"Tier": "platinum"},
	})

	tags := result.Graph.Nodes[0].Tags
	if tags["Team"] != "payments" {
		t.Errorf("spec tag missing: %v", tags)
	}
	if tags["Tier"] != "platinum" {
		t.Errorf("extra tags should win over spec tags, got %q", tags["Tier"])
	}
}

func TestBuildPointerSpec(t *testing.T) {
	s := &spec.QueueSpec{
		Common:           spec.Common{LogicalID: "orders"},
		EncryptionKeyRef: "ordersKey",
	}
	result, violations, err := Build(s, nonprod)
	if len(violations) > 0 || err != nil {
		t.Fatalf("pointer spec build failed: %v / %v", violations, err)
	}
	if result.Graph.Node("orders") == nil {
		t.Error("missing node for pointer-built spec")
	}
}

func TestBuildTopicFifo(t *testing.T) {
	result, violations, err := Build(spec.TopicSpec{
		Common:           spec.Common{LogicalID: "events"},
		EncryptionKeyRef: "eventsKey",
		Fifo:             spec.Bool(true),
	}, nonprod)
	if len(violations) > 0 || err != nil {
		t.Fatalf("build failed: %v / %v", violations, err)
	}

	n := result.Graph.Node("events")
	if n.Kind != engine.KindTopic {
		t.Errorf("Kind = %q", n.Kind)
	}
	if n.Props["topic_name"] != "events.fifo" {
		t.Errorf("topic_name = %v", n.Props["topic_name"])
	}
	if _, set := n.Props["delivery_status_role_ref"]; set {
		t.Error("delivery status logging should be off by default")
	}
}

func TestBuildTopicDeliveryStatusRole(t *testing.T) {
	result, violations, err := Build(spec.TopicSpec{
		Common:                spec.Common{LogicalID: "events"},
		EncryptionKeyRef:      "eventsKey",
		DeliveryStatusRoleRef: spec.String("deliveryRole"),
	}, nonprod)
	if len(violations) > 0 || err != nil {
		t.Fatalf("build failed: %v / %v", violations, err)
	}

	n := result.Graph.Node("events")
	if n.Props["delivery_status_role_ref"] != "deliveryRole" {
		t.Errorf("delivery_status_role_ref = %v", n.Props["delivery_status_role_ref"])
	}
}

func TestBuildBucketExpiry(t *testing.T) {
	result, violations, err := Build(spec.BucketSpec{
		Common:           spec.Common{LogicalID: "Archive"},
		EncryptionKeyRef: "archiveKey",
		ExpireAfter:      spec.Duration(30 * 24 * time.Hour),
	}, nonprod)
	if len(violations) > 0 || err != nil {
		t.Fatalf("build failed: %v / %v", violations, err)
	}

	n := result.Graph.Node("Archive")
	if n.Props["bucket_name"] != "archive" {
		t.Errorf("bucket_name = %v, want lowercased default", n.Props["bucket_name"])
	}
	if n.Props["block_public_access"] != true {
		t.Error("public access block must be unconditional")
	}
	if n.Props["versioned"] != false {
		t.Errorf("nonprod buckets should not version by default, got %v", n.Props["versioned"])
	}

	rules, ok := n.Props["lifecycle_rules"].([]map[string]any)
	if !ok || len(rules) != 1 {
		t.Fatalf("lifecycle_rules = %v", n.Props["lifecycle_rules"])
	}
	if rules[0]["expire_after_days"] != 30 {
		t.Errorf("expire_after_days = %v", rules[0]["expire_after_days"])
	}
}

func TestBuildRole(t *testing.T) {
	result, violations, err := Build(spec.RoleSpec{
		Common:    spec.Common{LogicalID: "deployer"},
		AssumedBy: "deploy.example.com",
	}, nonprod)
	if len(violations) > 0 || err != nil {
		t.Fatalf("build failed: %v / %v", violations, err)
	}

	n := result.Graph.Node("deployer")
	if n.Kind != engine.KindRole {
		t.Errorf("Kind = %q", n.Kind)
	}
	assume, ok := n.Props["assume_role_policy"].(map[string]any)
	if !ok {
		t.Fatal("missing assume_role_policy")
	}
	if assume["principal"] != "deploy.example.com" {
		t.Errorf("principal = %v", assume["principal"])
	}
	if n.Props["max_session_seconds"] != int64(3600) {
		t.Errorf("max_session_seconds = %v, want 1h default", n.Props["max_session_seconds"])
	}
}
