package constructs

import (
	"testing"
	"time"

	"github.com/loomworks/loom/pkg/engine"
	"github.com/loomworks/loom/pkg/spec"
)

var nonprod = BuildOptions{Environment: engine.Environment{IsProd: false}}

func buildQueue(t *testing.T, s spec.QueueSpec, opts BuildOptions) *Result {
	t.Helper()
	result, violations, err := Build(s, opts)
	if len(violations) > 0 {
		t.Fatalf("unexpected violations: %v", violations)
	}
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return result
}

func TestWireQueueMinimal(t *testing.T) {
	result := buildQueue(t, spec.QueueSpec{
		Common:           spec.Common{LogicalID: "orders"},
		EncryptionKeyRef: "ordersKey",
	}, nonprod)

	g := result.Graph
	if len(g.Nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(g.Nodes))
	}
	n := g.Nodes[0]
	if n.Kind != engine.KindQueue {
		t.Errorf("Kind = %q", n.Kind)
	}
	if n.Props["queue_name"] != "orders" {
		t.Errorf("queue_name = %v", n.Props["queue_name"])
	}
	if n.Props["encryption_key_ref"] != "ordersKey" {
		t.Errorf("encryption_key_ref = %v", n.Props["encryption_key_ref"])
	}
	if n.Props["retention_seconds"] != int64((4 * 24 * time.Hour).Seconds()) {
		t.Errorf("retention_seconds = %v, want 4-day default", n.Props["retention_seconds"])
	}
	if n.RemovalPolicy != spec.RemovalDestroy {
		t.Errorf("nonprod queue should default to destroy, got %q", n.RemovalPolicy)
	}
}

func TestWireQueueFifoSuffix(t *testing.T) {
	result := buildQueue(t, spec.QueueSpec{
		Common:           spec.Common{LogicalID: "orders"},
		EncryptionKeyRef: "ordersKey",
		Fifo:             spec.Bool(true),
	}, nonprod)

	n := result.Graph.Node("orders")
	if n.Props["queue_name"] != "orders.fifo" {
		t.Errorf("queue_name = %v, want orders.fifo", n.Props["queue_name"])
	}

	// An explicit name already carrying the suffix is not doubled.
	result = buildQueue(t, spec.QueueSpec{
		Common:           spec.Common{LogicalID: "orders"},
		EncryptionKeyRef: "ordersKey",
		QueueName:        spec.String("orders.fifo"),
		Fifo:             spec.Bool(true),
	}, nonprod)
	if got := result.Graph.Node("orders").Props["queue_name"]; got != "orders.fifo" {
		t.Errorf("queue_name = %v, suffix must be idempotent", got)
	}
}

func TestWireQueueDeadLetter(t *testing.T) {
	result := buildQueue(t, spec.QueueSpec{
		Common:                spec.Common{LogicalID: "orders"},
		EncryptionKeyRef:      "ordersKey",
		EnableDeadLetterQueue: spec.Bool(true),
	}, nonprod)

	g := result.Graph
	if len(g.Nodes) != 2 {
		t.Fatalf("expected primary plus dead-letter queue, got %d nodes", len(g.Nodes))
	}

	dlq := g.Node("orders-dlq")
	if dlq == nil {
		t.Fatal("missing dead-letter node")
	}
	primary := g.Node("orders")

	// Both queues share the encryption key.
	if dlq.Props["encryption_key_ref"] != primary.Props["encryption_key_ref"] {
		t.Error("dead-letter queue must share the primary's encryption key")
	}
	if dlq.Props["retention_seconds"] != int64((14 * 24 * time.Hour).Seconds()) {
		t.Errorf("dlq retention = %v, want fixed 14 days", dlq.Props["retention_seconds"])
	}

	redrive, ok := primary.Props["redrive_policy"].(map[string]any)
	if !ok {
		t.Fatal("primary missing redrive_policy")
	}
	if redrive["target_arn"] != engine.Token("orders-dlq", "arn") {
		t.Errorf("redrive target = %v", redrive["target_arn"])
	}
	if redrive["max_receive_count"] != 3 {
		t.Errorf("max_receive_count = %v, want default 3", redrive["max_receive_count"])
	}

	// Dependency order: the dead-letter queue sorts before its primary.
	if g.Nodes[0].LogicalID != "orders-dlq" {
		t.Errorf("expected dlq first after sort, got %s", g.Nodes[0].LogicalID)
	}
}

func TestWireQueueFifoDeadLetterName(t *testing.T) {
	result := buildQueue(t, spec.QueueSpec{
		Common:                spec.Common{LogicalID: "orders"},
		EncryptionKeyRef:      "ordersKey",
		Fifo:                  spec.Bool(true),
		EnableDeadLetterQueue: spec.Bool(true),
		MaxReceiveCount:       spec.Int(5),
	}, nonprod)

	dlq := result.Graph.Node("orders-dlq")
	if dlq.Props["queue_name"] != "orders-dlq.fifo" {
		t.Errorf("dlq name = %v, want orders-dlq.fifo", dlq.Props["queue_name"])
	}
	if dlq.Props["fifo"] != true {
		t.Error("dlq of a fifo queue must be fifo")
	}

	redrive := result.Graph.Node("orders").Props["redrive_policy"].(map[string]any)
	if redrive["max_receive_count"] != 5 {
		t.Errorf("max_receive_count = %v, want explicit 5", redrive["max_receive_count"])
	}
}

func TestBuildRejectsInvalidSpec(t *testing.T) {
	_, violations, err := Build(spec.QueueSpec{
		Common:                    spec.Common{LogicalID: "orders"},
		EncryptionKeyRef:          "ordersKey",
		ContentBasedDeduplication: spec.Bool(true),
	}, nonprod)

	if err != nil {
		t.Fatalf("spec mistakes must not be engine errors: %v", err)
	}
	if len(violations) != 1 {
		t.Fatalf("expected exactly one violation, got %v", violations)
	}
}

func TestBuildDeterministic(t *testing.T) {
	s := spec.QueueSpec{
		Common:                spec.Common{LogicalID: "orders"},
		EncryptionKeyRef:      "ordersKey",
		EnableDeadLetterQueue: spec.Bool(true),
	}

	first := buildQueue(t, s, nonprod)
	for i := 0; i < 3; i++ {
		again := buildQueue(t, s, nonprod)
		if len(again.Graph.Nodes) != len(first.Graph.Nodes) {
			t.Fatal("node count changed between runs")
		}
		for j, n := range again.Graph.Nodes {
			if n.UID != first.Graph.Nodes[j].UID {
				t.Errorf("node %d UID changed between runs", j)
			}
			if n.LogicalID != first.Graph.Nodes[j].LogicalID {
				t.Errorf("node %d order changed between runs", j)
			}
		}
	}
}

func TestBuildAppliesTags(t *testing.T) {
	result := buildQueue(t, spec.QueueSpec{
		Common: spec.Common{
			LogicalID: "orders",
			Tags:      map[string]string{"Team": "payments"},
		},
		EncryptionKeyRef:      "ordersKey",
		EnableDeadLetterQueue: spec.Bool(true),
	}, BuildOptions{
		Environment: engine.Environment{IsProd: true},
		ExtraTags:   map[string]string{"CostCenter": "cc-42"},
	})

	for _, n := range result.Graph.Nodes {
		if n.Tags["ManagedBy"] != engine.ManagedByTag {
			t.Errorf("node %s missing ManagedBy", n.LogicalID)
		}
		if n.Tags["Construct"] != string(spec.FamilyQueue) {
			t.Errorf("node %s missing Construct", n.LogicalID)
		}
		if n.Tags["Team"] != "payments" || n.Tags["CostCenter"] != "cc-42" {
			t.Errorf("node %s missing caller tags: %v", n.LogicalID, n.Tags)
		}
		if n.RemovalPolicy != spec.RemovalRetain {
			t.Errorf("prod nodes should default to retain, got %q", n.RemovalPolicy)
		}
	}
}
