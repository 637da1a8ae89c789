package config

import (
	"context"
	"testing"
	"time"
)

func TestStarlarkEvaluateExportsGlobals(t *testing.T) {
	ev := NewStarlarkEvaluator(0)

	result, err := ev.Evaluate(context.Background(), `
name = stack + "-suffix"
count = 3
flags = {"fifo": True}
_private = "hidden"
`, map[string]any{"stack": "orders"})
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}

	if result.Output["name"] != "orders-suffix" {
		t.Errorf("name = %v", result.Output["name"])
	}
	if result.Output["count"] != int64(3) {
		t.Errorf("count = %v (%T)", result.Output["count"], result.Output["count"])
	}
	flags, ok := result.Output["flags"].(map[string]any)
	if !ok || flags["fifo"] != true {
		t.Errorf("flags = %v", result.Output["flags"])
	}
	if _, leaked := result.Output["_private"]; leaked {
		t.Error("underscore globals must not be exported")
	}
}

func TestStarlarkEvaluateStruct(t *testing.T) {
	ev := NewStarlarkEvaluator(0)

	result, err := ev.Evaluate(context.Background(), `
endpoint = struct(host = "db.internal", port = 5432)
`, nil)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}

	endpoint, ok := result.Output["endpoint"].(map[string]any)
	if !ok {
		t.Fatalf("endpoint = %T", result.Output["endpoint"])
	}
	if endpoint["host"] != "db.internal" || endpoint["port"] != int64(5432) {
		t.Errorf("endpoint = %v", endpoint)
	}
}

func TestStarlarkEvaluateScriptError(t *testing.T) {
	ev := NewStarlarkEvaluator(0)
	if _, err := ev.Evaluate(context.Background(), `x = undefined_name`, nil); err == nil {
		t.Fatal("expected error for undefined name")
	}
}

func TestStarlarkEvaluateTimeout(t *testing.T) {
	ev := NewStarlarkEvaluator(50 * time.Millisecond)

	_, err := ev.Evaluate(context.Background(), `
def spin():
    x = 0
    for i in range(100000000):
        x += i
    return x

total = spin()
`, nil)
	if err == nil {
		t.Fatal("expected timeout error")
	}
}
