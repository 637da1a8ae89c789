package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/loomworks/loom/pkg/spec"
)

const basicDocument = `
stack: {
	name: "orders-prod"
	tags: {Team: "payments"}
}

resources: {
	ordersKey: {
		family: "key"
		capabilities: ["queue-service"]
	}
	orders: {
		family: "queue"
		encryption_key_ref: "ordersKey"
		retention_period:   "15m"
		fifo:               true
	}
}
`

func loadInline(t *testing.T, content string) *StackDocument {
	t.Helper()
	doc, err := NewLoader().LoadInline(context.Background(), content)
	if err != nil {
		t.Fatalf("LoadInline() error: %v", err)
	}
	return doc
}

func TestLoadInlineBasicDocument(t *testing.T) {
	doc := loadInline(t, basicDocument)
	if len(doc.Errors) > 0 {
		t.Fatalf("unexpected document errors: %v", doc.Errors)
	}

	if doc.Stack.Name != "orders-prod" {
		t.Errorf("stack name = %q", doc.Stack.Name)
	}
	if doc.Stack.Tags["Team"] != "payments" {
		t.Errorf("stack tags = %v", doc.Stack.Tags)
	}

	// Entries come back sorted by logical ID regardless of document order.
	if len(doc.Resources) != 2 {
		t.Fatalf("expected 2 resources, got %d", len(doc.Resources))
	}
	if doc.Resources[0].LogicalID != "orders" || doc.Resources[1].LogicalID != "ordersKey" {
		t.Errorf("resources out of order: %s, %s", doc.Resources[0].LogicalID, doc.Resources[1].LogicalID)
	}
}

func TestLoadInlineDispatchesFamilies(t *testing.T) {
	doc := loadInline(t, basicDocument)
	if len(doc.Errors) > 0 {
		t.Fatalf("unexpected document errors: %v", doc.Errors)
	}

	specs, err := doc.Specs()
	if err != nil {
		t.Fatalf("Specs() error: %v", err)
	}

	q, ok := specs[0].(spec.QueueSpec)
	if !ok {
		t.Fatalf("expected QueueSpec, got %T", specs[0])
	}
	if q.LogicalID != "orders" {
		t.Errorf("logical ID should come from the declaration key, got %q", q.LogicalID)
	}
	if q.RetentionPeriod == nil || *q.RetentionPeriod != 15*time.Minute {
		t.Errorf("retention_period = %v, duration string must normalize", q.RetentionPeriod)
	}
	if !*q.Fifo {
		t.Error("fifo not carried through")
	}

	k, ok := specs[1].(spec.KeySpec)
	if !ok {
		t.Fatalf("expected KeySpec, got %T", specs[1])
	}
	if len(k.Capabilities) != 1 || k.Capabilities[0] != spec.CapabilityQueue {
		t.Errorf("capabilities = %v", k.Capabilities)
	}
}

func TestLoadInlineExplicitLogicalIDWins(t *testing.T) {
	doc := loadInline(t, `
stack: name: "demo"
resources: orders: {
	family:             "queue"
	logical_id:         "orders-renamed"
	encryption_key_ref: "k"
}
`)
	if len(doc.Errors) > 0 {
		t.Fatalf("unexpected document errors: %v", doc.Errors)
	}
	specs, err := doc.Specs()
	if err != nil {
		t.Fatal(err)
	}
	if specs[0].ID() != "orders-renamed" {
		t.Errorf("ID() = %q, explicit logical_id must win", specs[0].ID())
	}
}

func TestLoadInlineUnknownFamily(t *testing.T) {
	doc := loadInline(t, `
stack: name: "demo"
resources: thing: {
	family: "lava-lamp"
}
`)
	if len(doc.Errors) != 1 {
		t.Fatalf("expected one error, got %v", doc.Errors)
	}
	if doc.Errors[0].Path != "resources.thing" {
		t.Errorf("error path = %q", doc.Errors[0].Path)
	}
}

func TestLoadInlineMissingStack(t *testing.T) {
	doc := loadInline(t, `resources: {}`)
	if len(doc.Errors) == 0 {
		t.Fatal("expected an error for a document with no stack block")
	}
}

func TestLoadInlineSchemaRejection(t *testing.T) {
	doc := loadInline(t, `
stack: name: "demo"
resources: orders: {
	family:             "queue"
	encryption_key_ref: "k"
	removal_policy:     "recycle"
}
`)
	if len(doc.Errors) != 1 {
		t.Fatalf("expected a schema error, got %v", doc.Errors)
	}
}

func TestLoadInlineInvalidDuration(t *testing.T) {
	doc := loadInline(t, `
stack: name: "demo"
resources: orders: {
	family:             "queue"
	encryption_key_ref: "k"
	retention_period:   "fortnight"
}
`)
	if len(doc.Errors) != 1 {
		t.Fatalf("expected a duration error, got %v", doc.Errors)
	}
}

func TestLoadInlineComputeScript(t *testing.T) {
	doc := loadInline(t, `
stack: name: "demo"
variables: region: "eu-west-1"
compute: """
	suffix = "-" + variables["region"]
	_scratch = 42
	"""
resources: {}
`)
	if len(doc.Errors) > 0 {
		t.Fatalf("unexpected document errors: %v", doc.Errors)
	}
	if doc.Variables["suffix"] != "-eu-west-1" {
		t.Errorf("computed variable = %v", doc.Variables["suffix"])
	}
	if _, leaked := doc.Variables["_scratch"]; leaked {
		t.Error("underscore globals must not leak into variables")
	}
	if doc.Variables["region"] != "eu-west-1" {
		t.Error("declared variables must survive the compute pass")
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stack.yaml")
	content := `
stack:
  name: orders-dev
resources:
  orders:
    family: queue
    encryption_key_ref: ordersKey
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := NewLoader().Load(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(doc.Errors) > 0 {
		t.Fatalf("unexpected document errors: %v", doc.Errors)
	}
	if doc.Stack.Name != "orders-dev" {
		t.Errorf("stack name = %q", doc.Stack.Name)
	}
	if len(doc.Resources) != 1 || doc.Resources[0].Family != spec.FamilyQueue {
		t.Errorf("resources = %+v", doc.Resources)
	}
}

func TestLoadDirectoryUnifiesSources(t *testing.T) {
	dir := t.TempDir()
	writeFile := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	writeFile("10-stack.cue", `stack: name: "orders-dev"`)
	writeFile("20-resources.cue", `
resources: orders: {
	family:             "queue"
	encryption_key_ref: "ordersKey"
}
`)

	doc, err := NewLoader().Load(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(doc.Errors) > 0 {
		t.Fatalf("unexpected document errors: %v", doc.Errors)
	}
	if doc.Stack.Name != "orders-dev" || len(doc.Resources) != 1 {
		t.Errorf("unified document = %+v", doc)
	}
	if len(doc.SourceFiles) != 2 {
		t.Errorf("source files = %v", doc.SourceFiles)
	}
}

func TestLoadEmptyDirectory(t *testing.T) {
	doc, err := NewLoader().Load(context.Background(), []string{t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(doc.Errors) == 0 {
		t.Fatal("expected an error for a directory with no documents")
	}
}

func TestLoadMissingSource(t *testing.T) {
	if _, err := NewLoader().Load(context.Background(), []string{"/no/such/file.cue"}); err == nil {
		t.Fatal("expected an error for a missing source")
	}
}
