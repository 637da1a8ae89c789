package config

import (
	"fmt"
	"sort"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/loomworks/loom/pkg/spec"
)

// SchemaRegistry manages the CUE schemas resource declarations are checked
// against before decoding. One schema is registered per resource family.
type SchemaRegistry struct {
	ctx     *cue.Context
	schemas map[string]cue.Value
	mu      sync.RWMutex
}

// NewSchemaRegistry creates a registry with the built-in family schemas.
func NewSchemaRegistry() *SchemaRegistry {
	sr := &SchemaRegistry{
		ctx:     cuecontext.New(),
		schemas: make(map[string]cue.Value),
	}
	sr.registerBuiltinSchemas()
	return sr
}

func (sr *SchemaRegistry) registerBuiltinSchemas() {
	sr.RegisterSchema(string(spec.FamilyQueue), builtinQueueSchema)
	sr.RegisterSchema(string(spec.FamilyTopic), builtinTopicSchema)
	sr.RegisterSchema(string(spec.FamilyBucket), builtinBucketSchema)
	sr.RegisterSchema(string(spec.FamilyKey), builtinKeySchema)
	sr.RegisterSchema(string(spec.FamilyRecord), builtinRecordSchema)
	sr.RegisterSchema(string(spec.FamilyRole), builtinRoleSchema)
}

// RegisterSchema compiles and registers a CUE schema under the given name,
// replacing any previous schema with that name.
func (sr *SchemaRegistry) RegisterSchema(name, schema string) error {
	val := sr.ctx.CompileString(schema)
	if err := val.Err(); err != nil {
		return fmt.Errorf("compile schema %s: %w", name, err)
	}

	sr.mu.Lock()
	defer sr.mu.Unlock()
	sr.schemas[name] = val
	return nil
}

// Schema retrieves a schema by name.
func (sr *SchemaRegistry) Schema(name string) (cue.Value, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()
	val, ok := sr.schemas[name]
	return val, ok
}

// Check validates a decoded declaration against the named family schema.
func (sr *SchemaRegistry) Check(family string, declaration any) error {
	schema, ok := sr.Schema(family)
	if !ok {
		return fmt.Errorf("no schema for family %s", family)
	}

	val := sr.ctx.Encode(declaration)
	if err := val.Err(); err != nil {
		return fmt.Errorf("encode declaration: %w", err)
	}

	root := schema.LookupPath(cue.ParsePath("#Declaration"))
	if !root.Exists() {
		return fmt.Errorf("schema %s has no #Declaration definition", family)
	}
	if err := root.Unify(val).Validate(cue.Concrete(true)); err != nil {
		return err
	}
	return nil
}

// ListSchemas returns all registered schema names, sorted.
func (sr *SchemaRegistry) ListSchemas() []string {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	names := make([]string, 0, len(sr.schemas))
	for name := range sr.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Built-in family schemas. Shapes only: cross-field rules (FIFO pairing,
// routing exclusivity, bounds) belong to spec validation, which reports all
// violations at once instead of failing at the first unification error.

const builtinCommonFields = `
	logical_id?: string & =~"^[A-Za-z0-9+=,.@_-]+$"
	family:      string
	removal_policy?: "retain" | "destroy"
	tags?: {[string]: string}
`

const builtinStatementSchema = `
#Statement: {
	effect:  "Allow" | "Deny"
	actions: [...string] & [_, ...]
	resources?: [...string]
	principals?: [...string]
}
`

const builtinQueueSchema = builtinStatementSchema + `
#Declaration: {
` + builtinCommonFields + `
	encryption_key_ref: string
	queue_name?:        string
	retention_period?:  int | string
	visibility_timeout?: int | string
	fifo?:                         bool
	content_based_deduplication?:  bool
	enable_dead_letter_queue?:     bool
	max_receive_count?:            int
	extra_statements?: [...#Statement]
}
`

const builtinTopicSchema = builtinStatementSchema + `
#Declaration: {
` + builtinCommonFields + `
	encryption_key_ref: string
	topic_name?:        string
	display_name?:      string
	fifo?:                        bool
	content_based_deduplication?: bool
	delivery_status_role_ref?:    string
	extra_statements?: [...#Statement]
}
`

const builtinBucketSchema = builtinStatementSchema + `
#Declaration: {
` + builtinCommonFields + `
	encryption_key_ref: string
	bucket_name?:       string
	versioned?:         bool
	expire_after?:      int | string
	extra_statements?: [...#Statement]
}
`

const builtinKeySchema = builtinStatementSchema + `
#Declaration: {
` + builtinCommonFields + `
	alias?:           string
	description?:     string
	enable_rotation?: bool
	capabilities?: [..."queue-service" | "notification-service" | "compute-service" | "storage-service"]
	extra_statements?: [...#Statement]
}
`

const builtinRecordSchema = `
#Declaration: {
` + builtinCommonFields + `
	zone_name:   string
	record_name: string
	record_type: "A" | "AAAA" | "CNAME" | "TXT" | "MX" | "NS" | "SRV"
	target:      string
	ttl?:        int | string
	weight?:     int
	failover?:   "PRIMARY" | "SECONDARY"
	continent_code?:   string
	country_code?:     string
	subdivision_code?: string
	region?:           string
	set_identifier?:   string
}
`

const builtinRoleSchema = builtinStatementSchema + `
#Declaration: {
` + builtinCommonFields + `
	assumed_by: string
	role_name?: string
	description?: string
	max_session_duration?: int | string
	inline_statements?: [...#Statement]
}
`
