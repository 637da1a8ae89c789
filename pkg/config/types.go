package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/loomworks/loom/pkg/spec"
)

// StackMeta identifies the stack a document describes.
type StackMeta struct {
	// Name is the stack name (e.g., "orders-prod").
	Name string `json:"name" validate:"required"`

	// Environment overrides environment detection for the stack. When empty
	// the environment is inferred from Name.
	Environment string `json:"environment,omitempty"`

	// Tags are applied to every resource synthesized from the document.
	Tags map[string]string `json:"tags,omitempty"`
}

// ResourceEntry is one resource declaration before family dispatch. Body
// holds the raw declaration so it can be decoded into the family's spec
// type once the family is known.
type ResourceEntry struct {
	// LogicalID is the declaration key in the document.
	LogicalID string `json:"logical_id"`

	// Family selects the spec type the body decodes into.
	Family spec.Family `json:"family"`

	// Body is the raw declaration, including the family field.
	Body json.RawMessage `json:"body"`
}

// StackDocument is a fully parsed stack document.
type StackDocument struct {
	// Stack is the stack metadata.
	Stack StackMeta `json:"stack"`

	// Variables are document-level variables, after any compute script ran.
	Variables map[string]any `json:"variables,omitempty"`

	// Resources are the resource declarations in document order.
	Resources []ResourceEntry `json:"resources"`

	// SourceFiles are the files the document was assembled from.
	SourceFiles []string `json:"source_files"`

	// Errors lists parse and schema errors. A document with errors must not
	// be synthesized.
	Errors []ParseError `json:"errors,omitempty"`
}

// ParseError is a parse or schema error with source location when known.
type ParseError struct {
	// File is the source file path.
	File string `json:"file,omitempty"`

	// Line is the line number (1-indexed).
	Line int `json:"line,omitempty"`

	// Column is the column number (1-indexed).
	Column int `json:"column,omitempty"`

	// Path is the document path to the error (e.g., "resources.ordersQueue").
	Path string `json:"path,omitempty"`

	// Message is the error message.
	Message string `json:"message"`
}

// Error renders the error with whatever location detail is present.
func (e ParseError) Error() string {
	switch {
	case e.File != "" && e.Line > 0:
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
	case e.Path != "":
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	default:
		return e.Message
	}
}

// durationFields are the declaration fields that accept Go duration strings
// ("15m", "4h") in documents. They are normalized to nanosecond integers
// before decoding so the spec types' time.Duration fields unmarshal cleanly.
var durationFields = map[string]bool{
	"retention_period":     true,
	"visibility_timeout":   true,
	"expire_after":         true,
	"ttl":                  true,
	"max_session_duration": true,
}

// Spec decodes the entry body into the spec type its family selects.
func (e ResourceEntry) Spec() (spec.Spec, error) {
	decode := func(v any) error {
		if err := json.Unmarshal(e.Body, v); err != nil {
			return fmt.Errorf("decode %s declaration %q: %w", e.Family, e.LogicalID, err)
		}
		return nil
	}

	switch e.Family {
	case spec.FamilyQueue:
		var s spec.QueueSpec
		if err := decode(&s); err != nil {
			return nil, err
		}
		return withID(s.Common, e.LogicalID, func(c spec.Common) spec.Spec { s.Common = c; return s }), nil
	case spec.FamilyTopic:
		var s spec.TopicSpec
		if err := decode(&s); err != nil {
			return nil, err
		}
		return withID(s.Common, e.LogicalID, func(c spec.Common) spec.Spec { s.Common = c; return s }), nil
	case spec.FamilyBucket:
		var s spec.BucketSpec
		if err := decode(&s); err != nil {
			return nil, err
		}
		return withID(s.Common, e.LogicalID, func(c spec.Common) spec.Spec { s.Common = c; return s }), nil
	case spec.FamilyKey:
		var s spec.KeySpec
		if err := decode(&s); err != nil {
			return nil, err
		}
		return withID(s.Common, e.LogicalID, func(c spec.Common) spec.Spec { s.Common = c; return s }), nil
	case spec.FamilyRecord:
		var s spec.RecordSpec
		if err := decode(&s); err != nil {
			return nil, err
		}
		return withID(s.Common, e.LogicalID, func(c spec.Common) spec.Spec { s.Common = c; return s }), nil
	case spec.FamilyRole:
		var s spec.RoleSpec
		if err := decode(&s); err != nil {
			return nil, err
		}
		return withID(s.Common, e.LogicalID, func(c spec.Common) spec.Spec { s.Common = c; return s }), nil
	default:
		return nil, fmt.Errorf("declaration %q: unknown family %q", e.LogicalID, e.Family)
	}
}

// withID fills the logical ID from the declaration key when the body did not
// set one explicitly. An explicit logical_id in the body wins.
func withID(c spec.Common, key string, build func(spec.Common) spec.Spec) spec.Spec {
	if c.LogicalID == "" {
		c.LogicalID = key
	}
	return build(c)
}

// Specs decodes every resource entry. Decoding stops at the first failure;
// spec-level validation happens later, during construction.
func (d *StackDocument) Specs() ([]spec.Spec, error) {
	specs := make([]spec.Spec, 0, len(d.Resources))
	for _, entry := range d.Resources {
		s, err := entry.Spec()
		if err != nil {
			return nil, err
		}
		specs = append(specs, s)
	}
	return specs, nil
}

// normalizeDeclaration rewrites duration strings in a decoded declaration
// map to nanosecond integers, recursing into nested values.
func normalizeDeclaration(m map[string]any) error {
	for k, v := range m {
		switch val := v.(type) {
		case string:
			if durationFields[k] {
				d, err := time.ParseDuration(val)
				if err != nil {
					return fmt.Errorf("field %s: invalid duration %q: %w", k, val, err)
				}
				m[k] = int64(d)
			}
		case map[string]any:
			if err := normalizeDeclaration(val); err != nil {
				return err
			}
		case []any:
			for _, item := range val {
				if nested, ok := item.(map[string]any); ok {
					if err := normalizeDeclaration(nested); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}
