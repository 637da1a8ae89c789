package constructs

import (
	"fmt"

	"github.com/loomworks/loom/pkg/engine"
	"github.com/loomworks/loom/pkg/policy"
	"github.com/loomworks/loom/pkg/spec"
)

// BuildOptions carries the caller-provided context for one construction.
type BuildOptions struct {
	// Environment is the explicit production classification. Callers that
	// name stacks by convention may derive it with engine.DetectEnvironment.
	Environment engine.Environment

	// ExtraTags are stamped onto every node in addition to the fixed tag
	// set and the spec's own tags.
	ExtraTags map[string]string
}

// Result is the product of a successful construction.
type Result struct {
	// Graph is the synthesis-ready resource graph.
	Graph *engine.Graph

	// Grants are the composed key grants, populated for key constructs.
	// They feed the policy guard's input alongside the graph.
	Grants []policy.Grant
}

// Build runs the full construction pipeline for one spec: validation,
// lifecycle resolution, family-specific wiring, tagging, and structural
// graph checks, in strict sequence.
//
// The three return values are disjoint: spec errors abort construction and
// come back as the validation list; a non-nil error is an engine defect that
// should have been unreachable for a validated spec. On success both are
// empty and the Result carries the graph.
func Build(s spec.Spec, opts BuildOptions) (*Result, []spec.ValidationError, error) {
	if verrs := spec.Validate(s); len(verrs) > 0 {
		return nil, verrs, nil
	}

	result, err := wire(s, opts.Environment)
	if err != nil {
		return nil, nil, err
	}

	tags := mergeTags(specTags(s), opts.ExtraTags)
	result.Graph.ApplyTags(tags)

	if err := result.Graph.Sort(); err != nil {
		return nil, nil, err
	}
	if err := result.Graph.Validate(); err != nil {
		return nil, nil, err
	}

	return result, nil, nil
}

// wire dispatches to the family wirer. Specs reaching this point have
// validated, so an unhandled family is an engine defect.
func wire(s spec.Spec, env engine.Environment) (*Result, error) {
	switch sp := s.(type) {
	case spec.QueueSpec:
		return wireQueue(sp, env)
	case *spec.QueueSpec:
		return wireQueue(*sp, env)
	case spec.TopicSpec:
		return wireTopic(sp, env)
	case *spec.TopicSpec:
		return wireTopic(*sp, env)
	case spec.BucketSpec:
		return wireBucket(sp, env)
	case *spec.BucketSpec:
		return wireBucket(*sp, env)
	case spec.KeySpec:
		return wireKey(sp, env)
	case *spec.KeySpec:
		return wireKey(*sp, env)
	case spec.RecordSpec:
		return wireRecord(sp, env)
	case *spec.RecordSpec:
		return wireRecord(*sp, env)
	case spec.RoleSpec:
		return wireRole(sp, env)
	case *spec.RoleSpec:
		return wireRole(*sp, env)
	default:
		return nil, engine.NewInternalError(
			fmt.Sprintf("no wirer for spec type %T", s), nil).
			WithCode(engine.ErrCodeInternal)
	}
}

func specTags(s spec.Spec) map[string]string {
	switch sp := s.(type) {
	case spec.QueueSpec:
		return sp.Tags
	case *spec.QueueSpec:
		return sp.Tags
	case spec.TopicSpec:
		return sp.Tags
	case *spec.TopicSpec:
		return sp.Tags
	case spec.BucketSpec:
		return sp.Tags
	case *spec.BucketSpec:
		return sp.Tags
	case spec.KeySpec:
		return sp.Tags
	case *spec.KeySpec:
		return sp.Tags
	case spec.RecordSpec:
		return sp.Tags
	case *spec.RecordSpec:
		return sp.Tags
	case spec.RoleSpec:
		return sp.Tags
	case *spec.RoleSpec:
		return sp.Tags
	default:
		return nil
	}
}

func mergeTags(base, extra map[string]string) map[string]string {
	if len(base) == 0 && len(extra) == 0 {
		return nil
	}
	merged := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}
