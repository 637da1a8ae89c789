package constructs

import (
	"strings"

	"github.com/loomworks/loom/pkg/engine"
	"github.com/loomworks/loom/pkg/policy"
	"github.com/loomworks/loom/pkg/spec"
)

// aliasPrefix namespaces defaulted key aliases. Logical IDs cannot contain
// a slash, so a defaulted alias can never land in the reserved alias/aws/
// namespace; explicit aliases are checked by the validator instead.
const aliasPrefix = "alias/"

// wireKey builds the key graph: the key itself, carrying the grants the
// policy composer mints for the requested capabilities, plus a companion
// alias node.
func wireKey(s spec.KeySpec, env engine.Environment) (*Result, error) {
	graph := engine.NewGraph(spec.FamilyKey)
	removal := engine.ResolveRemovalPolicy(s.RemovalPolicy, env)

	grants, err := policy.Compose(engine.Token(s.LogicalID, "arn"), s.Capabilities)
	if err != nil {
		// Unknown capabilities are rejected by validation; reaching this is
		// an engine defect.
		return nil, engine.NewInternalError("compose key grants", err).
			WithCode(engine.ErrCodeInternal).WithNode(s.LogicalID)
	}

	rotation := env.IsProd
	if s.EnableRotation != nil {
		rotation = *s.EnableRotation
	}

	key := engine.NewNode(engine.KindKey, s.LogicalID)
	key.RemovalPolicy = removal
	key.Set("enable_rotation", rotation)
	if s.Description != nil {
		key.Set("description", *s.Description)
	}
	if len(grants) > 0 {
		key.Set("grants", grantProps(grants))
	}
	if len(s.ExtraStatements) > 0 {
		key.Set("policy_statements", statementProps(s.ExtraStatements))
	}
	graph.Add(key)

	aliasName := aliasPrefix + strings.ToLower(s.LogicalID)
	if s.Alias != nil {
		aliasName = *s.Alias
	}

	aliasID := s.LogicalID + "-alias"
	alias := engine.NewNode(engine.KindKeyAlias, aliasID)
	alias.RemovalPolicy = removal
	alias.Set("alias_name", aliasName)
	alias.Set("target_key_ref", engine.Token(s.LogicalID, "arn"))
	alias.AddDependency(s.LogicalID)
	graph.Add(alias)

	graph.DeclareOutput(s.LogicalID+".arn", engine.Token(s.LogicalID, "arn"), "ARN of the key")
	graph.DeclareOutput(s.LogicalID+".id", engine.Token(s.LogicalID, "id"), "ID of the key")
	graph.DeclareOutput(aliasID+".name", aliasName, "Alias of the key")

	return &Result{Graph: graph, Grants: grants}, nil
}

// grantProps converts composed grants to resolved property values.
func grantProps(grants []policy.Grant) []map[string]any {
	out := make([]map[string]any, 0, len(grants))
	for _, g := range grants {
		m := map[string]any{
			"sid":       g.Sid,
			"principal": g.Principal,
			"actions":   g.Actions,
			"resource":  g.Resource,
		}
		if len(g.Conditions) > 0 {
			m["conditions"] = g.Conditions
		}
		out = append(out, m)
	}
	return out
}
