package constructs

import (
	"time"

	"github.com/loomworks/loom/pkg/engine"
	"github.com/loomworks/loom/pkg/spec"
)

// defaultSessionDuration applies when the caller sets no session bound.
const defaultSessionDuration = time.Hour

// wireRole builds the role graph: a single node whose assume-role policy is
// scoped to exactly the principal the spec names.
func wireRole(s spec.RoleSpec, env engine.Environment) (*Result, error) {
	graph := engine.NewGraph(spec.FamilyRole)
	removal := engine.ResolveRemovalPolicy(s.RemovalPolicy, env)

	node := engine.NewNode(engine.KindRole, s.LogicalID)
	node.RemovalPolicy = removal
	node.Set("role_name", stringOr(s.RoleName, s.LogicalID))
	node.Set("assume_role_policy", map[string]any{
		"effect":    "Allow",
		"principal": s.AssumedBy,
		"actions":   []string{"sts:AssumeRole"},
	})
	node.Set("max_session_seconds", int64(durationOr(s.MaxSessionDuration, defaultSessionDuration).Seconds()))
	if s.Description != nil {
		node.Set("description", *s.Description)
	}
	if len(s.InlineStatements) > 0 {
		node.Set("inline_statements", statementProps(s.InlineStatements))
	}

	graph.Add(node)
	graph.DeclareOutput(s.LogicalID+".arn", engine.Token(s.LogicalID, "arn"), "ARN of the role")
	graph.DeclareOutput(s.LogicalID+".name", stringOr(s.RoleName, s.LogicalID), "Physical name of the role")

	return &Result{Graph: graph}, nil
}
