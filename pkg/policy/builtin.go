package policy

// BuiltinGuardPolicies returns the guard policies loaded into every Guard.
func BuiltinGuardPolicies() []GuardPolicy {
	return []GuardPolicy{
		wildcardGrantPolicy(),
		reservedAliasPolicy(),
		managedTagPolicy(),
		prodLifecyclePolicy(),
	}
}

// wildcardGrantPolicy rejects graphs whose composed grants carry wildcard
// actions. The composer has no wildcard path; this is the independent check.
func wildcardGrantPolicy() GuardPolicy {
	return GuardPolicy{
		Name:        "no-wildcard-grants",
		Description: "Grant statements must name exact actions, never wildcards",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"security", "least-privilege"},
		Rego: `package loom.guard.grants

import rego.v1

deny contains violation if {
	some grant in input.grants
	some action in grant.actions
	contains(action, "*")
	violation := {
		"message": sprintf("grant %s carries wildcard action %q", [grant.sid, action]),
		"severity": "error",
	}
}
`,
	}
}

// reservedAliasPolicy rejects key aliases in the provider-managed namespace.
func reservedAliasPolicy() GuardPolicy {
	return GuardPolicy{
		Name:        "no-reserved-alias",
		Description: "Key aliases must not sit in the reserved alias/aws/ namespace",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"security", "naming"},
		Rego: `package loom.guard.alias

import rego.v1

deny contains violation if {
	some node in input.graph.nodes
	node.kind == "key_alias"
	startswith(lower(node.props.alias_name), "alias/aws/")
	violation := {
		"message": sprintf("alias %q uses the reserved alias/aws/ namespace", [node.props.alias_name]),
		"severity": "error",
		"node": node.logical_id,
	}
}
`,
	}
}

// managedTagPolicy requires the engine's fixed tag set on every node.
func managedTagPolicy() GuardPolicy {
	return GuardPolicy{
		Name:        "managed-by-tag",
		Description: "Every synthesized node must carry the ManagedBy tag",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"governance", "tagging"},
		Rego: `package loom.guard.tags

import rego.v1

deny contains violation if {
	some node in input.graph.nodes
	not node.tags.ManagedBy
	violation := {
		"message": sprintf("node %q is missing the ManagedBy tag", [node.logical_id]),
		"severity": "error",
		"node": node.logical_id,
	}
}
`,
	}
}

// prodLifecyclePolicy warns when a production graph destroys data on stack
// deletion.
func prodLifecyclePolicy() GuardPolicy {
	return GuardPolicy{
		Name:        "prod-lifecycle",
		Description: "Production resources should retain data on stack deletion",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"governance", "lifecycle"},
		Rego: `package loom.guard.lifecycle

import rego.v1

deny contains violation if {
	input.environment.is_prod
	some node in input.graph.nodes
	node.removal_policy == "destroy"
	violation := {
		"message": sprintf("node %q destroys data on stack deletion in production", [node.logical_id]),
		"severity": "warning",
		"node": node.logical_id,
	}
}
`,
	}
}
