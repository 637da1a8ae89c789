// Package policy composes least-privilege grants for shared resources and
// audits synthesized graphs with Open Policy Agent.
//
// # Composition
//
// Compose builds principal-scoped grant statements for a shared encryption
// key from a set of requested service capabilities. The mapping from
// capability to action set is a closed table: each known principal receives
// exactly the decrypt/generate-data-key actions it needs, scoped with a
// kms:ViaService condition, and there is no wildcard path. Capabilities
// compose additively; requesting two principals yields the union of their
// statements.
//
//	grants, err := policy.Compose("shared-key", []spec.ServiceCapability{
//	    spec.CapabilityQueue,
//	    spec.CapabilityNotification,
//	})
//
// # Guard
//
// Guard evaluates Rego policies against a synthesized graph after
// construction. Built-in policies reject wildcard grant actions, reserved
// alias namespaces, and untagged nodes, and warn about destroy lifecycles in
// production. Custom .rego files can be loaded from disk and hot-reloaded
// via the fsnotify-backed Loader.
//
//	guard, err := policy.NewGuard(logger)
//	result, err := guard.Evaluate(ctx, &policy.GuardInput{Graph: graph, Environment: env})
//	if !result.Allowed { ... }
//
// Custom policies follow the deny-set convention:
//
//	package custom.guard.naming
//
//	import rego.v1
//
//	deny contains violation if {
//	    some node in input.graph.nodes
//	    not startswith(node.logical_id, "team-")
//	    violation := {
//	        "message": sprintf("node %q must carry the team- prefix", [node.logical_id]),
//	        "severity": "error",
//	        "node": node.logical_id,
//	    }
//	}
package policy
