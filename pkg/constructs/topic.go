package constructs

import (
	"github.com/loomworks/loom/pkg/engine"
	"github.com/loomworks/loom/pkg/spec"
)

// wireTopic builds the topic graph. Topics share the queue family's FIFO
// naming convention, including the terminal suffix.
func wireTopic(s spec.TopicSpec, env engine.Environment) (*Result, error) {
	graph := engine.NewGraph(spec.FamilyTopic)
	removal := engine.ResolveRemovalPolicy(s.RemovalPolicy, env)

	fifo := isSet(s.Fifo)
	name := stringOr(s.TopicName, s.LogicalID)
	if fifo {
		name = ensureFifoSuffix(name)
	}

	node := engine.NewNode(engine.KindTopic, s.LogicalID)
	node.RemovalPolicy = removal
	node.Set("topic_name", name)
	node.Set("encryption_key_ref", s.EncryptionKeyRef)
	if s.DisplayName != nil {
		node.Set("display_name", *s.DisplayName)
	}
	if fifo {
		node.Set("fifo", true)
		node.Set("content_based_deduplication", isSet(s.ContentBasedDeduplication))
	}
	if s.DeliveryStatusRoleRef != nil {
		node.Set("delivery_status_role_ref", *s.DeliveryStatusRoleRef)
	}
	if len(s.ExtraStatements) > 0 {
		node.Set("policy_statements", statementProps(s.ExtraStatements))
	}

	graph.Add(node)
	graph.DeclareOutput(s.LogicalID+".arn", engine.Token(s.LogicalID, "arn"), "ARN of the topic")
	graph.DeclareOutput(s.LogicalID+".name", name, "Physical name of the topic")

	return &Result{Graph: graph}, nil
}
