package constructs

import (
	"strings"

	"github.com/loomworks/loom/pkg/engine"
	"github.com/loomworks/loom/pkg/spec"
)

// wireBucket builds the bucket graph. Versioning defaults on in production;
// the public access block is unconditional and not configurable.
func wireBucket(s spec.BucketSpec, env engine.Environment) (*Result, error) {
	graph := engine.NewGraph(spec.FamilyBucket)
	removal := engine.ResolveRemovalPolicy(s.RemovalPolicy, env)

	name := stringOr(s.BucketName, strings.ToLower(s.LogicalID))

	versioned := env.IsProd
	if s.Versioned != nil {
		versioned = *s.Versioned
	}

	node := engine.NewNode(engine.KindBucket, s.LogicalID)
	node.RemovalPolicy = removal
	node.Set("bucket_name", name)
	node.Set("encryption_key_ref", s.EncryptionKeyRef)
	node.Set("versioned", versioned)
	node.Set("block_public_access", true)
	if s.ExpireAfter != nil {
		node.Set("lifecycle_rules", []map[string]any{
			{"expire_after_days": int(s.ExpireAfter.Hours() / 24)},
		})
	}
	if len(s.ExtraStatements) > 0 {
		node.Set("policy_statements", statementProps(s.ExtraStatements))
	}

	graph.Add(node)
	graph.DeclareOutput(s.LogicalID+".arn", engine.Token(s.LogicalID, "arn"), "ARN of the bucket")
	graph.DeclareOutput(s.LogicalID+".name", name, "Physical name of the bucket")
	graph.DeclareOutput(s.LogicalID+".domain", engine.Token(s.LogicalID, "domain"), "Domain name of the bucket")

	return &Result{Graph: graph}, nil
}
