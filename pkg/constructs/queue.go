package constructs

import (
	"strings"
	"time"

	"github.com/loomworks/loom/pkg/engine"
	"github.com/loomworks/loom/pkg/spec"
)

const (
	// fifoSuffix marks first-in-first-out queues and topics.
	fifoSuffix = ".fifo"

	// dlqSuffix derives a dead-letter queue name from its primary.
	dlqSuffix = "-dlq"

	// dlqRetention is the fixed retention window for dead-letter queues:
	// long enough to investigate any redrive before messages expire.
	dlqRetention = 14 * 24 * time.Hour

	// defaultMaxReceiveCount is the redrive threshold when the caller does
	// not choose one.
	defaultMaxReceiveCount = 3

	// defaultQueueRetention applies when the caller sets no retention.
	defaultQueueRetention = 4 * 24 * time.Hour
)

// wireQueue builds the queue graph: the primary queue and, when dead-letter
// queueing is requested, a companion queue wired in via a redrive policy.
func wireQueue(s spec.QueueSpec, env engine.Environment) (*Result, error) {
	graph := engine.NewGraph(spec.FamilyQueue)
	removal := engine.ResolveRemovalPolicy(s.RemovalPolicy, env)

	fifo := isSet(s.Fifo)
	name := s.LogicalID
	if s.QueueName != nil {
		name = *s.QueueName
	}
	if fifo {
		name = ensureFifoSuffix(name)
	}

	primary := engine.NewNode(engine.KindQueue, s.LogicalID)
	primary.RemovalPolicy = removal
	primary.Set("queue_name", name)
	primary.Set("encryption_key_ref", s.EncryptionKeyRef)
	primary.Set("retention_seconds", int64(durationOr(s.RetentionPeriod, defaultQueueRetention).Seconds()))
	if s.VisibilityTimeout != nil {
		primary.Set("visibility_timeout_seconds", int64(s.VisibilityTimeout.Seconds()))
	}
	if fifo {
		primary.Set("fifo", true)
		primary.Set("content_based_deduplication", isSet(s.ContentBasedDeduplication))
	}
	if len(s.ExtraStatements) > 0 {
		primary.Set("policy_statements", statementProps(s.ExtraStatements))
	}

	if isSet(s.EnableDeadLetterQueue) {
		dlqID := s.LogicalID + dlqSuffix
		dlq := engine.NewNode(engine.KindQueue, dlqID)
		dlq.RemovalPolicy = removal
		dlq.Set("queue_name", deadLetterName(name, fifo))
		dlq.Set("encryption_key_ref", s.EncryptionKeyRef)
		dlq.Set("retention_seconds", int64(dlqRetention.Seconds()))
		if fifo {
			dlq.Set("fifo", true)
		}
		graph.Add(dlq)
		graph.DeclareOutput(dlqID+".arn", engine.Token(dlqID, "arn"), "ARN of the dead-letter queue")

		primary.Set("redrive_policy", map[string]any{
			"target_arn":        engine.Token(dlqID, "arn"),
			"max_receive_count": intOr(s.MaxReceiveCount, defaultMaxReceiveCount),
		})
		primary.AddDependency(dlqID)
	}

	graph.Add(primary)
	graph.DeclareOutput(s.LogicalID+".arn", engine.Token(s.LogicalID, "arn"), "ARN of the queue")
	graph.DeclareOutput(s.LogicalID+".url", engine.Token(s.LogicalID, "url"), "URL of the queue")
	graph.DeclareOutput(s.LogicalID+".name", name, "Physical name of the queue")

	return &Result{Graph: graph}, nil
}

// ensureFifoSuffix appends the FIFO suffix exactly once: re-running it on an
// already-suffixed name is a no-op.
func ensureFifoSuffix(name string) string {
	if strings.HasSuffix(name, fifoSuffix) {
		return name
	}
	return name + fifoSuffix
}

// deadLetterName derives the companion queue name, keeping the FIFO suffix
// terminal so "orders.fifo" becomes "orders-dlq.fifo".
func deadLetterName(primaryName string, fifo bool) string {
	base := strings.TrimSuffix(primaryName, fifoSuffix)
	if fifo {
		return base + dlqSuffix + fifoSuffix
	}
	return base + dlqSuffix
}
