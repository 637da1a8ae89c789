// Package constructs turns validated resource specs into synthesis-ready
// graphs. It is the orchestration layer of the engine: Build runs the
// validator, resolves the lifecycle default from the environment, dispatches
// to the family wirer, stamps tags, and checks the structural invariants of
// the produced graph, in strict sequence with no I/O.
//
// # Dependent resources
//
// A family wirer may derive auxiliary nodes the caller never named: a queue
// with dead-letter queueing enabled gains a companion queue (same encryption
// key, fixed 14-day retention, name suffixed -dlq with any FIFO suffix kept
// terminal) and a redrive policy pointing at it; a key gains an alias node;
// a failover record becomes a low-level record set because the high-level
// form cannot express failover routing. Auxiliary names derive
// deterministically from the primary logical ID so repeated synthesis of
// the same spec yields the same graph.
//
// # Failure semantics
//
// Spec mistakes come back as the validation error list and abort
// construction before any node exists. Errors returned by Build itself are
// engine defects: states that are unreachable for a validated spec, such as
// an unhandled routing variant. Callers should treat them as fatal.
package constructs
