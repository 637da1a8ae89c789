// Package engine provides the core data model of the Loom construct engine:
// the resource graph, the environment classification that drives lifecycle
// defaults, and the classified error type shared across the engine.
//
// # Data model
//
// A Graph is an ordered list of Nodes plus declared Outputs and applied
// tags. Nodes form a DAG: a primary resource may depend on an auxiliary
// resource the engine created for it (a dead-letter queue, a key alias, a
// low-level record set), never the reverse. The graph is the engine's sole
// output; template rendering and cloud API invocation live in downstream
// consumers and are out of scope here.
//
// Construction is single-threaded and synchronous with no I/O and no shared
// mutable state: every exported function is a pure function over its inputs,
// so independent callers may build graphs concurrently. Node UIDs and
// auxiliary names derive deterministically from logical IDs, which keeps
// repeated synthesis of the same spec idempotent.
//
// # Environment
//
// Environment is passed into construction explicitly by the caller.
// DetectEnvironment retains the substring heuristic over stack identifiers
// (dev, test, sandbox, local, demo) as an optional convenience outside the
// trusted core. The environment feeds exactly one decision: the lifecycle
// default (retain in production, destroy otherwise), which an explicit
// RemovalPolicy in the spec always overrides.
//
// # Errors
//
// EngineError carries one of two classes. Invalid errors are caller
// mistakes, surfaced exhaustively before any construction happens. Internal
// errors are engine defects: states that should be unreachable once a spec
// has validated, such as a cyclic graph. No error is silently ignored or
// defaulted away.
package engine
