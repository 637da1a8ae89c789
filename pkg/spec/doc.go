// Package spec defines the caller-authored resource specifications accepted
// by the Loom construct engine, and the validator that gates construction.
//
// A Spec is an immutable, fully typed description of one desired resource.
// Each resource family (queue, topic, bucket, key, record, role) has its own
// options struct mirroring the family's option table; optional fields are
// pointers so an unset option is distinguishable from an explicit zero value.
// Dynamic free-form maps are deliberately not accepted.
//
// # Validation
//
// Validate runs a fixed rule battery per family:
//
//   - required-field rules (an encryption key reference must be present;
//     absence is an error, never a default)
//   - range, length, pattern, and count rules (weight within [0,255],
//     descriptions at most 8192 characters, identifiers at most 64 characters
//     matching ^[A-Za-z0-9+=,.@_-]+$, at most 10 extra policy statements)
//   - cross-field rules (content-based deduplication requires FIFO mode, a
//     max receive count requires dead-letter queueing, any non-simple routing
//     mode requires a set identifier)
//
// Every rule is evaluated independently so a single pass reports all
// violations, not just the first. Validation failures are caller mistakes:
// the engine performs no partial construction and issues no retries.
//
// Struct-tag rules are enforced with go-playground/validator; cross-field
// rules are explicit code so the dependency between fields is visible at the
// call site.
package spec
