// Package stores persists synthesis snapshots. Every synth run can record
// the graph it produced, keyed by the stack name and a hash of the input
// specs, along with any guard violations raised against it. The history
// makes synthesized output diffable across document changes without
// re-running synthesis.
//
// The only implementation is SQLite (modernc.org/sqlite, WAL mode) with
// embedded golang-migrate migrations.
package stores
