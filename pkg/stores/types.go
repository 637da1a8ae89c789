package stores

import (
	"context"
	"database/sql"
	"time"
)

// Snapshot is one recorded synthesis: the graph a stack document produced,
// keyed by a hash of the specs it was synthesized from. Because synthesis is
// deterministic, two snapshots of the same stack with the same spec hash
// carry the same graph.
type Snapshot struct {
	ID          string    `json:"id"`
	Stack       string    `json:"stack"`
	Environment string    `json:"environment"`
	SpecHash    string    `json:"spec_hash"`
	Family      string    `json:"family"`
	Graph       string    `json:"graph"`            // JSON
	Grants      *string   `json:"grants,omitempty"` // JSON
	NodeCount   int       `json:"node_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// GuardRecord is one guard violation recorded against a snapshot.
type GuardRecord struct {
	ID         int64     `json:"id"`
	SnapshotID string    `json:"snapshot_id"`
	Policy     string    `json:"policy"`
	Severity   string    `json:"severity"`
	Node       *string   `json:"node,omitempty"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store defines the interface for the snapshot persistence layer.
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Transaction support
	BeginTx(ctx context.Context) (*sql.Tx, error)

	// Snapshot operations
	SaveSnapshot(ctx context.Context, snap *Snapshot) error
	GetSnapshot(ctx context.Context, id string) (*Snapshot, error)
	LatestSnapshot(ctx context.Context, stack string) (*Snapshot, error)
	ListSnapshots(ctx context.Context, stack string, limit, offset int) ([]*Snapshot, error)
	DeleteSnapshot(ctx context.Context, id string) error

	// Guard record operations
	AppendGuardRecord(ctx context.Context, record *GuardRecord) error
	ListGuardRecords(ctx context.Context, snapshotID string) ([]*GuardRecord, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
