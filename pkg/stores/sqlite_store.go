package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Config holds SQLite store configuration.
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance.
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	return &SQLiteStore{path: cfg.Path}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Foreign keys are a connection-level setting.
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// BeginTx starts a new transaction.
func (s *SQLiteStore) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
}

// SaveSnapshot records one synthesis.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	query := `
		INSERT INTO snapshots (id, stack, environment, spec_hash, family, graph, grants, node_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		snap.ID,
		snap.Stack,
		snap.Environment,
		snap.SpecHash,
		snap.Family,
		snap.Graph,
		snap.Grants,
		snap.NodeCount,
		snap.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	return nil
}

// GetSnapshot retrieves a snapshot by ID.
func (s *SQLiteStore) GetSnapshot(ctx context.Context, id string) (*Snapshot, error) {
	query := `
		SELECT id, stack, environment, spec_hash, family, graph, grants, node_count, created_at
		FROM snapshots
		WHERE id = ?
	`
	return s.scanSnapshot(s.db.QueryRowContext(ctx, query, id), id)
}

// LatestSnapshot retrieves the most recent snapshot for a stack.
func (s *SQLiteStore) LatestSnapshot(ctx context.Context, stack string) (*Snapshot, error) {
	query := `
		SELECT id, stack, environment, spec_hash, family, graph, grants, node_count, created_at
		FROM snapshots
		WHERE stack = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	return s.scanSnapshot(s.db.QueryRowContext(ctx, query, stack), stack)
}

func (s *SQLiteStore) scanSnapshot(row *sql.Row, key string) (*Snapshot, error) {
	snap := &Snapshot{}
	err := row.Scan(
		&snap.ID,
		&snap.Stack,
		&snap.Environment,
		&snap.SpecHash,
		&snap.Family,
		&snap.Graph,
		&snap.Grants,
		&snap.NodeCount,
		&snap.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("snapshot not found: %s", key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return snap, nil
}

// ListSnapshots lists snapshots for a stack with pagination, newest first.
func (s *SQLiteStore) ListSnapshots(ctx context.Context, stack string, limit, offset int) ([]*Snapshot, error) {
	query := `
		SELECT id, stack, environment, spec_hash, family, graph, grants, node_count, created_at
		FROM snapshots
		WHERE stack = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, stack, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	snaps := []*Snapshot{}
	for rows.Next() {
		snap := &Snapshot{}
		err := rows.Scan(
			&snap.ID,
			&snap.Stack,
			&snap.Environment,
			&snap.SpecHash,
			&snap.Family,
			&snap.Graph,
			&snap.Grants,
			&snap.NodeCount,
			&snap.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return snaps, nil
}

// DeleteSnapshot deletes a snapshot by ID. Its guard records cascade.
func (s *SQLiteStore) DeleteSnapshot(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("snapshot not found: %s", id)
	}

	return nil
}

// AppendGuardRecord appends a guard violation record for a snapshot.
func (s *SQLiteStore) AppendGuardRecord(ctx context.Context, record *GuardRecord) error {
	query := `
		INSERT INTO guard_records (snapshot_id, policy, severity, node, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		record.SnapshotID,
		record.Policy,
		record.Severity,
		record.Node,
		record.Message,
		record.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to append guard record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get guard record ID: %w", err)
	}
	record.ID = id
	return nil
}

// ListGuardRecords lists the guard records for a snapshot in insert order.
func (s *SQLiteStore) ListGuardRecords(ctx context.Context, snapshotID string) ([]*GuardRecord, error) {
	query := `
		SELECT id, snapshot_id, policy, severity, node, message, created_at
		FROM guard_records
		WHERE snapshot_id = ?
		ORDER BY id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to list guard records: %w", err)
	}
	defer rows.Close()

	records := []*GuardRecord{}
	for rows.Next() {
		record := &GuardRecord{}
		err := rows.Scan(
			&record.ID,
			&record.SnapshotID,
			&record.Policy,
			&record.Severity,
			&record.Node,
			&record.Message,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan guard record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating guard records: %w", err)
	}

	return records, nil
}

// HealthCheck verifies the database connection is healthy.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return s.db.PingContext(ctx)
}
