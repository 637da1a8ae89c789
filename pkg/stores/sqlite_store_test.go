package stores

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{Path: filepath.Join(t.TempDir(), "loom.db")})
	if err != nil {
		t.Fatalf("NewSQLiteStore() error: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}
	return store
}

func testSnapshot(id, stack string, createdAt time.Time) *Snapshot {
	return &Snapshot{
		ID:          id,
		Stack:       stack,
		Environment: "nonprod",
		SpecHash:    "abc123",
		Family:      "queue",
		Graph:       `{"family":"queue","nodes":[]}`,
		NodeCount:   2,
		CreatedAt:   createdAt,
	}
}

func TestNewSQLiteStoreRequiresPath(t *testing.T) {
	if _, err := NewSQLiteStore(Config{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestSaveAndGetSnapshot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	grants := `[{"sid":"Allow-queue-service"}]`
	snap := testSnapshot("snap-1", "orders-dev", time.Now())
	snap.Grants = &grants

	if err := store.SaveSnapshot(ctx, snap); err != nil {
		t.Fatalf("SaveSnapshot() error: %v", err)
	}

	got, err := store.GetSnapshot(ctx, "snap-1")
	if err != nil {
		t.Fatalf("GetSnapshot() error: %v", err)
	}
	if got.Stack != "orders-dev" || got.SpecHash != "abc123" || got.NodeCount != 2 {
		t.Errorf("snapshot round-trip mismatch: %+v", got)
	}
	if got.Grants == nil || *got.Grants != grants {
		t.Errorf("grants = %v", got.Grants)
	}
}

func TestGetSnapshotNotFound(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.GetSnapshot(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for missing snapshot")
	}
}

func TestLatestSnapshot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		snap := testSnapshot(fmt.Sprintf("snap-%d", i), "orders-dev", base.Add(time.Duration(i)*time.Minute))
		if err := store.SaveSnapshot(ctx, snap); err != nil {
			t.Fatalf("SaveSnapshot() error: %v", err)
		}
	}

	latest, err := store.LatestSnapshot(ctx, "orders-dev")
	if err != nil {
		t.Fatalf("LatestSnapshot() error: %v", err)
	}
	if latest.ID != "snap-2" {
		t.Errorf("latest = %s, want snap-2", latest.ID)
	}
}

func TestListSnapshotsPagination(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		snap := testSnapshot(fmt.Sprintf("snap-%d", i), "orders-dev", base.Add(time.Duration(i)*time.Minute))
		if err := store.SaveSnapshot(ctx, snap); err != nil {
			t.Fatalf("SaveSnapshot() error: %v", err)
		}
	}
	// A different stack must not leak into the listing.
	if err := store.SaveSnapshot(ctx, testSnapshot("other-1", "payments-dev", base)); err != nil {
		t.Fatalf("SaveSnapshot() error: %v", err)
	}

	page, err := store.ListSnapshots(ctx, "orders-dev", 2, 1)
	if err != nil {
		t.Fatalf("ListSnapshots() error: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(page))
	}
	if page[0].ID != "snap-3" || page[1].ID != "snap-2" {
		t.Errorf("page = %s, %s; want snap-3, snap-2", page[0].ID, page[1].ID)
	}
}

func TestDeleteSnapshotCascadesGuardRecords(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveSnapshot(ctx, testSnapshot("snap-1", "orders-dev", time.Now())); err != nil {
		t.Fatalf("SaveSnapshot() error: %v", err)
	}

	node := "orders"
	record := &GuardRecord{
		SnapshotID: "snap-1",
		Policy:     "prod-lifecycle",
		Severity:   "warning",
		Node:       &node,
		Message:    "destroys data on stack deletion",
		CreatedAt:  time.Now(),
	}
	if err := store.AppendGuardRecord(ctx, record); err != nil {
		t.Fatalf("AppendGuardRecord() error: %v", err)
	}
	if record.ID == 0 {
		t.Error("AppendGuardRecord() should backfill the record ID")
	}

	records, err := store.ListGuardRecords(ctx, "snap-1")
	if err != nil {
		t.Fatalf("ListGuardRecords() error: %v", err)
	}
	if len(records) != 1 || records[0].Policy != "prod-lifecycle" {
		t.Fatalf("records = %+v", records)
	}

	if err := store.DeleteSnapshot(ctx, "snap-1"); err != nil {
		t.Fatalf("DeleteSnapshot() error: %v", err)
	}

	records, err = store.ListGuardRecords(ctx, "snap-1")
	if err != nil {
		t.Fatalf("ListGuardRecords() error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("guard records should cascade on delete, got %+v", records)
	}
}

func TestDeleteSnapshotNotFound(t *testing.T) {
	store := newTestStore(t)
	if err := store.DeleteSnapshot(context.Background(), "missing"); err == nil {
		t.Fatal("expected error deleting a missing snapshot")
	}
}

func TestAppendGuardRecordRequiresSnapshot(t *testing.T) {
	store := newTestStore(t)

	err := store.AppendGuardRecord(context.Background(), &GuardRecord{
		SnapshotID: "ghost",
		Policy:     "managed-by-tag",
		Severity:   "error",
		Message:    "missing tag",
		CreatedAt:  time.Now(),
	})
	if err == nil {
		t.Fatal("expected foreign key violation for unknown snapshot")
	}
}

func TestHealthCheck(t *testing.T) {
	store := newTestStore(t)
	if err := store.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error: %v", err)
	}
}
