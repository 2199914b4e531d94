package database

import (
	"context"
	"testing"
	"time"

	"github.com/swarmruntime/core/pkg/errs"
	"github.com/swarmruntime/core/pkg/events"
)

func newTestConsensusStore(t *testing.T) *ConsensusStore {
	t.Helper()
	client, err := NewClient(context.Background(), Config{
		Driver:          DriverSQLite,
		Path:            "file::memory:?cache=shared",
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return NewConsensusStore(client)
}

func TestConsensusStore_RecordAndFindByID(t *testing.T) {
	store := newTestConsensusStore(t)
	ctx := context.Background()

	p := events.ConsensusOutcomePayload{
		DecisionID:      "d1",
		Kind:            "majority",
		Consensus:       true,
		ApprovalRate:    0.8,
		ConfidenceScore: 0.9,
		Timestamp:       time.Now().Format(time.RFC3339Nano),
	}
	if err := store.Record(ctx, p); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, err := store.FindByID(ctx, "d1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Kind != "majority" || !got.Consensus || got.ApprovalRate != 0.8 {
		t.Fatalf("FindByID = %+v", got)
	}
}

func TestConsensusStore_FindByID_NotFound(t *testing.T) {
	store := newTestConsensusStore(t)
	_, err := store.FindByID(context.Background(), "missing")
	if kind, ok := errs.KindOf(err); !ok || kind != errs.KindNotFound {
		t.Fatalf("err = %v, want KindNotFound", err)
	}
}

func TestConsensusStore_Record_UpsertsOnConflict(t *testing.T) {
	store := newTestConsensusStore(t)
	ctx := context.Background()

	p := events.ConsensusOutcomePayload{DecisionID: "d1", Kind: "majority", Consensus: false, Timestamp: time.Now().Format(time.RFC3339Nano)}
	if err := store.Record(ctx, p); err != nil {
		t.Fatalf("Record: %v", err)
	}
	p.Consensus = true
	p.Kind = "supermajority"
	if err := store.Record(ctx, p); err != nil {
		t.Fatalf("Record (update): %v", err)
	}

	got, err := store.FindByID(ctx, "d1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Kind != "supermajority" || !got.Consensus {
		t.Fatalf("FindByID after update = %+v", got)
	}
}

func TestConsensusStore_DeleteBefore(t *testing.T) {
	store := newTestConsensusStore(t)
	ctx := context.Background()

	old := events.ConsensusOutcomePayload{
		DecisionID: "old", Kind: "majority",
		Timestamp: time.Now().Add(-48 * time.Hour).Format(time.RFC3339Nano),
	}
	recent := events.ConsensusOutcomePayload{
		DecisionID: "recent", Kind: "majority",
		Timestamp: time.Now().Format(time.RFC3339Nano),
	}
	if err := store.Record(ctx, old); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := store.Record(ctx, recent); err != nil {
		t.Fatalf("Record: %v", err)
	}

	cutoff := time.Now().Add(-24 * time.Hour).Format(time.RFC3339Nano)
	n, err := store.DeleteBefore(ctx, cutoff)
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if n != 1 {
		t.Fatalf("DeleteBefore removed %d rows, want 1", n)
	}

	if _, err := store.FindByID(ctx, "old"); err == nil {
		t.Fatal("expected old decision to be deleted")
	}
	if _, err := store.FindByID(ctx, "recent"); err != nil {
		t.Fatalf("FindByID(recent): %v", err)
	}
}
