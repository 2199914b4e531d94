package database

import (
	"context"
	"testing"
	"time"

	"github.com/swarmruntime/core/pkg/provider"
)

func newTestSpendStore(t *testing.T) *SpendStore {
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
	return NewSpendStore(client)
}

func TestSpendStore_AppendAndTotals(t *testing.T) {
	store := newTestSpendStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := store.Append(ctx, provider.SpendRecord{
		ProviderID: "openai", AgentID: "agent-1", Model: "gpt", CostUSD: 1.5, Tokens: 100, At: now,
	}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.Append(ctx, provider.SpendRecord{
		ProviderID: "openai", AgentID: "agent-2", Model: "gpt", CostUSD: 2.5, Tokens: 200, At: now,
	}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	total, err := store.TotalByProvider(ctx, "openai")
	if err != nil {
		t.Fatalf("TotalByProvider: %v", err)
	}
	if total != 4.0 {
		t.Fatalf("TotalByProvider = %v, want 4.0", total)
	}

	byAgent, err := store.TotalByAgent(ctx, "agent-1")
	if err != nil {
		t.Fatalf("TotalByAgent: %v", err)
	}
	if byAgent != 1.5 {
		t.Fatalf("TotalByAgent = %v, want 1.5", byAgent)
	}
}

func TestSpendStore_TotalByProvider_NoRecordsIsZero(t *testing.T) {
	store := newTestSpendStore(t)
	total, err := store.TotalByProvider(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("TotalByProvider: %v", err)
	}
	if total != 0 {
		t.Fatalf("TotalByProvider = %v, want 0", total)
	}
}

func TestSpendStore_AppendMany(t *testing.T) {
	store := newTestSpendStore(t)
	ctx := context.Background()
	now := time.Now()

	recs := []provider.SpendRecord{
		{ProviderID: "a", AgentID: "x", Model: "m", CostUSD: 1, Tokens: 10, At: now},
		{ProviderID: "a", AgentID: "x", Model: "m", CostUSD: 2, Tokens: 20, At: now},
	}
	if err := store.AppendMany(ctx, recs); err != nil {
		t.Fatalf("AppendMany: %v", err)
	}

	total, err := store.TotalByProvider(ctx, "a")
	if err != nil {
		t.Fatalf("TotalByProvider: %v", err)
	}
	if total != 3 {
		t.Fatalf("TotalByProvider = %v, want 3", total)
	}
}

func TestSpendStore_DeleteBefore(t *testing.T) {
	store := newTestSpendStore(t)
	ctx := context.Background()
	past := time.Now().Add(-48 * time.Hour)
	recent := time.Now()

	if err := store.Append(ctx, provider.SpendRecord{ProviderID: "a", AgentID: "x", Model: "m", CostUSD: 1, Tokens: 1, At: past}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.Append(ctx, provider.SpendRecord{ProviderID: "a", AgentID: "x", Model: "m", CostUSD: 2, Tokens: 1, At: recent}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	cutoff := time.Now().Add(-24 * time.Hour).Format(timeLayout)
	n, err := store.DeleteBefore(ctx, cutoff)
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if n != 1 {
		t.Fatalf("DeleteBefore removed %d rows, want 1", n)
	}

	total, err := store.TotalByProvider(ctx, "a")
	if err != nil {
		t.Fatalf("TotalByProvider: %v", err)
	}
	if total != 2 {
		t.Fatalf("TotalByProvider after DeleteBefore = %v, want 2", total)
	}
}
