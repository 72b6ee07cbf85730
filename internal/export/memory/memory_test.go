package memory

import (
	"context"
	"testing"
	"time"

	"buste/internal/core"
)

func TestStore_AppendEntry(t *testing.T) {
	store := New()
	ctx := context.Background()

	ref, err := store.AppendEntry(ctx, core.FundingHistoryEntry{
		ID:         "entry-1",
		CategoryID: "groceries",
		Amount:     50,
		Date:       time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("AppendEntry() error: %v", err)
	}
	if ref != "mem:1" {
		t.Errorf("row ref = %q, want mem:1", ref)
	}

	ref, err = store.AppendEntry(ctx, core.FundingHistoryEntry{ID: "entry-2", Amount: 25})
	if err != nil {
		t.Fatalf("AppendEntry() error: %v", err)
	}
	if ref != "mem:2" {
		t.Errorf("row ref = %q, want mem:2", ref)
	}

	entries := store.Entries()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].ID != "entry-1" || entries[1].ID != "entry-2" {
		t.Errorf("entries out of order: %s, %s", entries[0].ID, entries[1].ID)
	}
}

func TestStore_AppendEntryWithoutID(t *testing.T) {
	store := New()
	if _, err := store.AppendEntry(context.Background(), core.FundingHistoryEntry{}); err == nil {
		t.Error("AppendEntry() accepted an entry without an id")
	}
}

func TestStore_EntriesReturnsCopy(t *testing.T) {
	store := New()
	_, _ = store.AppendEntry(context.Background(), core.FundingHistoryEntry{ID: "entry-1"})

	entries := store.Entries()
	entries[0].ID = "mutated"

	if store.Entries()[0].ID != "entry-1" {
		t.Error("Entries() exposed internal state")
	}
}
