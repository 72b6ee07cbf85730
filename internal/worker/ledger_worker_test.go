package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"buste/internal/amqp"
	"buste/internal/core"
	"buste/internal/export/memory"
)

type fakeLedgerSource struct {
	entries  map[string]core.FundingHistoryEntry
	pending  []core.FundingHistoryEntry
	mirrored []string
}

func (f *fakeLedgerSource) GetFundingEntry(_ context.Context, id string) (core.FundingHistoryEntry, error) {
	entry, ok := f.entries[id]
	if !ok {
		return core.FundingHistoryEntry{}, errors.New("no such entry")
	}
	return entry, nil
}

func (f *fakeLedgerSource) PendingMirrorEntries(_ context.Context, limit int) ([]core.FundingHistoryEntry, error) {
	if limit > len(f.pending) {
		limit = len(f.pending)
	}
	return f.pending[:limit], nil
}

func (f *fakeLedgerSource) MarkMirrored(_ context.Context, id string) error {
	f.mirrored = append(f.mirrored, id)
	return nil
}

func TestLedgerWorker_HandleFundingEvent(t *testing.T) {
	source := &fakeLedgerSource{
		entries: map[string]core.FundingHistoryEntry{
			"entry-1": {ID: "entry-1", CategoryID: "groceries", Amount: 50, Date: time.Now()},
		},
	}
	sink := memory.New()
	w := NewLedgerWorker(source, sink, 10)

	err := w.HandleFundingEvent(context.Background(), amqp.NewFundingEventMessage("entry-1"))
	if err != nil {
		t.Fatalf("HandleFundingEvent() error: %v", err)
	}

	if got := sink.Entries(); len(got) != 1 || got[0].ID != "entry-1" {
		t.Errorf("mirror sink = %+v, want one entry-1", got)
	}
	if len(source.mirrored) != 1 || source.mirrored[0] != "entry-1" {
		t.Errorf("mirrored flags = %v, want [entry-1]", source.mirrored)
	}
}

func TestLedgerWorker_HandleFundingEventUnknownEntry(t *testing.T) {
	source := &fakeLedgerSource{entries: map[string]core.FundingHistoryEntry{}}
	w := NewLedgerWorker(source, memory.New(), 10)

	if err := w.HandleFundingEvent(context.Background(), amqp.NewFundingEventMessage("missing")); err == nil {
		t.Error("HandleFundingEvent() succeeded for unknown entry")
	}
	if len(source.mirrored) != 0 {
		t.Errorf("marked %v mirrored despite failure", source.mirrored)
	}
}

func TestLedgerWorker_SweepPending(t *testing.T) {
	source := &fakeLedgerSource{
		pending: []core.FundingHistoryEntry{
			{ID: "entry-1", Amount: 10},
			{ID: "entry-2", Amount: 20},
			{ID: "entry-3", Amount: 30},
		},
	}
	sink := memory.New()
	w := NewLedgerWorker(source, sink, 2)

	n, err := w.SweepPending(context.Background())
	if err != nil {
		t.Fatalf("SweepPending() error: %v", err)
	}
	if n != 2 {
		t.Errorf("mirrored %d entries, want batch size 2", n)
	}
	if got := len(sink.Entries()); got != 2 {
		t.Errorf("mirror sink has %d entries, want 2", got)
	}
}

type failingWriter struct {
	failOn string
	sink   *memory.Store
}

func (f *failingWriter) AppendEntry(ctx context.Context, entry core.FundingHistoryEntry) (string, error) {
	if entry.ID == f.failOn {
		return "", errors.New("append failed")
	}
	return f.sink.AppendEntry(ctx, entry)
}

func TestLedgerWorker_SweepContinuesPastFailures(t *testing.T) {
	source := &fakeLedgerSource{
		pending: []core.FundingHistoryEntry{
			{ID: "entry-1", Amount: 10},
			{ID: "entry-2", Amount: 20},
			{ID: "entry-3", Amount: 30},
		},
	}
	writer := &failingWriter{failOn: "entry-2", sink: memory.New()}
	w := NewLedgerWorker(source, writer, 10)

	n, err := w.SweepPending(context.Background())
	if err != nil {
		t.Fatalf("SweepPending() error: %v", err)
	}
	if n != 2 {
		t.Errorf("mirrored %d entries, want 2", n)
	}
	if len(source.mirrored) != 2 {
		t.Errorf("marked %d entries mirrored, want 2", len(source.mirrored))
	}
	for _, id := range source.mirrored {
		if id == "entry-2" {
			t.Error("failed entry marked as mirrored")
		}
	}
}
