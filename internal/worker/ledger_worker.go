// Package worker mirrors the local funding ledger to the configured
// export destination, driven by AMQP events with a periodic sweep for
// rows whose event was lost.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"buste/internal/amqp"
	"buste/internal/core"
	"buste/internal/export"
)

// LedgerSource is the slice of the repository the worker reads.
type LedgerSource interface {
	GetFundingEntry(ctx context.Context, id string) (core.FundingHistoryEntry, error)
	PendingMirrorEntries(ctx context.Context, limit int) ([]core.FundingHistoryEntry, error)
	MarkMirrored(ctx context.Context, id string) error
}

// LedgerWorker mirrors funding ledger rows to an export destination.
type LedgerWorker struct {
	source    LedgerSource
	writer    export.LedgerWriter
	batchSize int
}

func NewLedgerWorker(source LedgerSource, writer export.LedgerWriter, batchSize int) *LedgerWorker {
	return &LedgerWorker{
		source:    source,
		writer:    writer,
		batchSize: batchSize,
	}
}

// HandleFundingEvent processes a single funding event from AMQP: fetch
// the full row locally, append it to the mirror, mark it done.
func (w *LedgerWorker) HandleFundingEvent(ctx context.Context, msg *amqp.FundingEventMessage) error {
	entry, err := w.source.GetFundingEntry(ctx, msg.EntryID)
	if err != nil {
		return fmt.Errorf("get funding entry: %w", err)
	}

	if err := w.mirror(ctx, entry); err != nil {
		return err
	}
	return nil
}

// SweepPending mirrors rows whose AMQP event never arrived. Returns the
// number of rows mirrored.
func (w *LedgerWorker) SweepPending(ctx context.Context) (int, error) {
	entries, err := w.source.PendingMirrorEntries(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending entries: %w", err)
	}

	mirrored := 0
	for _, entry := range entries {
		if err := w.mirror(ctx, entry); err != nil {
			// Keep going; the row stays pending for the next sweep.
			slog.ErrorContext(ctx, "Failed to mirror funding entry",
				"entry_id", entry.ID, "error", err)
			continue
		}
		mirrored++
	}
	return mirrored, nil
}

// RunSweep runs SweepPending on a fixed interval until ctx ends.
func (w *LedgerWorker) RunSweep(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := w.SweepPending(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "Pending sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.InfoContext(ctx, "Pending sweep mirrored entries", "count", n)
			}
		}
	}
}

func (w *LedgerWorker) mirror(ctx context.Context, entry core.FundingHistoryEntry) error {
	rowRef, err := w.writer.AppendEntry(ctx, entry)
	if err != nil {
		return fmt.Errorf("append to mirror: %w", err)
	}
	if err := w.source.MarkMirrored(ctx, entry.ID); err != nil {
		return fmt.Errorf("mark mirrored: %w", err)
	}
	slog.InfoContext(ctx, "Mirrored funding entry",
		"entry_id", entry.ID,
		"sheets_ref", rowRef)
	return nil
}
