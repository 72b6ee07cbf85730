// Package export defines the outbound ports for mirroring the
// append-only funding ledger to an external destination.
package export

import (
	"context"

	"buste/internal/core"
)

// LedgerWriter appends funding ledger rows to the mirror destination.
type LedgerWriter interface {
	AppendEntry(ctx context.Context, entry core.FundingHistoryEntry) (rowRef string, err error)
}
