// Package memory provides an in-memory ledger mirror, used in tests and
// when no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"buste/internal/core"
)

type Store struct {
	mu      sync.Mutex
	entries []core.FundingHistoryEntry
}

func New() *Store {
	return &Store{}
}

// AppendEntry stores the entry and returns a synthetic row reference.
func (s *Store) AppendEntry(_ context.Context, entry core.FundingHistoryEntry) (string, error) {
	if entry.ID == "" {
		return "", fmt.Errorf("funding entry without id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return fmt.Sprintf("mem:%d", len(s.entries)), nil
}

// Entries returns a copy of everything appended so far.
func (s *Store) Entries() []core.FundingHistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.FundingHistoryEntry(nil), s.entries...)
}
