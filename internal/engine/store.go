// Package engine implements the envelope budgeting ledger: the category
// envelope store, the funding primitives, the paycheck auto-funding
// allocator and the transaction reconciler.
//
// The engine is the single writer for category Allocated/Available/Spent
// and for planning item Allocated/NeedsAllocation. Every mutating
// operation either applies completely or leaves the store untouched.
package engine

import (
	"time"

	"github.com/google/uuid"

	"buste/internal/core"
)

// Engine holds the working set of categories and planning items plus the
// two append-only ledgers. It is not safe for concurrent use; callers
// serialize access (the funding service holds a mutex around it).
type Engine struct {
	categories map[string]*core.Category
	catOrder   []string
	items      map[string]*core.PlanningItem
	itemOrder  []string

	history   []core.FundingHistoryEntry
	transfers []core.CategoryTransfer

	// Ledger rows appended since the last Drain call, for persistence
	// and event fan-out by the service layer.
	pendingHistory   []core.FundingHistoryEntry
	pendingTransfers []core.CategoryTransfer

	now   func() time.Time
	newID func() string
}

// New builds an engine over copies of the given categories and items.
// The engine owns its copies; callers read state back through accessors.
func New(categories []core.Category, items []core.PlanningItem) *Engine {
	e := &Engine{
		categories: make(map[string]*core.Category, len(categories)),
		items:      make(map[string]*core.PlanningItem, len(items)),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, c := range categories {
		c := c
		if _, ok := e.categories[c.ID]; ok {
			continue
		}
		e.categories[c.ID] = &c
		e.catOrder = append(e.catOrder, c.ID)
	}
	for _, it := range items {
		it := it
		if _, ok := e.items[it.ID]; ok {
			continue
		}
		e.items[it.ID] = &it
		e.itemOrder = append(e.itemOrder, it.ID)
	}
	return e
}

// Category returns a copy of one category.
func (e *Engine) Category(id string) (core.Category, bool) {
	c, ok := e.categories[id]
	if !ok {
		return core.Category{}, false
	}
	return *c, true
}

// Categories returns copies of all categories in insertion order.
func (e *Engine) Categories() []core.Category {
	out := make([]core.Category, 0, len(e.catOrder))
	for _, id := range e.catOrder {
		out = append(out, *e.categories[id])
	}
	return out
}

// Item returns a copy of one planning item.
func (e *Engine) Item(id string) (core.PlanningItem, bool) {
	it, ok := e.items[id]
	if !ok {
		return core.PlanningItem{}, false
	}
	return *it, true
}

// Items returns copies of all planning items in insertion order.
func (e *Engine) Items() []core.PlanningItem {
	out := make([]core.PlanningItem, 0, len(e.itemOrder))
	for _, id := range e.itemOrder {
		out = append(out, *e.items[id])
	}
	return out
}

// History returns a copy of the funding ledger.
func (e *Engine) History() []core.FundingHistoryEntry {
	return append([]core.FundingHistoryEntry(nil), e.history...)
}

// Transfers returns a copy of the transfer ledger.
func (e *Engine) Transfers() []core.CategoryTransfer {
	return append([]core.CategoryTransfer(nil), e.transfers...)
}

// Drain hands over the ledger rows appended since the previous Drain.
// The service layer persists and publishes them after each mutation.
func (e *Engine) Drain() ([]core.FundingHistoryEntry, []core.CategoryTransfer) {
	h, t := e.pendingHistory, e.pendingTransfers
	e.pendingHistory, e.pendingTransfers = nil, nil
	return h, t
}

// ToBeAllocated derives the unallocated pool balance: everything held in
// accounts minus everything already sitting in category envelopes. It is
// recomputed on demand, never stored.
func (e *Engine) ToBeAllocated(accounts []core.Account) float64 {
	var balance, available float64
	for _, a := range accounts {
		balance += core.ClampAmount(a.Balance)
	}
	for _, id := range e.catOrder {
		available += e.categories[id].Available
	}
	return core.ClampAmount(balance - available)
}

// RecomputeBalances rebuilds Spent and Available for every category from
// the posted transaction list: Spent is the sum of negative transaction
// amounts referencing the category, Available is Allocated - Spent.
// Idempotent for a fixed transaction set.
func (e *Engine) RecomputeBalances(transactions []core.Transaction) {
	spent := make(map[string]float64, len(e.categories))
	for _, tx := range transactions {
		if tx.CategoryID == "" {
			continue
		}
		amt := core.ClampAmount(tx.Amount)
		if amt < 0 {
			spent[tx.CategoryID] += -amt
		}
	}
	for _, id := range e.catOrder {
		c := e.categories[id]
		c.Spent = core.ClampAmount(spent[id])
		c.Available = core.ClampAmount(c.Allocated - c.Spent)
		c.Overspent = c.Available < -core.AmountTolerance
	}
}

func (e *Engine) appendHistory(categoryID string, amount float64, paycheckID, note string, date time.Time) {
	if date.IsZero() {
		date = e.now()
	}
	entry := core.FundingHistoryEntry{
		ID:         e.newID(),
		CategoryID: categoryID,
		Amount:     amount,
		PaycheckID: paycheckID,
		Date:       date,
		Note:       note,
	}
	e.history = append(e.history, entry)
	e.pendingHistory = append(e.pendingHistory, entry)
}

func (e *Engine) appendTransfer(from, to string, amount float64, note string) {
	transfer := core.CategoryTransfer{
		ID:             e.newID(),
		FromCategoryID: from,
		ToCategoryID:   to,
		Amount:         amount,
		Date:           e.now(),
		Note:           note,
	}
	e.transfers = append(e.transfers, transfer)
	e.pendingTransfers = append(e.pendingTransfers, transfer)
}

// needsAllocationItems returns the category's active items still waiting
// for a paycheck allocation pass.
func (e *Engine) needsAllocationItems(categoryID string) []*core.PlanningItem {
	var out []*core.PlanningItem
	for _, id := range e.itemOrder {
		it := e.items[id]
		if it.CategoryID == categoryID && it.NeedsAllocation && it.IsActive {
			out = append(out, it)
		}
	}
	return out
}
