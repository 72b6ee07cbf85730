package engine

import (
	"time"

	"buste/internal/core"
)

// Unallocated is the sentinel endpoint for TransferFunds that stands for
// the unallocated pool instead of a category id.
const Unallocated = "unallocated"

// FundCategory moves money between the unallocated pool and one category.
// Positive amounts fund the envelope, negative amounts withdraw from it.
// Returns false with no mutation when the clamped amount is zero, the
// category is unknown, a withdrawal exceeds the available balance, or a
// manual allocation (no paycheckID) targets a category whose items still
// await the guided paycheck pass.
//
// On success Allocated and Available both move by amount and a funding
// ledger row is appended. Paycheck-driven positive funding is also split
// evenly across the category's items flagged NeedsAllocation, clearing
// the flag.
func (e *Engine) FundCategory(categoryID string, amount float64, paycheckID string, date time.Time) bool {
	return e.fund(categoryID, amount, paycheckID, date, paycheckID != "")
}

// fund is the funding primitive. guided marks calls coming from the
// paycheck allocation workflow: those bypass the manual-funding guard
// and split positive amounts across the items awaiting allocation.
func (e *Engine) fund(categoryID string, amount float64, paycheckID string, date time.Time, guided bool) bool {
	amt := core.ClampAmount(amount)
	if amt == 0 {
		return false
	}
	cat, ok := e.categories[categoryID]
	if !ok {
		return false
	}
	if amt < 0 && cat.Available < -amt {
		return false
	}
	pending := e.needsAllocationItems(categoryID)
	// Manual funding must not short-circuit the guided per-item
	// allocation workflow; withdrawals and guided funding may proceed.
	if amt > 0 && !guided && len(pending) > 0 {
		return false
	}

	cat.Allocated = core.ClampAmount(cat.Allocated + amt)
	cat.Available = core.ClampAmount(cat.Available + amt)
	cat.Overspent = cat.Available < -core.AmountTolerance
	e.appendHistory(categoryID, amt, paycheckID, "", date)

	if amt > 0 && guided && len(pending) > 0 {
		share := amt / float64(len(pending))
		for _, it := range pending {
			it.Allocated = core.ClampAmount(it.Allocated + share)
			it.NeedsAllocation = false
		}
	}
	return true
}

// MoveMoney shifts available funds from one category envelope to another.
// Returns false with no mutation when either id is unknown, the ids are
// equal, the clamped amount is not positive, or the source does not have
// the full amount available. On success the total available across the
// two envelopes is conserved and a transfer ledger row is appended.
func (e *Engine) MoveMoney(fromID, toID string, amount float64, note string) bool {
	if fromID == toID {
		return false
	}
	from, ok := e.categories[fromID]
	if !ok {
		return false
	}
	to, ok := e.categories[toID]
	if !ok {
		return false
	}
	amt := core.ClampAmount(amount)
	if amt <= 0 {
		return false
	}
	if from.Available < amt {
		return false
	}

	from.Available = core.ClampAmount(from.Available - amt)
	from.Overspent = from.Available < -core.AmountTolerance
	to.Allocated = core.ClampAmount(to.Allocated + amt)
	to.Available = core.ClampAmount(to.Available + amt)
	to.Overspent = to.Available < -core.AmountTolerance
	e.appendTransfer(fromID, toID, amt, note)
	return true
}

// TransferFunds is the unified move operation the UI calls. Either
// endpoint may be the Unallocated sentinel:
//
//	pool -> category  funds the destination
//	category -> pool  withdraws from the source
//	category -> category delegates to MoveMoney
func (e *Engine) TransferFunds(source, destination string, amount float64, note, paycheckID string) bool {
	if source == "" || destination == "" || source == destination {
		return false
	}
	switch {
	case source == Unallocated:
		return e.FundCategory(destination, core.ClampAmount(amount), paycheckID, time.Time{})
	case destination == Unallocated:
		return e.FundCategory(source, -core.ClampAmount(amount), paycheckID, time.Time{})
	default:
		return e.MoveMoney(source, destination, amount, note)
	}
}
