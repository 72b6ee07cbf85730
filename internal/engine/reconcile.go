package engine

import "buste/internal/core"

// ApplyTransaction applies a posted transaction's effect on its
// category's available balance. For an edit-in-place update callers must
// pass the previous transaction state as old so its effect is reversed
// before the new one is applied; skipping the reversal makes balances
// drift. Transactions without a category, or whose clamped amount is
// zero, are no-ops.
//
// Negative amounts are spending and decrement Available; positive
// amounts flagged as inflow raise both Allocated and Available.
func (e *Engine) ApplyTransaction(tx core.Transaction, old *core.Transaction) {
	if old != nil && old.CategoryID != "" {
		oldAmt := core.ClampAmount(old.Amount)
		if oldAmt < 0 {
			if cat, ok := e.categories[old.CategoryID]; ok {
				cat.Available = core.ClampAmount(cat.Available - oldAmt)
				cat.Overspent = cat.Available < -core.AmountTolerance
			}
		}
	}

	if tx.CategoryID == "" {
		return
	}
	amt := core.ClampAmount(tx.Amount)
	if amt == 0 {
		return
	}
	cat, ok := e.categories[tx.CategoryID]
	if !ok {
		return
	}
	switch {
	case amt < 0:
		cat.Available = core.ClampAmount(cat.Available + amt)
		cat.Overspent = cat.Available < -core.AmountTolerance
	case tx.Inflow:
		cat.Allocated = core.ClampAmount(cat.Allocated + amt)
		cat.Available = core.ClampAmount(cat.Available + amt)
		cat.Overspent = cat.Available < -core.AmountTolerance
	}
}
