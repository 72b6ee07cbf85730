package engine

import (
	"time"

	"buste/internal/core"
)

type (
	// FundingResult reports the outcome for one category during an
	// auto-funding pass.
	FundingResult struct {
		CategoryID string
		Requested  float64
		Funded     float64
	}

	// AutoFundResult is the outcome of one auto-funding pass.
	AutoFundResult struct {
		TotalFunded         float64
		FundingResults      []FundingResult
		RemainingToAllocate float64
	}
)

// AutoFund distributes a received lump sum (typically a paycheck) across
// the categories whose active planning items are flagged NeedsAllocation.
// Each category's need is the sum of its items' funding amounts. When the
// sum is insufficient every request is scaled down proportionally, never
// up, so a single deposit can never over-commit beyond what was received.
// Returns an all-zero result when the clamped total is not positive.
func (e *Engine) AutoFund(totalAmount float64, paycheckID string) AutoFundResult {
	total := core.ClampAmount(totalAmount)
	if total <= 0 {
		return AutoFundResult{}
	}

	// Category order follows first appearance in the item list so the
	// pass is deterministic.
	needs := make(map[string]float64)
	var order []string
	for _, id := range e.itemOrder {
		it := e.items[id]
		if !it.NeedsAllocation || !it.IsActive {
			continue
		}
		if _, ok := e.categories[it.CategoryID]; !ok {
			continue
		}
		if _, seen := needs[it.CategoryID]; !seen {
			order = append(order, it.CategoryID)
		}
		needs[it.CategoryID] += it.FundingAmount()
	}

	var totalNeeded float64
	for _, categoryID := range order {
		totalNeeded += needs[categoryID]
	}
	if totalNeeded <= 0 {
		return AutoFundResult{RemainingToAllocate: total}
	}

	scale := 1.0
	if total < totalNeeded {
		scale = total / totalNeeded
	}

	result := AutoFundResult{}
	for _, categoryID := range order {
		requested := needs[categoryID]
		funded := requested * scale
		if funded > requested {
			funded = requested
		}
		funded = core.ClampAmount(funded)
		fr := FundingResult{CategoryID: categoryID, Requested: requested}
		if e.fund(categoryID, funded, paycheckID, time.Time{}, true) {
			fr.Funded = funded
			result.TotalFunded += funded
		}
		result.FundingResults = append(result.FundingResults, fr)
	}
	result.RemainingToAllocate = core.ClampAmount(total - result.TotalFunded)
	return result
}
