package engine

import (
	"math"
	"testing"

	"buste/internal/core"
)

func autoFundFixture() *Engine {
	categories := []core.Category{
		{ID: "housing", Name: "Housing"},
		{ID: "savings", Name: "Savings"},
	}
	items := []core.PlanningItem{
		{ID: "rent", CategoryID: "housing", Type: core.ItemExpense, Name: "Rent", Amount: 200, IsActive: true, NeedsAllocation: true},
		{ID: "vacation", CategoryID: "savings", Type: core.ItemGoal, Name: "Vacation", TargetAmount: 3000, MonthlyContribution: 100, IsActive: true, NeedsAllocation: true},
	}
	return newTestEngine(categories, items)
}

func TestAutoFund_SufficientAmount(t *testing.T) {
	e := autoFundFixture()

	result := e.AutoFund(500, "pay-1")

	if result.TotalFunded != 300 {
		t.Errorf("TotalFunded = %v, want 300", result.TotalFunded)
	}
	if result.RemainingToAllocate != 200 {
		t.Errorf("RemainingToAllocate = %v, want 200", result.RemainingToAllocate)
	}
	if len(result.FundingResults) != 2 {
		t.Fatalf("got %d funding results, want 2", len(result.FundingResults))
	}
	for _, fr := range result.FundingResults {
		if fr.Funded != fr.Requested {
			t.Errorf("category %s funded %v of requested %v", fr.CategoryID, fr.Funded, fr.Requested)
		}
	}

	housing, _ := e.Category("housing")
	savings, _ := e.Category("savings")
	if housing.Available != 200 || savings.Available != 100 {
		t.Errorf("got housing=%v savings=%v, want 200 and 100", housing.Available, savings.Available)
	}
}

func TestAutoFund_ProportionalScaleDown(t *testing.T) {
	e := autoFundFixture()

	// Needs total 300, only 150 received: everything scales by half.
	result := e.AutoFund(150, "pay-1")

	if result.TotalFunded != 150 {
		t.Errorf("TotalFunded = %v, want 150", result.TotalFunded)
	}
	if result.RemainingToAllocate != 0 {
		t.Errorf("RemainingToAllocate = %v, want 0", result.RemainingToAllocate)
	}

	housing, _ := e.Category("housing")
	savings, _ := e.Category("savings")
	if housing.Available != 100 {
		t.Errorf("housing available = %v, want 100", housing.Available)
	}
	if savings.Available != 50 {
		t.Errorf("savings available = %v, want 50", savings.Available)
	}

	// Scaling never exceeds the request.
	for _, fr := range result.FundingResults {
		if fr.Funded > fr.Requested {
			t.Errorf("category %s funded %v above requested %v", fr.CategoryID, fr.Funded, fr.Requested)
		}
	}
}

func TestAutoFund_ClearsNeedsAllocation(t *testing.T) {
	e := autoFundFixture()
	e.AutoFund(150, "pay-1")

	for _, id := range []string{"rent", "vacation"} {
		it, _ := e.Item(id)
		if it.NeedsAllocation {
			t.Errorf("item %s still flagged NeedsAllocation", id)
		}
	}

	// A second pass finds nothing to fund.
	result := e.AutoFund(150, "pay-2")
	if result.TotalFunded != 0 {
		t.Errorf("second pass funded %v, want 0", result.TotalFunded)
	}
	if result.RemainingToAllocate != 150 {
		t.Errorf("second pass remaining = %v, want 150", result.RemainingToAllocate)
	}
}

func TestAutoFund_SkipsInactiveAndSettledItems(t *testing.T) {
	categories := []core.Category{{ID: "housing"}}
	items := []core.PlanningItem{
		{ID: "rent", CategoryID: "housing", Type: core.ItemExpense, Amount: 200, IsActive: false, NeedsAllocation: true},
		{ID: "insurance", CategoryID: "housing", Type: core.ItemExpense, Amount: 100, IsActive: true, NeedsAllocation: false},
	}
	e := newTestEngine(categories, items)

	result := e.AutoFund(500, "pay-1")
	if result.TotalFunded != 0 {
		t.Errorf("TotalFunded = %v, want 0", result.TotalFunded)
	}
	if result.RemainingToAllocate != 500 {
		t.Errorf("RemainingToAllocate = %v, want 500", result.RemainingToAllocate)
	}
}

func TestAutoFund_InvalidAmounts(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
	}{
		{name: "zero", amount: 0},
		{name: "negative", amount: -100},
		{name: "nan", amount: math.NaN()},
		{name: "infinity", amount: math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := autoFundFixture()
			result := e.AutoFund(tt.amount, "pay-1")
			if result.TotalFunded != 0 || len(result.FundingResults) != 0 || result.RemainingToAllocate != 0 {
				t.Errorf("AutoFund(%v) = %+v, want zero result", tt.amount, result)
			}
			it, _ := e.Item("rent")
			if !it.NeedsAllocation {
				t.Error("NeedsAllocation cleared by rejected pass")
			}
		})
	}
}

func TestAutoFund_LedgerRowsPerCategory(t *testing.T) {
	e := autoFundFixture()
	e.AutoFund(300, "pay-1")

	history := e.History()
	if len(history) != 2 {
		t.Fatalf("funding ledger has %d rows, want 2", len(history))
	}
	for _, entry := range history {
		if entry.PaycheckID != "pay-1" {
			t.Errorf("ledger row %s has paycheck %q, want pay-1", entry.ID, entry.PaycheckID)
		}
	}
}
