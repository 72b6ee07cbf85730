package engine

import (
	"fmt"
	"math"
	"testing"
	"time"

	"buste/internal/core"
)

func newTestEngine(categories []core.Category, items []core.PlanningItem) *Engine {
	e := New(categories, items)
	e.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	n := 0
	e.newID = func() string { n++; return fmt.Sprintf("id-%d", n) }
	return e
}

func TestFundCategory(t *testing.T) {
	tests := []struct {
		name          string
		amount        float64
		paycheckID    string
		wantOK        bool
		wantAllocated float64
		wantAvailable float64
	}{
		{name: "fund envelope", amount: 100, wantOK: true, wantAllocated: 150, wantAvailable: 130},
		{name: "withdraw within available", amount: -20, wantOK: true, wantAllocated: 30, wantAvailable: 10},
		{name: "withdraw everything", amount: -30, wantOK: true, wantAllocated: 20, wantAvailable: 0},
		{name: "withdraw more than available", amount: -31, wantOK: false, wantAllocated: 50, wantAvailable: 30},
		{name: "zero amount", amount: 0, wantOK: false, wantAllocated: 50, wantAvailable: 30},
		{name: "nan amount", amount: math.NaN(), wantOK: false, wantAllocated: 50, wantAvailable: 30},
		{name: "paycheck funding", amount: 100, paycheckID: "pay-1", wantOK: true, wantAllocated: 150, wantAvailable: 130},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine([]core.Category{
				{ID: "groceries", Name: "Groceries", Allocated: 50, Available: 30, Spent: 20},
			}, nil)

			ok := e.FundCategory("groceries", tt.amount, tt.paycheckID, time.Time{})
			if ok != tt.wantOK {
				t.Fatalf("FundCategory() = %v, want %v", ok, tt.wantOK)
			}

			cat, _ := e.Category("groceries")
			if cat.Allocated != tt.wantAllocated || cat.Available != tt.wantAvailable {
				t.Errorf("got allocated=%v available=%v, want allocated=%v available=%v",
					cat.Allocated, cat.Available, tt.wantAllocated, tt.wantAvailable)
			}

			wantEntries := 0
			if tt.wantOK {
				wantEntries = 1
			}
			if got := len(e.History()); got != wantEntries {
				t.Errorf("funding ledger has %d entries, want %d", got, wantEntries)
			}
		})
	}
}

func TestFundCategory_UnknownCategory(t *testing.T) {
	e := newTestEngine(nil, nil)
	if e.FundCategory("missing", 100, "", time.Time{}) {
		t.Error("FundCategory() succeeded for unknown category")
	}
}

func TestFundCategory_ManualFundingGuard(t *testing.T) {
	categories := []core.Category{{ID: "groceries", Name: "Groceries", Allocated: 50, Available: 50}}
	items := []core.PlanningItem{
		{ID: "item-1", CategoryID: "groceries", Type: core.ItemExpense, Name: "Weekly shop", Amount: 80, IsActive: true, NeedsAllocation: true},
		{ID: "item-2", CategoryID: "groceries", Type: core.ItemExpense, Name: "Pet food", Amount: 20, IsActive: true, NeedsAllocation: true},
	}

	t.Run("manual funding blocked while items await allocation", func(t *testing.T) {
		e := newTestEngine(categories, items)
		if e.FundCategory("groceries", 100, "", time.Time{}) {
			t.Fatal("manual funding succeeded with items awaiting allocation")
		}
		cat, _ := e.Category("groceries")
		if cat.Allocated != 50 || cat.Available != 50 {
			t.Errorf("state mutated on rejected funding: allocated=%v available=%v", cat.Allocated, cat.Available)
		}
	})

	t.Run("withdrawal allowed despite pending items", func(t *testing.T) {
		e := newTestEngine(categories, items)
		if !e.FundCategory("groceries", -10, "", time.Time{}) {
			t.Fatal("withdrawal rejected by the allocation guard")
		}
	})

	t.Run("paycheck funding splits across pending items and clears flags", func(t *testing.T) {
		e := newTestEngine(categories, items)
		if !e.FundCategory("groceries", 100, "pay-1", time.Time{}) {
			t.Fatal("paycheck funding rejected")
		}
		for _, id := range []string{"item-1", "item-2"} {
			it, _ := e.Item(id)
			if it.NeedsAllocation {
				t.Errorf("item %s still flagged NeedsAllocation", id)
			}
			if it.Allocated != 50 {
				t.Errorf("item %s allocated = %v, want 50", id, it.Allocated)
			}
		}
	})

	t.Run("manual funding allowed once flags are cleared", func(t *testing.T) {
		e := newTestEngine(categories, items)
		if !e.FundCategory("groceries", 100, "pay-1", time.Time{}) {
			t.Fatal("paycheck funding rejected")
		}
		if !e.FundCategory("groceries", 25, "", time.Time{}) {
			t.Error("manual funding still blocked after allocation pass")
		}
	})
}

func TestMoveMoney(t *testing.T) {
	setup := func() *Engine {
		return newTestEngine([]core.Category{
			{ID: "groceries", Allocated: 100, Available: 80, Spent: 20},
			{ID: "dining", Allocated: 40, Available: 10, Spent: 30},
		}, nil)
	}

	t.Run("moves available and conserves the total", func(t *testing.T) {
		e := setup()
		if !e.MoveMoney("groceries", "dining", 30, "topping up dining") {
			t.Fatal("MoveMoney() failed")
		}
		from, _ := e.Category("groceries")
		to, _ := e.Category("dining")
		if from.Available != 50 {
			t.Errorf("source available = %v, want 50", from.Available)
		}
		if to.Available != 40 || to.Allocated != 70 {
			t.Errorf("destination available=%v allocated=%v, want 40 and 70", to.Available, to.Allocated)
		}
		if total := from.Available + to.Available; total != 90 {
			t.Errorf("total available = %v, want 90", total)
		}
		if got := len(e.Transfers()); got != 1 {
			t.Errorf("transfer ledger has %d rows, want 1", got)
		}
	})

	t.Run("rejections leave both envelopes untouched", func(t *testing.T) {
		tests := []struct {
			name   string
			from   string
			to     string
			amount float64
		}{
			{name: "same category", from: "groceries", to: "groceries", amount: 10},
			{name: "unknown source", from: "missing", to: "dining", amount: 10},
			{name: "unknown destination", from: "groceries", to: "missing", amount: 10},
			{name: "zero amount", from: "groceries", to: "dining", amount: 0},
			{name: "negative amount", from: "groceries", to: "dining", amount: -5},
			{name: "insufficient available", from: "groceries", to: "dining", amount: 81},
			{name: "nan amount", from: "groceries", to: "dining", amount: math.NaN()},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				e := setup()
				if e.MoveMoney(tt.from, tt.to, tt.amount, "") {
					t.Fatal("MoveMoney() succeeded, want rejection")
				}
				from, _ := e.Category("groceries")
				to, _ := e.Category("dining")
				if from.Available != 80 || to.Available != 10 {
					t.Errorf("state mutated on rejection: from=%v to=%v", from.Available, to.Available)
				}
				if got := len(e.Transfers()); got != 0 {
					t.Errorf("transfer ledger has %d rows, want 0", got)
				}
			})
		}
	})
}

func TestMoveMoney_SequentialMovesDrainTheSource(t *testing.T) {
	e := newTestEngine([]core.Category{
		{ID: "cat-1", Available: 50, Allocated: 50},
		{ID: "cat-2"},
		{ID: "cat-3"},
	}, nil)

	if !e.MoveMoney("cat-1", "cat-2", 30, "") {
		t.Fatal("first move failed")
	}
	one, _ := e.Category("cat-1")
	two, _ := e.Category("cat-2")
	if one.Available != 20 || two.Available != 30 || two.Allocated != 30 {
		t.Fatalf("after first move: cat-1=%v cat-2 available=%v allocated=%v",
			one.Available, two.Available, two.Allocated)
	}

	// Only 20 left in the source now.
	if e.MoveMoney("cat-1", "cat-3", 30, "") {
		t.Fatal("second move succeeded past the remaining balance")
	}
	one, _ = e.Category("cat-1")
	three, _ := e.Category("cat-3")
	if one.Available != 20 || three.Available != 0 {
		t.Errorf("state changed on failed move: cat-1=%v cat-3=%v", one.Available, three.Available)
	}
}

func TestTransferFunds(t *testing.T) {
	setup := func() *Engine {
		return newTestEngine([]core.Category{
			{ID: "groceries", Allocated: 100, Available: 80},
			{ID: "dining", Allocated: 40, Available: 10},
		}, nil)
	}

	t.Run("pool to category funds the destination", func(t *testing.T) {
		e := setup()
		if !e.TransferFunds(Unallocated, "dining", 25, "", "") {
			t.Fatal("TransferFunds() failed")
		}
		cat, _ := e.Category("dining")
		if cat.Allocated != 65 || cat.Available != 35 {
			t.Errorf("destination allocated=%v available=%v, want 65 and 35", cat.Allocated, cat.Available)
		}
	})

	t.Run("category to pool withdraws from the source", func(t *testing.T) {
		e := setup()
		if !e.TransferFunds("groceries", Unallocated, 25, "", "") {
			t.Fatal("TransferFunds() failed")
		}
		cat, _ := e.Category("groceries")
		if cat.Allocated != 75 || cat.Available != 55 {
			t.Errorf("source allocated=%v available=%v, want 75 and 55", cat.Allocated, cat.Available)
		}
	})

	t.Run("category to category delegates to MoveMoney", func(t *testing.T) {
		e := setup()
		if !e.TransferFunds("groceries", "dining", 25, "shifting", "") {
			t.Fatal("TransferFunds() failed")
		}
		from, _ := e.Category("groceries")
		to, _ := e.Category("dining")
		if from.Available != 55 || to.Available != 35 {
			t.Errorf("got from=%v to=%v, want 55 and 35", from.Available, to.Available)
		}
	})

	t.Run("invalid endpoints", func(t *testing.T) {
		e := setup()
		if e.TransferFunds("", "dining", 25, "", "") {
			t.Error("empty source accepted")
		}
		if e.TransferFunds("groceries", "", 25, "", "") {
			t.Error("empty destination accepted")
		}
		if e.TransferFunds("groceries", "groceries", 25, "", "") {
			t.Error("same endpoint accepted")
		}
		if e.TransferFunds(Unallocated, Unallocated, 25, "", "") {
			t.Error("pool to pool accepted")
		}
	})
}
