package engine

import (
	"testing"
	"time"

	"buste/internal/core"
)

func TestApplyTransaction(t *testing.T) {
	setup := func() *Engine {
		return newTestEngine([]core.Category{
			{ID: "groceries", Allocated: 100, Available: 100},
		}, nil)
	}

	t.Run("spending decrements available", func(t *testing.T) {
		e := setup()
		e.ApplyTransaction(core.Transaction{CategoryID: "groceries", Amount: -50}, nil)
		cat, _ := e.Category("groceries")
		if cat.Available != 50 {
			t.Errorf("available = %v, want 50", cat.Available)
		}
	})

	t.Run("edit in place reverses the old effect first", func(t *testing.T) {
		e := setup()
		old := core.Transaction{ID: "tx-1", CategoryID: "groceries", Amount: -50}
		e.ApplyTransaction(old, nil)

		updated := core.Transaction{ID: "tx-1", CategoryID: "groceries", Amount: -30}
		e.ApplyTransaction(updated, &old)

		cat, _ := e.Category("groceries")
		if cat.Available != 70 {
			t.Errorf("available = %v after edit, want 70", cat.Available)
		}
	})

	t.Run("inflow raises allocated and available", func(t *testing.T) {
		e := setup()
		e.ApplyTransaction(core.Transaction{CategoryID: "groceries", Amount: 25, Inflow: true}, nil)
		cat, _ := e.Category("groceries")
		if cat.Allocated != 125 || cat.Available != 125 {
			t.Errorf("allocated=%v available=%v, want 125 and 125", cat.Allocated, cat.Available)
		}
	})

	t.Run("positive amount without inflow flag is ignored", func(t *testing.T) {
		e := setup()
		e.ApplyTransaction(core.Transaction{CategoryID: "groceries", Amount: 25}, nil)
		cat, _ := e.Category("groceries")
		if cat.Allocated != 100 || cat.Available != 100 {
			t.Errorf("allocated=%v available=%v, want unchanged", cat.Allocated, cat.Available)
		}
	})

	t.Run("no category is a no-op", func(t *testing.T) {
		e := setup()
		e.ApplyTransaction(core.Transaction{Amount: -50}, nil)
		cat, _ := e.Category("groceries")
		if cat.Available != 100 {
			t.Errorf("available = %v, want 100", cat.Available)
		}
	})

	t.Run("overspending flags the envelope", func(t *testing.T) {
		e := setup()
		e.ApplyTransaction(core.Transaction{CategoryID: "groceries", Amount: -150}, nil)
		cat, _ := e.Category("groceries")
		if !cat.Overspent {
			t.Error("Overspent not set after spending past available")
		}
	})
}

func TestRecomputeBalances(t *testing.T) {
	e := newTestEngine([]core.Category{
		{ID: "groceries", Allocated: 100, Available: 100},
		{ID: "dining", Allocated: 40, Available: 40},
	}, nil)

	transactions := []core.Transaction{
		{ID: "tx-1", CategoryID: "groceries", Amount: -30},
		{ID: "tx-2", CategoryID: "groceries", Amount: -20},
		{ID: "tx-3", CategoryID: "dining", Amount: -60},
		{ID: "tx-4", CategoryID: "groceries", Amount: 15, Inflow: true}, // inflows don't count as spending
		{ID: "tx-5", Amount: -99},                                      // uncategorized, ignored
	}

	e.RecomputeBalances(transactions)

	groceries, _ := e.Category("groceries")
	if groceries.Spent != 50 || groceries.Available != 50 || groceries.Overspent {
		t.Errorf("groceries spent=%v available=%v overspent=%v, want 50, 50, false",
			groceries.Spent, groceries.Available, groceries.Overspent)
	}

	dining, _ := e.Category("dining")
	if dining.Spent != 60 || dining.Available != -20 || !dining.Overspent {
		t.Errorf("dining spent=%v available=%v overspent=%v, want 60, -20, true",
			dining.Spent, dining.Available, dining.Overspent)
	}

	// Running the same set again must not change anything.
	e.RecomputeBalances(transactions)
	again, _ := e.Category("groceries")
	if again != groceries {
		t.Errorf("recompute not idempotent: %+v vs %+v", again, groceries)
	}
}

func TestToBeAllocated(t *testing.T) {
	e := newTestEngine([]core.Category{
		{ID: "groceries", Available: 80},
		{ID: "dining", Available: 20},
	}, nil)

	accounts := []core.Account{
		{ID: "checking", Balance: 500},
		{ID: "savings", Balance: 100},
	}

	if got := e.ToBeAllocated(accounts); got != 500 {
		t.Errorf("ToBeAllocated() = %v, want 500", got)
	}
	if got := e.ToBeAllocated(nil); got != -100 {
		t.Errorf("ToBeAllocated(nil) = %v, want -100", got)
	}
}

func TestDrain(t *testing.T) {
	e := newTestEngine([]core.Category{
		{ID: "groceries", Available: 50, Allocated: 50},
		{ID: "dining", Available: 0, Allocated: 0},
	}, nil)

	e.FundCategory("groceries", 10, "", time.Time{})
	e.MoveMoney("groceries", "dining", 5, "")

	entries, transfers := e.Drain()
	if len(entries) != 1 || len(transfers) != 1 {
		t.Fatalf("Drain() = %d entries, %d transfers, want 1 and 1", len(entries), len(transfers))
	}

	// Drained rows are gone; the full ledgers remain readable.
	entries, transfers = e.Drain()
	if len(entries) != 0 || len(transfers) != 0 {
		t.Errorf("second Drain() = %d entries, %d transfers, want none", len(entries), len(transfers))
	}
	if len(e.History()) != 1 || len(e.Transfers()) != 1 {
		t.Errorf("ledgers lost rows after Drain: %d history, %d transfers", len(e.History()), len(e.Transfers()))
	}
}
