// Package services orchestrates the budgeting engine against the
// repository and the AMQP event stream. The FundingService is the single
// entry point the HTTP layer calls; it serializes every mutation.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"buste/internal/core"
	"buste/internal/engine"
	"buste/internal/schedule"
)

// payDateHorizon bounds how many future pay dates a timeline projection
// considers. Generous enough for any realistic deadline at weekly pay.
const payDateHorizon = 120

// Store is the slice of the repository the service needs.
type Store interface {
	ListCategories(ctx context.Context) ([]core.Category, error)
	ListPlanningItems(ctx context.Context) ([]core.PlanningItem, error)
	SaveBalances(ctx context.Context, categories []core.Category, items []core.PlanningItem) error
	AppendFundingEntries(ctx context.Context, entries []core.FundingHistoryEntry) error
	AppendTransfers(ctx context.Context, transfers []core.CategoryTransfer) error
	ListFundingHistory(ctx context.Context, limit int) ([]core.FundingHistoryEntry, error)
	ListTransfers(ctx context.Context, limit int) ([]core.CategoryTransfer, error)
	ListAccounts(ctx context.Context) ([]core.Account, error)
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
	UpsertTransaction(ctx context.Context, tx core.Transaction) error
	GetPaycheck(ctx context.Context, id string) (core.Paycheck, error)
	AppendPaycheckReceipt(ctx context.Context, paycheckID string, receipt core.PaycheckReceipt) error
	GetMonthlyBudget(ctx context.Context) (map[string]float64, error)
	SetMonthlyBudget(ctx context.Context, budget map[string]float64) error
}

// EventPublisher fans funding ledger events out to the mirror worker.
type EventPublisher interface {
	PublishFundingEvent(ctx context.Context, entryID string) error
}

// FundingService owns the live engine state. All mutations funnel
// through it under one mutex; two mutations never interleave.
type FundingService struct {
	mu     sync.Mutex
	store  Store
	events EventPublisher // nil when AMQP is not configured
	eng    *engine.Engine
	now    func() time.Time

	// onMutate is invoked after every successful mutation, for read-side
	// cache invalidation in the HTTP layer.
	onMutate func()
}

// NewFundingService loads the working set from the store and builds the
// engine over it.
func NewFundingService(ctx context.Context, store Store, events EventPublisher) (*FundingService, error) {
	categories, err := store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	items, err := store.ListPlanningItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("load planning items: %w", err)
	}
	return &FundingService{
		store:  store,
		events: events,
		eng:    engine.New(categories, items),
		now:    time.Now,
	}, nil
}

// OnMutate registers a callback fired after each successful mutation.
func (s *FundingService) OnMutate(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onMutate = fn
}

// FundCategory funds or withdraws from one category envelope. The bool
// mirrors the engine's success flag; the error reports persistence
// problems only.
func (s *FundingService) FundCategory(ctx context.Context, categoryID string, amount float64, paycheckID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.eng.FundCategory(categoryID, amount, paycheckID, s.now()) {
		return false, nil
	}
	if err := s.persist(ctx); err != nil {
		return true, err
	}
	slog.InfoContext(ctx, "Category funded",
		"category_id", categoryID,
		"amount", amount,
		"paycheck_id", paycheckID)
	return true, nil
}

// MoveMoney moves available funds between two envelopes.
func (s *FundingService) MoveMoney(ctx context.Context, fromID, toID string, amount float64, note string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.eng.MoveMoney(fromID, toID, amount, note) {
		return false, nil
	}
	if err := s.persist(ctx); err != nil {
		return true, err
	}
	slog.InfoContext(ctx, "Money moved",
		"from_category_id", fromID,
		"to_category_id", toID,
		"amount", amount)
	return true, nil
}

// TransferFunds is the unified transfer where either endpoint may be the
// unallocated pool sentinel.
func (s *FundingService) TransferFunds(ctx context.Context, source, destination string, amount float64, note, paycheckID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.eng.TransferFunds(source, destination, amount, note, paycheckID) {
		return false, nil
	}
	if err := s.persist(ctx); err != nil {
		return true, err
	}
	slog.InfoContext(ctx, "Funds transferred",
		"source", source,
		"destination", destination,
		"amount", amount)
	return true, nil
}

// AutoFund distributes a lump sum across the categories awaiting
// allocation.
func (s *FundingService) AutoFund(ctx context.Context, totalAmount float64, paycheckID string) (engine.AutoFundResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := s.eng.AutoFund(totalAmount, paycheckID)
	if result.TotalFunded == 0 && len(result.FundingResults) == 0 {
		return result, nil
	}
	if err := s.persist(ctx); err != nil {
		return result, err
	}
	slog.InfoContext(ctx, "Auto-funding pass completed",
		"total_amount", totalAmount,
		"total_funded", result.TotalFunded,
		"remaining", result.RemainingToAllocate,
		"categories", len(result.FundingResults))
	return result, nil
}

// ReceivePaycheck records a received paycheck instance and runs the
// auto-funding pass with the received amount. A non-positive actual
// amount falls back to the paycheck's base plus variable amount.
func (s *FundingService) ReceivePaycheck(ctx context.Context, paycheckID string, actualAmount float64, notes string) (engine.AutoFundResult, error) {
	paycheck, err := s.store.GetPaycheck(ctx, paycheckID)
	if err != nil {
		return engine.AutoFundResult{}, err
	}

	amount := core.ClampAmount(actualAmount)
	if amount <= 0 {
		amount = core.ClampAmount(paycheck.BaseAmount + paycheck.VariableAmount)
	}

	receipt := core.PaycheckReceipt{Date: s.now(), ActualAmount: amount, Notes: notes}
	if err := s.store.AppendPaycheckReceipt(ctx, paycheckID, receipt); err != nil {
		return engine.AutoFundResult{}, err
	}
	return s.AutoFund(ctx, amount, paycheckID)
}

// ApplyTransaction reconciles one posted transaction against its
// category, reversing old first when updating in place, and stores the
// transaction snapshot for later recomputes.
func (s *FundingService) ApplyTransaction(ctx context.Context, tx core.Transaction, old *core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.eng.ApplyTransaction(tx, old)
	if tx.ID != "" {
		if err := s.store.UpsertTransaction(ctx, tx); err != nil {
			return err
		}
	}
	return s.persist(ctx)
}

// RecomputeBalances rebuilds every category's spent/available from the
// stored transaction snapshot.
func (s *FundingService) RecomputeBalances(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	transactions, err := s.store.ListTransactions(ctx)
	if err != nil {
		return err
	}
	s.eng.RecomputeBalances(transactions)
	return s.persist(ctx)
}

// ToBeAllocated derives the unallocated pool from account balances.
func (s *FundingService) ToBeAllocated(ctx context.Context) (float64, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.ToBeAllocated(accounts), nil
}

// Categories returns the engine's current category state.
func (s *FundingService) Categories() []core.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.Categories()
}

// Items returns the engine's current planning item state.
func (s *FundingService) Items() []core.PlanningItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.Items()
}

// Timeline projects one planning item against its paycheck's schedule.
// perPaycheck <= 0 defaults to the item's own funding amount.
func (s *FundingService) Timeline(ctx context.Context, itemID, paycheckID string, perPaycheck float64) (schedule.Timeline, error) {
	s.mu.Lock()
	item, ok := s.eng.Item(itemID)
	s.mu.Unlock()
	if !ok {
		return schedule.Timeline{}, core.ErrUnknownItem
	}

	var payDates []time.Time
	if paycheckID != "" {
		paycheck, err := s.store.GetPaycheck(ctx, paycheckID)
		if err != nil {
			return schedule.Timeline{}, err
		}
		payDates = schedule.PaycheckDates(paycheck, payDateHorizon, s.now())
	}

	if core.ClampAmount(perPaycheck) <= 0 {
		perPaycheck = item.FundingAmount()
	}
	return schedule.CalculateFundingTimeline(item, payDates, perPaycheck), nil
}

// PaycheckDates returns the next count pay dates for a paycheck.
func (s *FundingService) PaycheckDates(ctx context.Context, paycheckID string, count int) ([]time.Time, error) {
	paycheck, err := s.store.GetPaycheck(ctx, paycheckID)
	if err != nil {
		return nil, err
	}
	return schedule.PaycheckDates(paycheck, count, s.now()), nil
}

// FundingHistory lists the most recent funding ledger rows.
func (s *FundingService) FundingHistory(ctx context.Context, limit int) ([]core.FundingHistoryEntry, error) {
	return s.store.ListFundingHistory(ctx, limit)
}

// TransferHistory lists the most recent transfer ledger rows.
func (s *FundingService) TransferHistory(ctx context.Context, limit int) ([]core.CategoryTransfer, error) {
	return s.store.ListTransfers(ctx, limit)
}

// MonthlyBudget reads the planned monthly amount map.
func (s *FundingService) MonthlyBudget(ctx context.Context) (map[string]float64, error) {
	return s.store.GetMonthlyBudget(ctx)
}

// SetMonthlyBudget replaces the planned monthly amount map.
func (s *FundingService) SetMonthlyBudget(ctx context.Context, budget map[string]float64) error {
	return s.store.SetMonthlyBudget(ctx, budget)
}

// persist writes the engine's dirty state and new ledger rows, then
// publishes funding events best-effort. Callers hold the mutex.
func (s *FundingService) persist(ctx context.Context) error {
	entries, transfers := s.eng.Drain()

	if err := s.store.AppendFundingEntries(ctx, entries); err != nil {
		return fmt.Errorf("persist funding entries: %w", err)
	}
	if err := s.store.AppendTransfers(ctx, transfers); err != nil {
		return fmt.Errorf("persist transfers: %w", err)
	}
	if err := s.store.SaveBalances(ctx, s.eng.Categories(), s.eng.Items()); err != nil {
		return fmt.Errorf("persist balances: %w", err)
	}

	if s.events != nil {
		for _, entry := range entries {
			if err := s.events.PublishFundingEvent(ctx, entry.ID); err != nil {
				// The sweep worker picks the row up later.
				slog.ErrorContext(ctx, "Failed to publish funding event",
					"entry_id", entry.ID, "error", err)
			}
		}
	}
	if s.onMutate != nil {
		s.onMutate()
	}
	return nil
}
