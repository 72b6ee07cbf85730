package core

import (
	"errors"
	"math"
	"strings"
	"time"
)

const (
	Weekly      Frequency = "weekly"
	Biweekly    Frequency = "biweekly"
	Semimonthly Frequency = "semimonthly"
	Monthly     Frequency = "monthly"
)

const (
	ItemExpense ItemType = "expense"
	ItemGoal    ItemType = "goal"
)

const (
	PriorityActive   PriorityState = "active"
	PriorityPaused   PriorityState = "paused"
	PriorityComplete PriorityState = "complete"
)

type (
	// Frequency is a paycheck repetition interval.
	Frequency string

	// ItemType distinguishes the two planning item variants sharing one
	// funding model.
	ItemType string

	// PriorityState is the user-facing funding priority of a planning item.
	PriorityState string

	// Account is externally owned; the engine only reads its balance.
	Account struct {
		ID      string
		Name    string
		Balance float64
	}

	// Category is an envelope. Available must equal Allocated - Spent
	// after reconciliation; only the funding engine and the transaction
	// reconciler mutate the numeric fields.
	Category struct {
		ID        string
		Name      string
		Allocated float64
		Available float64
		Spent     float64
		Overspent bool
	}

	// PlanningItem is a spending or saving intent attached to a category.
	// NeedsAllocation marks items created since the last paycheck
	// allocation pass that have not yet received funds.
	PlanningItem struct {
		ID                  string
		CategoryID          string
		Type                ItemType
		Name                string
		Amount              float64 // expense: per-occurrence amount
		TargetAmount        float64 // goal: total to save
		MonthlyContribution float64 // goal: funding rate per paycheck pass
		Frequency           Frequency
		TargetDate          string // goal deadline, ISO date, optional
		DueDate             string // expense deadline, ISO date, optional
		IsActive            bool
		AllocationPaused    bool
		PriorityState       PriorityState
		Allocated           float64
		NeedsAllocation     bool
		AlreadySaved        float64
	}

	// Transaction is externally owned. Negative amounts are spending;
	// positive amounts with Inflow set are direct-to-category income.
	Transaction struct {
		ID         string
		CategoryID string
		Amount     float64
		Inflow     bool
		Date       time.Time
	}

	// AccountSplit is one leg of a paycheck's account distribution.
	AccountSplit struct {
		AccountID string
		Amount    float64
	}

	// PaycheckReceipt is one received instance of a paycheck.
	PaycheckReceipt struct {
		Date         time.Time
		ActualAmount float64
		Notes        string
	}

	// Paycheck describes a recurring income event. StartDate is kept as
	// the raw ISO string the UI supplied; the schedule generator parses
	// it and falls back to today when it is malformed.
	Paycheck struct {
		ID             string
		Name           string
		Frequency      Frequency
		StartDate      string
		BaseAmount     float64
		VariableAmount float64
		Distribution   []AccountSplit
		History        []PaycheckReceipt
		IsActive       bool
	}

	// FundingHistoryEntry is one row of the append-only funding ledger.
	// PaycheckID is empty for manual allocations.
	FundingHistoryEntry struct {
		ID         string
		CategoryID string
		Amount     float64
		PaycheckID string
		Date       time.Time
		Note       string
	}

	// CategoryTransfer is one row of the append-only inter-category
	// transfer ledger.
	CategoryTransfer struct {
		ID             string
		FromCategoryID string
		ToCategoryID   string
		Amount         float64
		Date           time.Time
		Note           string
	}
)

var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrUnknownCategory      = errors.New("unknown category")
	ErrSameCategory         = errors.New("source and destination are the same category")
	ErrInsufficientFunds    = errors.New("insufficient available funds")
	ErrAllocationPending    = errors.New("category has items awaiting paycheck allocation")
	ErrInvalidFrequency     = errors.New("invalid frequency")
	ErrEmptyName            = errors.New("empty name")
	ErrDistributionMismatch = errors.New("account distribution does not sum to base amount")
	ErrUnknownPaycheck      = errors.New("unknown paycheck")
	ErrUnknownItem          = errors.New("unknown planning item")
)

// IsValid reports whether f is a supported paycheck frequency.
func (f Frequency) IsValid() bool {
	switch f {
	case Weekly, Biweekly, Semimonthly, Monthly:
		return true
	default:
		return false
	}
}

// FundingAmount returns how much the item asks for in one allocation
// pass: the per-occurrence amount for expenses, the monthly contribution
// for goals.
func (p PlanningItem) FundingAmount() float64 {
	if p.Type == ItemGoal {
		return ClampAmount(p.MonthlyContribution)
	}
	return ClampAmount(p.Amount)
}

// Target returns the total the item is saving toward.
func (p PlanningItem) Target() float64 {
	if p.Type == ItemGoal {
		return ClampAmount(p.TargetAmount)
	}
	return ClampAmount(p.Amount)
}

// Deadline returns the item's funding deadline: DueDate for expenses,
// TargetDate for goals. Empty means the item is ongoing.
func (p PlanningItem) Deadline() string {
	if p.Type == ItemGoal {
		return p.TargetDate
	}
	return p.DueDate
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (p Paycheck) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if !p.Frequency.IsValid() {
		return ErrInvalidFrequency
	}
	if ClampAmount(p.BaseAmount) <= 0 {
		return ErrInvalidAmount
	}
	if len(p.Distribution) > 0 {
		var sum float64
		for _, split := range p.Distribution {
			amt := ClampAmount(split.Amount)
			if amt <= 0 || split.AccountID == "" {
				return ErrDistributionMismatch
			}
			sum += amt
		}
		if math.Abs(sum-p.BaseAmount) > AmountTolerance {
			return ErrDistributionMismatch
		}
	}
	return nil
}

func (p PlanningItem) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if p.CategoryID == "" {
		return ErrUnknownCategory
	}
	switch p.Type {
	case ItemExpense:
		if ClampAmount(p.Amount) <= 0 {
			return ErrInvalidAmount
		}
	case ItemGoal:
		if ClampAmount(p.TargetAmount) <= 0 {
			return ErrInvalidAmount
		}
	default:
		return errors.New("invalid planning item type")
	}
	return nil
}
