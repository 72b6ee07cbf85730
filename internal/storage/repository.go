package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"buste/internal/core"

	_ "modernc.org/sqlite"
)

// Repository is the SQLite-backed store for the budgeting state: the
// engine-owned categories/items/paychecks, the two append-only ledgers,
// the monthly budget map, and snapshots of externally owned accounts and
// transactions.
type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- categories ---

func (r *Repository) UpsertCategory(ctx context.Context, c core.Category) error {
	if err := c.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, allocated, available, spent, overspent)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		c.ID, c.Name, c.Allocated, c.Available, c.Spent, boolToInt(c.Overspent))
	if err != nil {
		return fmt.Errorf("upsert category: %w", err)
	}
	return nil
}

func (r *Repository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, allocated, available, spent, overspent
		FROM categories ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		var overspent int
		if err := rows.Scan(&c.ID, &c.Name, &c.Allocated, &c.Available, &c.Spent, &overspent); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Overspent = overspent != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

// SaveBalances persists the engine-owned numeric fields of categories and
// planning items in one transaction, so a crash between the two updates
// cannot leave them disagreeing.
func (r *Repository) SaveBalances(ctx context.Context, categories []core.Category, items []core.PlanningItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save balances: %w", err)
	}
	defer tx.Rollback()

	for _, c := range categories {
		if _, err := tx.ExecContext(ctx, `
			UPDATE categories SET allocated = ?, available = ?, spent = ?, overspent = ?
			WHERE id = ?`,
			c.Allocated, c.Available, c.Spent, boolToInt(c.Overspent), c.ID); err != nil {
			return fmt.Errorf("save category %s: %w", c.ID, err)
		}
	}
	for _, it := range items {
		if _, err := tx.ExecContext(ctx, `
			UPDATE planning_items SET allocated = ?, needs_allocation = ?, already_saved = ?
			WHERE id = ?`,
			it.Allocated, boolToInt(it.NeedsAllocation), it.AlreadySaved, it.ID); err != nil {
			return fmt.Errorf("save planning item %s: %w", it.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save balances: %w", err)
	}
	return nil
}

// --- planning items ---

func (r *Repository) UpsertPlanningItem(ctx context.Context, it core.PlanningItem) error {
	if err := it.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO planning_items (
			id, category_id, type, name, amount, target_amount, monthly_contribution,
			frequency, target_date, due_date, is_active, allocation_paused,
			priority_state, allocated, needs_allocation, already_saved)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			category_id = excluded.category_id,
			type = excluded.type,
			name = excluded.name,
			amount = excluded.amount,
			target_amount = excluded.target_amount,
			monthly_contribution = excluded.monthly_contribution,
			frequency = excluded.frequency,
			target_date = excluded.target_date,
			due_date = excluded.due_date,
			is_active = excluded.is_active,
			allocation_paused = excluded.allocation_paused,
			priority_state = excluded.priority_state`,
		it.ID, it.CategoryID, string(it.Type), it.Name, it.Amount, it.TargetAmount,
		it.MonthlyContribution, string(it.Frequency), it.TargetDate, it.DueDate,
		boolToInt(it.IsActive), boolToInt(it.AllocationPaused), string(it.PriorityState),
		it.Allocated, boolToInt(it.NeedsAllocation), it.AlreadySaved)
	if err != nil {
		return fmt.Errorf("upsert planning item: %w", err)
	}
	return nil
}

func (r *Repository) ListPlanningItems(ctx context.Context) ([]core.PlanningItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, category_id, type, name, amount, target_amount, monthly_contribution,
		       frequency, target_date, due_date, is_active, allocation_paused,
		       priority_state, allocated, needs_allocation, already_saved
		FROM planning_items ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list planning items: %w", err)
	}
	defer rows.Close()

	var out []core.PlanningItem
	for rows.Next() {
		var it core.PlanningItem
		var typ, freq, prio string
		var active, paused, needs int
		if err := rows.Scan(&it.ID, &it.CategoryID, &typ, &it.Name, &it.Amount,
			&it.TargetAmount, &it.MonthlyContribution, &freq, &it.TargetDate, &it.DueDate,
			&active, &paused, &prio, &it.Allocated, &needs, &it.AlreadySaved); err != nil {
			return nil, fmt.Errorf("scan planning item: %w", err)
		}
		it.Type = core.ItemType(typ)
		it.Frequency = core.Frequency(freq)
		it.PriorityState = core.PriorityState(prio)
		it.IsActive = active != 0
		it.AllocationPaused = paused != 0
		it.NeedsAllocation = needs != 0
		out = append(out, it)
	}
	return out, rows.Err()
}

// --- paychecks ---

func (r *Repository) UpsertPaycheck(ctx context.Context, p core.Paycheck) error {
	if err := p.Validate(); err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert paycheck: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO paychecks (id, name, frequency, start_date, base_amount, variable_amount, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			frequency = excluded.frequency,
			start_date = excluded.start_date,
			base_amount = excluded.base_amount,
			variable_amount = excluded.variable_amount,
			is_active = excluded.is_active`,
		p.ID, p.Name, string(p.Frequency), p.StartDate, p.BaseAmount,
		p.VariableAmount, boolToInt(p.IsActive)); err != nil {
		return fmt.Errorf("upsert paycheck: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM paycheck_distributions WHERE paycheck_id = ?`, p.ID); err != nil {
		return fmt.Errorf("clear distributions: %w", err)
	}
	for _, split := range p.Distribution {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO paycheck_distributions (paycheck_id, account_id, amount)
			VALUES (?, ?, ?)`, p.ID, split.AccountID, split.Amount); err != nil {
			return fmt.Errorf("insert distribution: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert paycheck: %w", err)
	}
	return nil
}

func (r *Repository) GetPaycheck(ctx context.Context, id string) (core.Paycheck, error) {
	var p core.Paycheck
	var freq string
	var active int
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, frequency, start_date, base_amount, variable_amount, is_active
		FROM paychecks WHERE id = ?`, id).Scan(
		&p.ID, &p.Name, &freq, &p.StartDate, &p.BaseAmount, &p.VariableAmount, &active)
	if err == sql.ErrNoRows {
		return core.Paycheck{}, core.ErrUnknownPaycheck
	}
	if err != nil {
		return core.Paycheck{}, fmt.Errorf("get paycheck: %w", err)
	}
	p.Frequency = core.Frequency(freq)
	p.IsActive = active != 0

	rows, err := r.db.QueryContext(ctx, `
		SELECT account_id, amount FROM paycheck_distributions WHERE paycheck_id = ?`, id)
	if err != nil {
		return core.Paycheck{}, fmt.Errorf("get distributions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var split core.AccountSplit
		if err := rows.Scan(&split.AccountID, &split.Amount); err != nil {
			return core.Paycheck{}, fmt.Errorf("scan distribution: %w", err)
		}
		p.Distribution = append(p.Distribution, split)
	}
	if err := rows.Err(); err != nil {
		return core.Paycheck{}, err
	}

	hrows, err := r.db.QueryContext(ctx, `
		SELECT received_at, actual_amount, notes FROM paycheck_history
		WHERE paycheck_id = ? ORDER BY received_at`, id)
	if err != nil {
		return core.Paycheck{}, fmt.Errorf("get paycheck history: %w", err)
	}
	defer hrows.Close()
	for hrows.Next() {
		var receipt core.PaycheckReceipt
		if err := hrows.Scan(&receipt.Date, &receipt.ActualAmount, &receipt.Notes); err != nil {
			return core.Paycheck{}, fmt.Errorf("scan paycheck receipt: %w", err)
		}
		p.History = append(p.History, receipt)
	}
	return p, hrows.Err()
}

func (r *Repository) ListPaychecks(ctx context.Context) ([]core.Paycheck, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM paychecks ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list paychecks: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan paycheck id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]core.Paycheck, 0, len(ids))
	for _, id := range ids {
		p, err := r.GetPaycheck(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *Repository) AppendPaycheckReceipt(ctx context.Context, paycheckID string, receipt core.PaycheckReceipt) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO paycheck_history (paycheck_id, received_at, actual_amount, notes)
		VALUES (?, ?, ?, ?)`,
		paycheckID, receipt.Date, receipt.ActualAmount, receipt.Notes)
	if err != nil {
		return fmt.Errorf("append paycheck receipt: %w", err)
	}
	slog.InfoContext(ctx, "Paycheck receipt recorded",
		"paycheck_id", paycheckID,
		"actual_amount", receipt.ActualAmount)
	return nil
}

// --- funding ledger (append-only) ---

func (r *Repository) AppendFundingEntries(ctx context.Context, entries []core.FundingHistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append funding entries: %w", err)
	}
	defer tx.Rollback()
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO funding_history (id, category_id, amount, paycheck_id, entry_date, note)
			VALUES (?, ?, ?, ?, ?, ?)`,
			e.ID, e.CategoryID, e.Amount, e.PaycheckID, e.Date, e.Note); err != nil {
			return fmt.Errorf("append funding entry %s: %w", e.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit funding entries: %w", err)
	}
	return nil
}

func (r *Repository) GetFundingEntry(ctx context.Context, id string) (core.FundingHistoryEntry, error) {
	var e core.FundingHistoryEntry
	err := r.db.QueryRowContext(ctx, `
		SELECT id, category_id, amount, paycheck_id, entry_date, note
		FROM funding_history WHERE id = ?`, id).Scan(
		&e.ID, &e.CategoryID, &e.Amount, &e.PaycheckID, &e.Date, &e.Note)
	if err == sql.ErrNoRows {
		return core.FundingHistoryEntry{}, fmt.Errorf("funding entry %s not found", id)
	}
	if err != nil {
		return core.FundingHistoryEntry{}, fmt.Errorf("get funding entry: %w", err)
	}
	return e, nil
}

func (r *Repository) ListFundingHistory(ctx context.Context, limit int) ([]core.FundingHistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, category_id, amount, paycheck_id, entry_date, note
		FROM funding_history ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list funding history: %w", err)
	}
	defer rows.Close()

	var out []core.FundingHistoryEntry
	for rows.Next() {
		var e core.FundingHistoryEntry
		if err := rows.Scan(&e.ID, &e.CategoryID, &e.Amount, &e.PaycheckID, &e.Date, &e.Note); err != nil {
			return nil, fmt.Errorf("scan funding entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// PendingMirrorEntries returns ledger rows not yet mirrored to the
// external spreadsheet, oldest first.
func (r *Repository) PendingMirrorEntries(ctx context.Context, limit int) ([]core.FundingHistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, category_id, amount, paycheck_id, entry_date, note
		FROM funding_history WHERE mirrored = 0 ORDER BY created_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("pending mirror entries: %w", err)
	}
	defer rows.Close()

	var out []core.FundingHistoryEntry
	for rows.Next() {
		var e core.FundingHistoryEntry
		if err := rows.Scan(&e.ID, &e.CategoryID, &e.Amount, &e.PaycheckID, &e.Date, &e.Note); err != nil {
			return nil, fmt.Errorf("scan pending entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repository) MarkMirrored(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE funding_history SET mirrored = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark mirrored: %w", err)
	}
	slog.InfoContext(ctx, "Funding entry mirrored", "id", id)
	return nil
}

// --- transfer ledger (append-only) ---

func (r *Repository) AppendTransfers(ctx context.Context, transfers []core.CategoryTransfer) error {
	if len(transfers) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append transfers: %w", err)
	}
	defer tx.Rollback()
	for _, t := range transfers {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO category_transfers (id, from_category_id, to_category_id, amount, transfer_date, note)
			VALUES (?, ?, ?, ?, ?, ?)`,
			t.ID, t.FromCategoryID, t.ToCategoryID, t.Amount, t.Date, t.Note); err != nil {
			return fmt.Errorf("append transfer %s: %w", t.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transfers: %w", err)
	}
	return nil
}

func (r *Repository) ListTransfers(ctx context.Context, limit int) ([]core.CategoryTransfer, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, from_category_id, to_category_id, amount, transfer_date, note
		FROM category_transfers ORDER BY transfer_date DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryTransfer
	for rows.Next() {
		var t core.CategoryTransfer
		if err := rows.Scan(&t.ID, &t.FromCategoryID, &t.ToCategoryID, &t.Amount, &t.Date, &t.Note); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// --- monthly budget map ---

func (r *Repository) SetMonthlyBudget(ctx context.Context, budget map[string]float64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set monthly budget: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM monthly_budget`); err != nil {
		return fmt.Errorf("clear monthly budget: %w", err)
	}
	for categoryID, amount := range budget {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO monthly_budget (category_id, amount) VALUES (?, ?)`,
			categoryID, core.ClampAmount(amount)); err != nil {
			return fmt.Errorf("insert monthly budget %s: %w", categoryID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit monthly budget: %w", err)
	}
	return nil
}

func (r *Repository) GetMonthlyBudget(ctx context.Context) (map[string]float64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT category_id, amount FROM monthly_budget`)
	if err != nil {
		return nil, fmt.Errorf("get monthly budget: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var categoryID string
		var amount float64
		if err := rows.Scan(&categoryID, &amount); err != nil {
			return nil, fmt.Errorf("scan monthly budget: %w", err)
		}
		out[categoryID] = amount
	}
	return out, rows.Err()
}

// --- external snapshots ---

func (r *Repository) UpsertAccount(ctx context.Context, a core.Account) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, balance) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, balance = excluded.balance`,
		a.ID, a.Name, core.ClampAmount(a.Balance))
	if err != nil {
		return fmt.Errorf("upsert account: %w", err)
	}
	return nil
}

func (r *Repository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, balance FROM accounts ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		var a core.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.Balance); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repository) UpsertTransaction(ctx context.Context, tx core.Transaction) error {
	date := tx.Date
	if date.IsZero() {
		date = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, category_id, amount, inflow, tx_date)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			category_id = excluded.category_id,
			amount = excluded.amount,
			inflow = excluded.inflow,
			tx_date = excluded.tx_date`,
		tx.ID, tx.CategoryID, tx.Amount, boolToInt(tx.Inflow), date)
	if err != nil {
		return fmt.Errorf("upsert transaction: %w", err)
	}
	return nil
}

func (r *Repository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, category_id, amount, inflow, tx_date FROM transactions ORDER BY tx_date, id`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var tx core.Transaction
		var inflow int
		if err := rows.Scan(&tx.ID, &tx.CategoryID, &tx.Amount, &inflow, &tx.Date); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Inflow = inflow != 0
		out = append(out, tx)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
