package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/studioflow/class-booking/internal/model"
)

// CreditRepo provides per-member credit balances and the append-only
// adjustment ledger behind them. Every adjustment writes one ledger row
// before touching the cached balance, so the balance is always the sum
// of the member's ledger deltas. AdjustTx applies on every call; the
// exactly-once responsibility sits with the coordinator's transaction
// boundary, not here.
type CreditRepo struct {
	db *sql.DB
}

// NewCreditRepo returns a new CreditRepo bound to the given database.
func NewCreditRepo(db *sql.DB) *CreditRepo { return &CreditRepo{db: db} }

// GetBalance returns the member's current balance. A member with no
// account row has a balance of zero.
func (r *CreditRepo) GetBalance(ctx context.Context, userID string) (int, error) {
	var balance int
	err := r.db.QueryRowContext(ctx,
		`SELECT balance FROM credit_accounts WHERE user_id = ?`, userID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return balance, err
}

// AdjustTx appends a ledger entry and applies the delta to the cached
// balance within an existing transaction, returning the new balance.
// The account row is created on first use.
func (r *CreditRepo) AdjustTx(ctx context.Context, tx *sql.Tx, userID string, delta int, reason model.LedgerReason, now time.Time) (int, error) {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO credit_ledger (id, user_id, delta, reason, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), userID, delta, string(reason), now.UTC().Format(timeLayout))
	if err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE credit_accounts SET balance = balance + ? WHERE user_id = ?`, delta, userID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO credit_accounts (user_id, balance) VALUES (?, ?)`, userID, delta); err != nil {
			return 0, err
		}
		return delta, nil
	}
	var balance int
	err = tx.QueryRowContext(ctx,
		`SELECT balance FROM credit_accounts WHERE user_id = ?`, userID).Scan(&balance)
	return balance, err
}

// ListLedger returns the member's ledger entries, newest first. Backs
// the member's transaction history view.
func (r *CreditRepo) ListLedger(ctx context.Context, userID string) ([]model.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, delta, reason, created_at FROM credit_ledger WHERE user_id = ? ORDER BY created_at DESC, id`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := make([]model.LedgerEntry, 0)
	for rows.Next() {
		var e model.LedgerEntry
		var reason, createdStr string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Delta, &reason, &createdStr); err != nil {
			return nil, err
		}
		e.Reason = model.LedgerReason(reason)
		if t, err2 := time.Parse(timeLayout, createdStr); err2 == nil {
			e.CreatedAt = t.UTC()
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SumLedger returns the sum of the member's ledger deltas. The ledger
// consistency invariant requires this to equal GetBalance at all times.
func (r *CreditRepo) SumLedger(ctx context.Context, userID string) (int, error) {
	var sum int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(delta), 0) FROM credit_ledger WHERE user_id = ?`, userID).Scan(&sum)
	return sum, err
}
