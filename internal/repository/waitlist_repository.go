package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/studioflow/class-booking/internal/model"
)

// WaitlistRepo provides the per-class FIFO queue of members waiting for
// a slot. Ordering is by the position column, assigned monotonically at
// join time inside the joining transaction, so join order is unique per
// class and no further tie-break is needed.
type WaitlistRepo struct {
	db *sql.DB
}

// NewWaitlistRepo returns a new WaitlistRepo bound to the given database.
func NewWaitlistRepo(db *sql.DB) *WaitlistRepo { return &WaitlistRepo{db: db} }

// ExistsTx reports whether the member holds a waitlist entry for the
// class, within the scope of an existing transaction.
func (r *WaitlistRepo) ExistsTx(ctx context.Context, tx *sql.Tx, userID, classID string) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM waitlist_entries WHERE user_id = ? AND class_id = ?`,
		userID, classID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// JoinTx appends the member to the class queue within an existing
// transaction. The next position is computed from the current maximum
// inside the same transaction, so two concurrent joins cannot claim the
// same position (the UNIQUE (class_id, position) constraint backstops
// this).
func (r *WaitlistRepo) JoinTx(ctx context.Context, tx *sql.Tx, userID, classID string, now time.Time) (int, error) {
	exists, err := r.ExistsTx(ctx, tx, userID, classID)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, ErrAlreadyWaitlisted
	}
	var pos int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), 0) + 1 FROM waitlist_entries WHERE class_id = ?`,
		classID).Scan(&pos)
	if err != nil {
		return 0, err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO waitlist_entries (user_id, class_id, position, joined_at) VALUES (?, ?, ?, ?)`,
		userID, classID, pos, now.UTC().Format(timeLayout))
	if err != nil {
		return 0, err
	}
	return pos, nil
}

// LeaveTx removes the member's entry within an existing transaction and
// returns ErrNotWaitlisted when no row was removed.
func (r *WaitlistRepo) LeaveTx(ctx context.Context, tx *sql.Tx, userID, classID string) error {
	res, err := tx.ExecContext(ctx,
		`DELETE FROM waitlist_entries WHERE user_id = ? AND class_id = ?`,
		userID, classID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotWaitlisted
	}
	return nil
}

// PopNextTx removes and returns the earliest-joined entry for the
// class. It is the sole promotion mechanism and must only be called by
// the coordinator inside a cancellation transaction. An empty queue is
// not an error; the returned user ID is "" and found is false.
func (r *WaitlistRepo) PopNextTx(ctx context.Context, tx *sql.Tx, classID string) (userID string, found bool, err error) {
	err = tx.QueryRowContext(ctx,
		`SELECT user_id FROM waitlist_entries WHERE class_id = ? ORDER BY position LIMIT 1`,
		classID).Scan(&userID)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	_, err = tx.ExecContext(ctx,
		`DELETE FROM waitlist_entries WHERE user_id = ? AND class_id = ?`,
		userID, classID)
	if err != nil {
		return "", false, err
	}
	return userID, true, nil
}

// ClearByClassTx removes every entry for the class. Used by the cascade
// delete path; waitlisted members were never charged, so no refunds
// accompany this.
func (r *WaitlistRepo) ClearByClassTx(ctx context.Context, tx *sql.Tx, classID string) (int, error) {
	res, err := tx.ExecContext(ctx,
		`DELETE FROM waitlist_entries WHERE class_id = ?`, classID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// ListByClass returns the queue for a class in promotion order.
func (r *WaitlistRepo) ListByClass(ctx context.Context, classID string) ([]model.WaitlistEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, class_id, position, joined_at FROM waitlist_entries WHERE class_id = ? ORDER BY position`,
		classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := make([]model.WaitlistEntry, 0)
	for rows.Next() {
		var e model.WaitlistEntry
		var joinedStr string
		if err := rows.Scan(&e.UserID, &e.ClassID, &e.Position, &joinedStr); err != nil {
			return nil, err
		}
		if t, err2 := time.Parse(timeLayout, joinedStr); err2 == nil {
			e.JoinedAt = t.UTC()
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
