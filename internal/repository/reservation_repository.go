package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/studioflow/class-booking/internal/model"
)

// ReservationRepo provides bookkeeping for active bookings. A booking
// is the (user_id, class_id) pair; uniqueness of that pair is the only
// business rule this layer carries. Everything else (capacity, credits,
// waitlist interplay) belongs to the coordinator.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// ExistsTx reports whether the member holds an active reservation for
// the class, within the scope of an existing transaction.
func (r *ReservationRepo) ExistsTx(ctx context.Context, tx *sql.Tx, userID, classID string) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM reservations WHERE user_id = ? AND class_id = ?`,
		userID, classID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateTx inserts a reservation within an existing transaction. It
// returns ErrAlreadyBooked when the pair already exists; the caller is
// expected to have checked first, so this is a backstop against races
// that the primary key makes impossible to lose silently.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, userID, classID string, now time.Time) error {
	exists, err := r.ExistsTx(ctx, tx, userID, classID)
	if err != nil {
		return err
	}
	if exists {
		return ErrAlreadyBooked
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO reservations (user_id, class_id, created_at) VALUES (?, ?, ?)`,
		userID, classID, now.UTC().Format(timeLayout))
	return err
}

// RemoveTx deletes a reservation within an existing transaction and
// returns ErrNotBooked when no row was removed.
func (r *ReservationRepo) RemoveTx(ctx context.Context, tx *sql.Tx, userID, classID string) error {
	res, err := tx.ExecContext(ctx,
		`DELETE FROM reservations WHERE user_id = ? AND class_id = ?`,
		userID, classID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotBooked
	}
	return nil
}

// ListUserIDsByClassTx returns the user IDs of every active reservation
// on the class, within an existing transaction. The cascade delete path
// uses it to issue refunds.
func (r *ReservationRepo) ListUserIDsByClassTx(ctx context.Context, tx *sql.Tx, classID string) ([]string, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT user_id FROM reservations WHERE class_id = ? ORDER BY created_at`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ClearByClassTx removes every reservation on the class within an
// existing transaction. Only the cascade delete path uses it, after
// refunds have been issued per member.
func (r *ReservationRepo) ClearByClassTx(ctx context.Context, tx *sql.Tx, classID string) (int, error) {
	res, err := tx.ExecContext(ctx,
		`DELETE FROM reservations WHERE class_id = ?`, classID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// CountByClass returns the number of active reservations on a class.
// Together with the class row's occupancy this is the capacity
// invariant check: the two must always agree.
func (r *ReservationRepo) CountByClass(ctx context.Context, classID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE class_id = ?`, classID).Scan(&n)
	return n, err
}

// BookingDetail is a reservation joined with its class session for
// display to members.
type BookingDetail struct {
	ClassID   string `json:"class_id"`
	ClassName string `json:"class_name"`
	StartsAt  string `json:"starts_at"`
	BookedAt  string `json:"booked_at"`
}

// ListByUser returns all of a member's active bookings with class
// details, ordered by class start time. When no bookings exist an
// empty slice is returned.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID string) ([]BookingDetail, error) {
	const q = `SELECT r.class_id, c.name, c.starts_at, r.created_at
	           FROM reservations r
	           JOIN classes c ON c.id = r.class_id
	           WHERE r.user_id = ?
	           ORDER BY c.starts_at`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]BookingDetail, 0)
	for rows.Next() {
		var d BookingDetail
		var startStr, bookedStr string
		if err := rows.Scan(&d.ClassID, &d.ClassName, &startStr, &bookedStr); err != nil {
			return nil, err
		}
		// Convert DB timestamps to RFC3339 in UTC
		if t, err2 := time.Parse(timeLayout, startStr); err2 == nil {
			d.StartsAt = t.UTC().Format(time.RFC3339)
		}
		if t, err2 := time.Parse(timeLayout, bookedStr); err2 == nil {
			d.BookedAt = t.UTC().Format(time.RFC3339)
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// ListByClass returns the roster of a class ordered by booking time.
func (r *ReservationRepo) ListByClass(ctx context.Context, classID string) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, class_id, created_at FROM reservations WHERE class_id = ? ORDER BY created_at`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	roster := make([]model.Reservation, 0)
	for rows.Next() {
		var res model.Reservation
		var bookedStr string
		if err := rows.Scan(&res.UserID, &res.ClassID, &bookedStr); err != nil {
			return nil, err
		}
		if t, err2 := time.Parse(timeLayout, bookedStr); err2 == nil {
			res.CreatedAt = t.UTC()
		}
		roster = append(roster, res)
	}
	return roster, rows.Err()
}
