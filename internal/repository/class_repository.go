package repository

import (
	"context"
	"database/sql"
	"time"
)

// timeLayout is the format used for all timestamps persisted by the
// repositories. Writing the string from Go keeps the schema portable
// between MySQL and SQLite. All values are UTC.
const timeLayout = "2006-01-02 15:04:05"

// ClassRepo provides persistence for class sessions. Occupancy is only
// ever changed through AdjustOccupancyTx, which is the single choke
// point enforcing the capacity invariant; booking and cancellation
// paths must never recompute occupancy independently.
type ClassRepo struct {
	db *sql.DB
}

// NewClassRepo returns a new ClassRepo bound to the given database.
func NewClassRepo(db *sql.DB) *ClassRepo { return &ClassRepo{db: db} }

// DB exposes the underlying handle so the coordinator can begin
// transactions spanning multiple repositories.
func (r *ClassRepo) DB() *sql.DB { return r.db }

// ClassRecord mirrors the schema of the classes table. It is used by
// the repository when constructing or scanning rows; business logic
// uses the model.ClassSession type instead.
type ClassRecord struct {
	ID          string
	Name        string
	Description string
	StartsAt    time.Time
	Capacity    int
	Occupancy   int
	Version     int
	CreatedAt   time.Time
}

// Create inserts a new class session. The caller supplies the UUID and
// start time; occupancy starts at zero.
func (r *ClassRepo) Create(ctx context.Context, rec *ClassRecord) error {
	const q = `INSERT INTO classes (id, name, description, starts_at, capacity, occupancy, version, created_at)
	           VALUES (?, ?, ?, ?, ?, 0, 0, ?)`
	_, err := r.db.ExecContext(ctx, q,
		rec.ID, rec.Name, rec.Description,
		rec.StartsAt.UTC().Format(timeLayout), rec.Capacity,
		rec.CreatedAt.UTC().Format(timeLayout))
	return err
}

// GetByID returns a single class session or ErrClassNotFound.
func (r *ClassRepo) GetByID(ctx context.Context, classID string) (*ClassRecord, error) {
	return scanClass(r.db.QueryRowContext(ctx, selectClass+` WHERE id = ?`, classID))
}

// GetByIDTx is GetByID within the scope of an existing transaction.
// The coordinator uses it so that the version it reads belongs to the
// same snapshot its compare-and-swap will run against.
func (r *ClassRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, classID string) (*ClassRecord, error) {
	return scanClass(tx.QueryRowContext(ctx, selectClass+` WHERE id = ?`, classID))
}

const selectClass = `SELECT id, name, description, starts_at, capacity, occupancy, version, created_at FROM classes`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanClass(row rowScanner) (*ClassRecord, error) {
	var rec ClassRecord
	var desc sql.NullString
	var startStr, createdStr string
	err := row.Scan(&rec.ID, &rec.Name, &desc, &startStr, &rec.Capacity, &rec.Occupancy, &rec.Version, &createdStr)
	if err == sql.ErrNoRows {
		return nil, ErrClassNotFound
	}
	if err != nil {
		return nil, err
	}
	if desc.Valid {
		rec.Description = desc.String
	}
	if t, err2 := time.Parse(timeLayout, startStr); err2 == nil {
		rec.StartsAt = t.UTC()
	}
	if t, err2 := time.Parse(timeLayout, createdStr); err2 == nil {
		rec.CreatedAt = t.UTC()
	}
	return &rec, nil
}

// ListByRange returns all class sessions starting within [from, to),
// ordered by start time. Used by the month browse endpoint and the
// view cache fill path.
func (r *ClassRepo) ListByRange(ctx context.Context, from, to time.Time) ([]ClassRecord, error) {
	const q = selectClass + ` WHERE starts_at >= ? AND starts_at < ? ORDER BY starts_at`
	rows, err := r.db.QueryContext(ctx, q,
		from.UTC().Format(timeLayout), to.UTC().Format(timeLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ClassRecord, 0)
	for rows.Next() {
		rec, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// AdjustOccupancyTx applies a signed occupancy delta with an optimistic
// compare-and-swap on the row version. expectedVersion must come from a
// read inside the same transaction. When zero rows are updated the
// failure cause is re-read and classified:
//
//   - the row is gone            -> ErrClassNotFound
//   - the version moved          -> ErrTxConflict (caller retries)
//   - the delta breaks the bounds -> ErrCapacityExceeded (fatal)
func (r *ClassRepo) AdjustOccupancyTx(ctx context.Context, tx *sql.Tx, classID string, delta, expectedVersion int) error {
	const q = `UPDATE classes
	           SET occupancy = occupancy + ?, version = version + 1
	           WHERE id = ? AND version = ?
	             AND occupancy + ? >= 0 AND occupancy + ? <= capacity`
	res, err := tx.ExecContext(ctx, q, delta, classID, expectedVersion, delta, delta)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	var version int
	err = tx.QueryRowContext(ctx, `SELECT version FROM classes WHERE id = ?`, classID).Scan(&version)
	if err == sql.ErrNoRows {
		return ErrClassNotFound
	}
	if err != nil {
		return err
	}
	if version != expectedVersion {
		return ErrTxConflict
	}
	return ErrCapacityExceeded
}

// DeleteTx removes the class row. The coordinator must have cleared
// dependent reservations and waitlist entries first.
func (r *ClassRepo) DeleteTx(ctx context.Context, tx *sql.Tx, classID string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM classes WHERE id = ?`, classID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrClassNotFound
	}
	return nil
}
