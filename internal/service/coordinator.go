// Package service contains the transaction coordinator, the single
// write path for bookings, cancellations, waitlists and credits. Every
// operation runs as one database transaction: all ledger mutations it
// performs commit together or not at all, so no reader ever observes
// occupancy, reservations and credits out of step.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/studioflow/class-booking/internal/model"
	"github.com/studioflow/class-booking/internal/queue"
	"github.com/studioflow/class-booking/internal/repository"
)

// ErrRequestInFlight is returned when a second call for the same
// (user, class, operation) tuple arrives while the first is still
// running. Duplicate rapid-fire calls are rejected, not queued.
var ErrRequestInFlight = errors.New("request already in flight")

// maxAttempts bounds the automatic retry of transactions that lose the
// occupancy compare-and-swap. Only the failed transaction is retried;
// it never queues behind others.
const maxAttempts = 3

// ChangeSignal receives a notification after every committed
// transaction so read-side caches can invalidate the affected class and
// date. It is informed of changes but never consulted for correctness.
type ChangeSignal interface {
	ClassChanged(ctx context.Context, classID string, startsAt time.Time)
}

// EventSink receives domain events for outbound notification after a
// transaction commits. Delivery is fire-and-forget.
type EventSink interface {
	Emit(ctx context.Context, ev queue.BookingEvent)
}

// Coordinator sequences multi-ledger mutations as atomic transactions
// and encodes the booking lifecycle. Legal transitions per
// (user, class) pair are None->Booked, None->Waitlisted, Booked->None,
// Waitlisted->None and Waitlisted->Booked (promotion); anything else
// fails with a typed error. Each transaction is scoped to exactly one
// class, so operations against different classes proceed fully in
// parallel.
type Coordinator struct {
	db           *sql.DB
	classes      *repository.ClassRepo
	reservations *repository.ReservationRepo
	waitlist     *repository.WaitlistRepo
	credits      *repository.CreditRepo
	signal       ChangeSignal // may be nil
	events       EventSink    // may be nil
	now          func() time.Time

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewCoordinator constructs a Coordinator. The repositories must be
// non-nil; signal and events may be nil to disable cache invalidation
// and event publication respectively.
func NewCoordinator(db *sql.DB, classes *repository.ClassRepo, reservations *repository.ReservationRepo, waitlist *repository.WaitlistRepo, credits *repository.CreditRepo, signal ChangeSignal, events EventSink) *Coordinator {
	if db == nil || classes == nil || reservations == nil || waitlist == nil || credits == nil {
		panic("nil dependency passed to NewCoordinator")
	}
	return &Coordinator{
		db:           db,
		classes:      classes,
		reservations: reservations,
		waitlist:     waitlist,
		credits:      credits,
		signal:       signal,
		events:       events,
		now:          func() time.Time { return time.Now().UTC() },
		inFlight:     make(map[string]struct{}),
	}
}

// BookingResult is the success payload of booking-type operations.
type BookingResult struct {
	Occupancy int `json:"occupancy"`
	Balance   int `json:"balance"`
}

// CancelResult is the success payload of cancellation-type operations.
// PromotedUserID is empty when the waitlist was empty and the slot
// stayed open.
type CancelResult struct {
	Occupancy      int    `json:"occupancy"`
	Balance        int    `json:"balance"`
	PromotedUserID string `json:"promoted_user_id,omitempty"`
}

// WaitlistResult is the success payload of JoinWaitlist.
type WaitlistResult struct {
	Position int `json:"position"`
}

// DeleteResult is the success payload of DeleteClass.
type DeleteResult struct {
	Refunded        int `json:"refunded"`
	WaitlistCleared int `json:"waitlist_cleared"`
}

// TopUpResult is the success payload of AdminTopUp.
type TopUpResult struct {
	Balance int `json:"balance"`
}

// BookClass books one slot on the class for the member: occupancy +1,
// a reservation created, one credit debited, all in one transaction. A
// stale waitlist entry for the same pair is removed in the same
// transaction. Booking a session that already started is refused.
func (c *Coordinator) BookClass(ctx context.Context, userID, classID string) (*BookingResult, error) {
	release, err := c.acquire(userID, classID, "book")
	if err != nil {
		return nil, err
	}
	defer release()

	var res BookingResult
	var startsAt time.Time
	err = c.withRetry(ctx, func(tx *sql.Tx) error {
		occ, bal, starts, err := c.bookTx(ctx, tx, userID, classID, model.ReasonBooking, false)
		if err != nil {
			return err
		}
		res = BookingResult{Occupancy: occ, Balance: bal}
		startsAt = starts
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.committed(ctx, classID, startsAt, queue.BookingEvent{
		Kind:      queue.KindBookingConfirmed,
		UserID:    userID,
		ClassID:   classID,
		StartsAt:  startsAt.Format(time.RFC3339),
		Occupancy: res.Occupancy,
	})
	return &res, nil
}

// CancelBooking releases the member's slot and refunds one credit.
// Within the same transaction the earliest waitlisted member, if any,
// is promoted: their reservation is created, the slot re-claimed and
// their credit debited, so the net occupancy change is zero when a
// promotion occurs. An empty waitlist is not an error.
func (c *Coordinator) CancelBooking(ctx context.Context, userID, classID string) (*CancelResult, error) {
	return c.cancel(ctx, userID, classID, model.ReasonCancellation)
}

// AdminAddUser books a slot for a member on an operator's behalf. The
// ledger effects match BookClass with the ADMIN_BOOKING reason code,
// and the past-start guard is waived: operators may correct rosters of
// sessions already underway.
func (c *Coordinator) AdminAddUser(ctx context.Context, classID, userID string) (*BookingResult, error) {
	release, err := c.acquire(userID, classID, "book")
	if err != nil {
		return nil, err
	}
	defer release()

	var res BookingResult
	var startsAt time.Time
	err = c.withRetry(ctx, func(tx *sql.Tx) error {
		occ, bal, starts, err := c.bookTx(ctx, tx, userID, classID, model.ReasonAdminBooking, true)
		if err != nil {
			return err
		}
		res = BookingResult{Occupancy: occ, Balance: bal}
		startsAt = starts
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.committed(ctx, classID, startsAt, queue.BookingEvent{
		Kind:      queue.KindBookingConfirmed,
		UserID:    userID,
		ClassID:   classID,
		StartsAt:  startsAt.Format(time.RFC3339),
		Occupancy: res.Occupancy,
	})
	return &res, nil
}

// AdminRemoveUser cancels a member's booking on an operator's behalf,
// refunding with the ADMIN_REFUND reason code. Waitlist promotion runs
// exactly as in CancelBooking.
func (c *Coordinator) AdminRemoveUser(ctx context.Context, classID, userID string) (*CancelResult, error) {
	return c.cancel(ctx, userID, classID, model.ReasonAdminRefund)
}

// JoinWaitlist appends the member to the class queue. A member who is
// already booked cannot join, and double-joins are rejected.
func (c *Coordinator) JoinWaitlist(ctx context.Context, userID, classID string) (*WaitlistResult, error) {
	release, err := c.acquire(userID, classID, "join")
	if err != nil {
		return nil, err
	}
	defer release()

	var res WaitlistResult
	var startsAt time.Time
	err = c.runTx(ctx, func(tx *sql.Tx) error {
		cls, err := c.classes.GetByIDTx(ctx, tx, classID)
		if err != nil {
			return err
		}
		if c.now().After(cls.StartsAt) {
			return repository.ErrClassStarted
		}
		booked, err := c.reservations.ExistsTx(ctx, tx, userID, classID)
		if err != nil {
			return err
		}
		if booked {
			return repository.ErrAlreadyBooked
		}
		pos, err := c.waitlist.JoinTx(ctx, tx, userID, classID, c.now())
		if err != nil {
			return err
		}
		res = WaitlistResult{Position: pos}
		startsAt = cls.StartsAt
		return nil
	})
	if err != nil {
		return nil, err
	}
	if c.signal != nil {
		c.signal.ClassChanged(ctx, classID, startsAt)
	}
	return &res, nil
}

// LeaveWaitlist removes the member's waitlist entry.
func (c *Coordinator) LeaveWaitlist(ctx context.Context, userID, classID string) error {
	release, err := c.acquire(userID, classID, "leave")
	if err != nil {
		return err
	}
	defer release()

	err = c.runTx(ctx, func(tx *sql.Tx) error {
		if _, err := c.classes.GetByIDTx(ctx, tx, classID); err != nil {
			return err
		}
		return c.waitlist.LeaveTx(ctx, tx, userID, classID)
	})
	return err
}

// DeleteClass removes a session and cascades: every active reservation
// is refunded one credit (CLASS_CANCELLED_REFUND) and removed, every
// waitlist entry is removed without a refund, then the class row is
// deleted. A failure partway rolls everything back.
func (c *Coordinator) DeleteClass(ctx context.Context, classID string) (*DeleteResult, error) {
	var res DeleteResult
	var startsAt time.Time
	err := c.withRetry(ctx, func(tx *sql.Tx) error {
		cls, err := c.classes.GetByIDTx(ctx, tx, classID)
		if err != nil {
			return err
		}
		// Zero-delta CAS bumps the version so in-flight bookings on
		// this class observe a conflict instead of racing the delete.
		if err := c.classes.AdjustOccupancyTx(ctx, tx, classID, 0, cls.Version); err != nil {
			return err
		}
		userIDs, err := c.reservations.ListUserIDsByClassTx(ctx, tx, classID)
		if err != nil {
			return err
		}
		for _, uid := range userIDs {
			if _, err := c.credits.AdjustTx(ctx, tx, uid, +1, model.ReasonClassCancelledRefund, c.now()); err != nil {
				return err
			}
		}
		refunded, err := c.reservations.ClearByClassTx(ctx, tx, classID)
		if err != nil {
			return err
		}
		cleared, err := c.waitlist.ClearByClassTx(ctx, tx, classID)
		if err != nil {
			return err
		}
		if err := c.classes.DeleteTx(ctx, tx, classID); err != nil {
			return err
		}
		res = DeleteResult{Refunded: refunded, WaitlistCleared: cleared}
		startsAt = cls.StartsAt
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.committed(ctx, classID, startsAt, queue.BookingEvent{
		Kind:     queue.KindClassDeleted,
		ClassID:  classID,
		StartsAt: startsAt.Format(time.RFC3339),
		Refunded: res.Refunded,
	})
	return &res, nil
}

// AdminTopUp applies a signed credit adjustment to a member's account
// with the ADMIN_TOP_UP reason code and returns the new balance.
func (c *Coordinator) AdminTopUp(ctx context.Context, userID string, delta int) (*TopUpResult, error) {
	var res TopUpResult
	err := c.runTx(ctx, func(tx *sql.Tx) error {
		bal, err := c.credits.AdjustTx(ctx, tx, userID, delta, model.ReasonAdminTopUp, c.now())
		if err != nil {
			return err
		}
		res = TopUpResult{Balance: bal}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// bookTx performs the booking steps inside an open transaction and
// returns the updated occupancy, the member's new balance and the class
// start time. Any stale waitlist entry for the pair is removed as part
// of the same transaction.
func (c *Coordinator) bookTx(ctx context.Context, tx *sql.Tx, userID, classID string, reason model.LedgerReason, allowStarted bool) (int, int, time.Time, error) {
	cls, err := c.classes.GetByIDTx(ctx, tx, classID)
	if err != nil {
		return 0, 0, time.Time{}, err
	}
	if !allowStarted && c.now().After(cls.StartsAt) {
		return 0, 0, time.Time{}, repository.ErrClassStarted
	}
	booked, err := c.reservations.ExistsTx(ctx, tx, userID, classID)
	if err != nil {
		return 0, 0, time.Time{}, err
	}
	if booked {
		return 0, 0, time.Time{}, repository.ErrAlreadyBooked
	}
	if cls.Occupancy >= cls.Capacity {
		return 0, 0, time.Time{}, repository.ErrClassFull
	}
	if err := c.classes.AdjustOccupancyTx(ctx, tx, classID, +1, cls.Version); err != nil {
		return 0, 0, time.Time{}, err
	}
	if err := c.reservations.CreateTx(ctx, tx, userID, classID, c.now()); err != nil {
		return 0, 0, time.Time{}, err
	}
	bal, err := c.credits.AdjustTx(ctx, tx, userID, -1, reason, c.now())
	if err != nil {
		return 0, 0, time.Time{}, err
	}
	// Clear a stale waitlist entry left by a racing join.
	waiting, err := c.waitlist.ExistsTx(ctx, tx, userID, classID)
	if err != nil {
		return 0, 0, time.Time{}, err
	}
	if waiting {
		if err := c.waitlist.LeaveTx(ctx, tx, userID, classID); err != nil {
			return 0, 0, time.Time{}, err
		}
	}
	return cls.Occupancy + 1, bal, cls.StartsAt, nil
}

// cancel runs the shared cancellation flow for member and admin
// initiated removals.
func (c *Coordinator) cancel(ctx context.Context, userID, classID string, refundReason model.LedgerReason) (*CancelResult, error) {
	release, err := c.acquire(userID, classID, "cancel")
	if err != nil {
		return nil, err
	}
	defer release()

	var res CancelResult
	var startsAt time.Time
	err = c.withRetry(ctx, func(tx *sql.Tx) error {
		cls, err := c.classes.GetByIDTx(ctx, tx, classID)
		if err != nil {
			return err
		}
		if err := c.reservations.RemoveTx(ctx, tx, userID, classID); err != nil {
			return err
		}
		if err := c.classes.AdjustOccupancyTx(ctx, tx, classID, -1, cls.Version); err != nil {
			return err
		}
		bal, err := c.credits.AdjustTx(ctx, tx, userID, +1, refundReason, c.now())
		if err != nil {
			return err
		}
		res = CancelResult{Occupancy: cls.Occupancy - 1, Balance: bal}
		startsAt = cls.StartsAt

		// Promotion: the freed slot and the promoted booking are two
		// effects of one cancellation and commit together or not at
		// all. PopNextTx returning nothing just leaves the slot open.
		promoted, found, err := c.waitlist.PopNextTx(ctx, tx, classID)
		if err != nil {
			return err
		}
		if !found {
			return nil
		}
		if err := c.reservations.CreateTx(ctx, tx, promoted, classID, c.now()); err != nil {
			return err
		}
		// The decrement above bumped the version once.
		if err := c.classes.AdjustOccupancyTx(ctx, tx, classID, +1, cls.Version+1); err != nil {
			return err
		}
		if _, err := c.credits.AdjustTx(ctx, tx, promoted, -1, model.ReasonAdminBooking, c.now()); err != nil {
			return err
		}
		res.Occupancy = cls.Occupancy
		res.PromotedUserID = promoted
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.committed(ctx, classID, startsAt, queue.BookingEvent{
		Kind:      queue.KindBookingCancelled,
		UserID:    userID,
		ClassID:   classID,
		StartsAt:  startsAt.Format(time.RFC3339),
		Occupancy: res.Occupancy,
		SlotFreed: res.PromotedUserID == "",
	})
	if res.PromotedUserID != "" && c.events != nil {
		c.events.Emit(ctx, queue.BookingEvent{
			Kind:       queue.KindWaitlistPromoted,
			UserID:     res.PromotedUserID,
			ClassID:    classID,
			StartsAt:   startsAt.Format(time.RFC3339),
			Occupancy:  res.Occupancy,
			OccurredAt: c.now().Format(time.RFC3339),
		})
	}
	return &res, nil
}

// committed fans out the post-commit side effects: the view cache
// invalidation signal and the notification event. Neither participates
// in the transaction.
func (c *Coordinator) committed(ctx context.Context, classID string, startsAt time.Time, ev queue.BookingEvent) {
	if c.signal != nil {
		c.signal.ClassChanged(ctx, classID, startsAt)
	}
	if c.events != nil {
		ev.OccurredAt = c.now().Format(time.RFC3339)
		c.events.Emit(ctx, ev)
	}
}

// acquire registers the (user, class, operation) tuple in the in-flight
// set, rejecting duplicates. The returned release function must be
// called when the operation finishes.
func (c *Coordinator) acquire(userID, classID, op string) (func(), error) {
	key := userID + "|" + classID + "|" + op
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[key]; busy {
		return nil, ErrRequestInFlight
	}
	c.inFlight[key] = struct{}{}
	return func() {
		c.mu.Lock()
		delete(c.inFlight, key)
		c.mu.Unlock()
	}, nil
}

// runTx executes fn inside a transaction, committing on success and
// rolling back on any error so no partial state is observable.
func (c *Coordinator) runTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// withRetry runs the transaction up to maxAttempts times, retrying only
// on the optimistic-concurrency conflict signal. Validation errors and
// invariant violations surface immediately; a conflict that survives
// all attempts is returned to the caller. Invariant violations are
// logged here because they indicate a bug, not a user mistake.
func (c *Coordinator) withRetry(ctx context.Context, fn func(tx *sql.Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = c.runTx(ctx, fn)
		if err == nil {
			return nil
		}
		if errors.Is(err, repository.ErrCapacityExceeded) {
			log.Printf("coordinator: capacity invariant violated: %v", err)
			return err
		}
		if !errors.Is(err, repository.ErrTxConflict) {
			return err
		}
	}
	return err
}
