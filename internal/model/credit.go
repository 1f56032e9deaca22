package model

import "time"

// LedgerReason classifies a credit adjustment for audit purposes.
type LedgerReason string

// Reason codes recorded against every ledger entry.  Member-initiated
// bookings and cancellations use Booking/Cancellation; operator actions
// on behalf of a member use the Admin* codes; ClassCancelledRefund is
// written when an entire session is deleted and its bookings refunded.
const (
	ReasonBooking              LedgerReason = "BOOKING"
	ReasonCancellation         LedgerReason = "CANCELLATION"
	ReasonAdminBooking         LedgerReason = "ADMIN_BOOKING"
	ReasonAdminRefund          LedgerReason = "ADMIN_REFUND"
	ReasonAdminTopUp           LedgerReason = "ADMIN_TOP_UP"
	ReasonClassCancelledRefund LedgerReason = "CLASS_CANCELLED_REFUND"
)

// CreditAccount holds a member's cached credit balance.  The balance
// may go negative; the studio tolerates a deficit.  At any time the
// balance equals the sum of all ledger entry deltas for the member.
//
// Fields:
//  UserID  – account owner.
//  Balance – current credit balance (signed).
type CreditAccount struct {
	UserID  string `json:"user_id"` // credit_accounts.user_id
	Balance int    `json:"balance"` // credit_accounts.balance
}

// LedgerEntry is one append-only record of a credit adjustment.  Entries
// are never updated or deleted; the account balance is derived from
// them.
//
// Fields:
//  ID        – primary key identifier (UUID).
//  UserID    – account the adjustment applies to.
//  Delta     – signed credit change (-1 for a booking, +1 for a refund).
//  Reason    – audit reason code.
//  CreatedAt – when the adjustment was applied.
type LedgerEntry struct {
	ID        string       `json:"id"`         // credit_ledger.id
	UserID    string       `json:"user_id"`    // credit_ledger.user_id
	Delta     int          `json:"delta"`      // credit_ledger.delta
	Reason    LedgerReason `json:"reason"`     // credit_ledger.reason
	CreatedAt time.Time    `json:"created_at"` // credit_ledger.created_at
}
