// Package queue defines message payloads exchanged over the message broker.
package queue

// Event kinds published after committed booking transactions. The kind
// doubles as the routing key on the broker.
const (
	KindBookingConfirmed = "booking.confirmed"
	KindBookingCancelled = "booking.cancelled"
	KindWaitlistPromoted = "waitlist.promoted"
	KindClassDeleted     = "class.deleted"
)

// BookingEvent is published after every committed booking transaction.
// It carries enough information for downstream consumers to notify
// members ("slot freed", "you were promoted") or feed analytics without
// querying the primary database. Publication is fire-and-forget and
// never part of the transaction itself.
type BookingEvent struct {
	Kind       string `json:"kind"`
	UserID     string `json:"user_id,omitempty"`
	ClassID    string `json:"class_id"`
	ClassName  string `json:"class_name,omitempty"`
	StartsAt   string `json:"starts_at,omitempty"`
	Occupancy  int    `json:"occupancy"`
	SlotFreed  bool   `json:"slot_freed,omitempty"`
	Refunded   int    `json:"refunded,omitempty"`
	OccurredAt string `json:"occurred_at"`
}
