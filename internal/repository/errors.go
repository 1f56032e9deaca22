// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// coordinator and handlers to distinguish between different failure
// scenarios without string matching. Validation failures (ErrAlreadyBooked,
// ErrClassFull, ...) are expected and map to user-facing responses;
// ErrTxConflict signals an optimistic-concurrency retry; ErrCapacityExceeded
// indicates a broken invariant and is treated as an internal error.
package repository

import "errors"

// ErrClassNotFound is returned when the referenced class session does
// not exist. Handlers translate this into an HTTP 404 response.
var ErrClassNotFound = errors.New("class not found")

// ErrAlreadyBooked is returned when the member already holds an active
// reservation for the class.
var ErrAlreadyBooked = errors.New("already booked")

// ErrNotBooked is returned when a cancellation or removal targets a
// (user, class) pair with no active reservation.
var ErrNotBooked = errors.New("not booked")

// ErrAlreadyWaitlisted is returned when the member already holds a
// waitlist entry for the class.
var ErrAlreadyWaitlisted = errors.New("already waitlisted")

// ErrNotWaitlisted is returned when leaving a waitlist the member never
// joined.
var ErrNotWaitlisted = errors.New("not waitlisted")

// ErrClassFull is returned when a booking is attempted against a class
// whose occupancy equals its capacity. The caller should join the
// waitlist instead.
var ErrClassFull = errors.New("class full")

// ErrClassStarted is returned when a booking or waitlist join targets a
// class whose start time has already passed.
var ErrClassStarted = errors.New("class already started")

// ErrTxConflict is returned when the occupancy compare-and-swap loses a
// race with a concurrent transaction on the same class. The coordinator
// retries the whole transaction a bounded number of times before
// surfacing this to the caller.
var ErrTxConflict = errors.New("transaction conflict")

// ErrCapacityExceeded is returned when an occupancy adjustment would
// push occupancy above capacity or below zero. Because every mutation
// path routes through the same choke point this should be unreachable;
// observing it means the transaction boundary is broken, so it is
// logged and surfaced as an internal error rather than corrected.
var ErrCapacityExceeded = errors.New("capacity invariant violated")
