package model

import "time"

// Reservation records that a member holds one slot on a class session.
// A member may hold at most one active reservation per session, so the
// (UserID, ClassID) pair is the natural key.  Reservations never
// outlive their class session or their user.
//
// Fields:
//  UserID    – member holding the slot.
//  ClassID   – class session the slot belongs to.
//  CreatedAt – when the reservation was made.
type Reservation struct {
	UserID    string    `json:"user_id"`    // reservations.user_id
	ClassID   string    `json:"class_id"`   // reservations.class_id
	CreatedAt time.Time `json:"created_at"` // reservations.created_at
}

// WaitlistEntry records that a member is queued for a slot on a class
// session that was full when they asked.  Entries are ordered FIFO by
// Position, which is assigned at join time and unique per session.  A
// member may not simultaneously hold a Reservation and a WaitlistEntry
// for the same session.
//
// Fields:
//  UserID   – queued member.
//  ClassID  – class session being waited on.
//  Position – join order within the session's queue (1-based).
//  JoinedAt – when the member joined the queue.
type WaitlistEntry struct {
	UserID   string    `json:"user_id"`   // waitlist_entries.user_id
	ClassID  string    `json:"class_id"`  // waitlist_entries.class_id
	Position int       `json:"position"`  // waitlist_entries.position
	JoinedAt time.Time `json:"joined_at"` // waitlist_entries.joined_at
}
