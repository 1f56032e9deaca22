package model

import "time"

// ClassSession represents a single scheduled, capacity-bounded instance
// of a studio class.  Sessions are created ahead of time by an upstream
// schedule generator or manually by an admin, and their occupancy is
// mutated only by the transaction coordinator.
//
// Fields:
//  ID          – primary key identifier (UUID).
//  Name        – class name, e.g. "Pilates" or "Spin".
//  Description – optional free-text description.
//  StartsAt    – when the session begins.
//  Capacity    – maximum number of members (positive).
//  Occupancy   – number of slots currently claimed; always equal to
//                the count of active reservations for this session and
//                never above Capacity.
//  Version     – row version used for optimistic concurrency on
//                occupancy updates.
//  CreatedAt   – creation timestamp.
type ClassSession struct {
	ID          string    `json:"id"`          // classes.id
	Name        string    `json:"name"`        // classes.name
	Description string    `json:"description"` // classes.description
	StartsAt    time.Time `json:"starts_at"`   // classes.starts_at
	Capacity    int       `json:"capacity"`    // classes.capacity
	Occupancy   int       `json:"occupancy"`   // classes.occupancy
	Version     int       `json:"-"`           // classes.version
	CreatedAt   time.Time `json:"created_at"`  // classes.created_at
}
