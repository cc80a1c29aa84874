package model

import "time"

// Seat type enumeration.  The values mirror the seats.seat_type column.
const (
	SeatTypeSingle  = "SINGLE"  // individual desk
	SeatTypeDouble  = "DOUBLE"  // shared two-person desk
	SeatTypeMeeting = "MEETING" // small meeting room booked as one unit
)

// Seat is a bookable physical resource belonging to exactly one store.
// A seat carries a fixed hourly rate and no mutable occupancy state of
// its own; confirmed occupancy lives in the interval index and
// short-lived checkout holds live in the lock manager.  Seats are
// created by store onboarding and never deleted while referenced by an
// order.
//
// Fields:
//  ID              – primary key identifier.
//  StoreID         – store that owns this seat.
//  Number          – human-readable seat label (e.g. "A12").
//  SeatType        – SINGLE, DOUBLE or MEETING.
//  HourlyRateCents – rental price per hour in cents.
//  IsActive        – false when the seat is under maintenance.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Seat struct {
	ID              uint64    // seats.id
	StoreID         uint64    // seats.store_id
	Number          string    // seats.number
	SeatType        string    // seats.seat_type
	HourlyRateCents uint32    // seats.hourly_rate_cents
	IsActive        bool      // seats.is_active
	CreatedAt       time.Time // seats.created_at
	UpdatedAt       time.Time // seats.updated_at
}
