package model

import "time"

// Store represents a study-room location that rents out seats by the
// hour.  Stores are onboarded by an external back-office flow; the
// booking core only reads them.  The cancellation deadline is a
// per-store policy: a paid order may be cancelled with a refund only
// up to CancelDeadlineHours before its start time.
//
// Fields:
//  ID                  – primary key identifier.
//  Name                – display name of the store.
//  Description         – short marketing description.
//  Address             – street address shown to customers.
//  Phone               – contact phone number.
//  CancelDeadlineHours – refund cutoff in hours before an order starts.
//  TotalSeats          – number of bookable seats in the store.
//  CreatedAt           – creation timestamp.
//  UpdatedAt           – last update timestamp.
type Store struct {
	ID                  uint64    // stores.id
	Name                string    // stores.name
	Description         string    // stores.description
	Address             string    // stores.address
	Phone               string    // stores.phone
	CancelDeadlineHours uint32    // stores.cancel_deadline_hours
	TotalSeats          uint32    // stores.total_seats
	CreatedAt           time.Time // stores.created_at
	UpdatedAt           time.Time // stores.updated_at
}
