// Package booking implements the reservation core: the interval index
// recording confirmed seat occupancy, the lock manager that serializes
// concurrent checkouts, the order state machine, and the coordinator
// that exposes the caller-facing operations.  The package is transport
// agnostic; HTTP handlers translate its sentinel errors into status
// codes.
package booking

import "errors"

// ErrDenied is returned when a checkout lock cannot be granted because
// an active lock or confirmed occupancy overlaps the requested
// interval.  It is expected and retryable: the caller should pick a
// different seat or time rather than wait, since losers are never
// queued.
var ErrDenied = errors.New("seat unavailable for requested interval")

// ErrConflict signals a defensive invariant violation: a durable
// occupancy write overlapped an existing confirmed interval even
// though locking should have made that impossible.  It is surfaced for
// manual reconciliation and never retried automatically.
var ErrConflict = errors.New("occupancy conflict")

// ErrInvalidTransition is returned when a caller attempts a lifecycle
// step that the transition table does not permit from the order's
// current status.  The order is left unchanged.
var ErrInvalidTransition = errors.New("invalid order transition")

// ErrDeadlinePassed rejects a refund-bearing cancellation requested
// after the store's cancellation deadline.  It is a policy outcome,
// not a system fault.
var ErrDeadlinePassed = errors.New("cancellation deadline passed")

// ErrNotFound is returned for an unknown or expired lock token, or an
// unknown order number.
var ErrNotFound = errors.New("not found")

// ErrInvalidInterval is returned when a requested interval is
// malformed or falls outside the configured duration bounds.
var ErrInvalidInterval = errors.New("invalid interval")

// ErrAmountMismatch is returned when the amount supplied by the client
// at reservation time does not match the server-side computation from
// the seat's hourly rate.
var ErrAmountMismatch = errors.New("amount mismatch")

// ErrForbidden is returned when a caller addresses an order or lock
// held by a different customer.
var ErrForbidden = errors.New("forbidden")
