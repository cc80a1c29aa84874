package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/yihan-study/seat-booking/internal/model"
	"github.com/yihan-study/seat-booking/internal/obs"
)

// Store is the durable side of the booking core.  Implementations must
// provide transactional multi-write commit: ApplyTransition persists
// the status change and its index effects all-or-nothing, so a
// reservation can never be marked paid without its occupancy row or
// vice versa.
type Store interface {
	// CreateOrder persists a new order and populates its ID.
	CreateOrder(ctx context.Context, o *model.Order) error
	// OrderByNo loads an order by its external order number.  Returns
	// ErrNotFound when absent.
	OrderByNo(ctx context.Context, orderNo string) (*model.Order, error)
	// ApplyTransition writes the order's next status together with the
	// durable index effects in a single transaction, then updates o in
	// place.  ref carries the payment or refund reference for the
	// transitions that record one.  An occupancy insert that overlaps
	// an existing confirmed row aborts the whole transaction with
	// ErrConflict, leaving the order unchanged.
	ApplyTransition(ctx context.Context, o *model.Order, next model.OrderStatus, effects []Effect, ref string) error
	// ExpiredPendingOrders returns PENDING_PAYMENT orders whose payment
	// deadline is at or before now.
	ExpiredPendingOrders(ctx context.Context, now time.Time) ([]model.Order, error)
	// OverdueInUseOrders returns IN_USE orders whose interval has fully
	// elapsed by nowMin (minutes since epoch).
	OverdueInUseOrders(ctx context.Context, nowMin int64) ([]model.Order, error)
	// LoadOccupancy returns every confirmed occupancy row, for index
	// hydration at startup.
	LoadOccupancy(ctx context.Context) ([]Occupancy, error)
}

/// SeatInfo is what the coordinator needs to know about a seat: its
// price and the owning store's cancellation policy.
type SeatInfo struct {
	SeatID          uint64
	StoreID         uint64
	Number          string
	HourlyRateCents uint32
	CancelDeadline  time.Duration // refund cutoff before order start
}

// SeatSource resolves seat identities.  Implementations return
// ErrNotFound for unknown or inactive seats.
type SeatSource interface {
	Seat(ctx context.Context, seatID uint64) (SeatInfo, error)
}

// Config carries the booking policy knobs.  Zero values select the
// defaults noted on each field.
type Config struct {
	LockTTL        time.Duration // checkout lock lifetime (default 300s)
	PaymentTimeout time.Duration // pay deadline after reservation creation (default 15m)
	MinDuration    time.Duration // shortest bookable interval (default 60m)
	MaxDuration    time.Duration // longest bookable interval (default 480m)
	SweepInterval  time.Duration // maintenance sweep period (default 30s)
}

func (c Config) withDefaults() Config {
	if c.LockTTL <= 0 {
		c.LockTTL = DefaultLockTTL
	}
	if c.PaymentTimeout <= 0 {
		c.PaymentTimeout = 15 * time.Minute
	}
	if c.MinDuration <= 0 {
		c.MinDuration = time.Hour
	}
	if c.MaxDuration <= 0 {
		c.MaxDuration = 8 * time.Hour
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = 30 * time.Second
	}
	return c
}

// Coordinator exposes the atomic caller-facing booking operations and
// is the only component that spans the index, the lock manager and the
// durable store.  It owns all writes to the index and the lock table;
// order status is written solely through the state machine's
// transition function.
type Coordinator struct {
	index   *Index
	locks   *LockManager
	store   Store
	seats   SeatSource
	cfg     Config
	metrics *obs.Metrics
	clock   func() time.Time // injected for tests
}

// NewCoordinator wires the core together.  metrics may be nil.
func NewCoordinator(idx *Index, locks *LockManager, store Store, seats SeatSource, cfg Config, metrics *obs.Metrics) *Coordinator {
	return &Coordinator{
		index:   idx,
		locks:   locks,
		store:   store,
		seats:   seats,
		cfg:     cfg.withDefaults(),
		metrics: metrics,
		clock:   func() time.Time { return time.Now().UTC() },
	}
}

// Index exposes the confirmed occupancy index for read-only queries.
func (co *Coordinator) Index() *Index { return co.index }

// Locks exposes the lock manager for read-only lookups.
func (co *Coordinator) Locks() *LockManager { return co.locks }

// Hydrate rebuilds the in-memory index from the durable occupancy
// rows.  Call once at startup, before serving requests.
func (co *Coordinator) Hydrate(ctx context.Context) error {
	rows, err := co.store.LoadOccupancy(ctx)
	if err != nil {
		return fmt.Errorf("load occupancy: %w", err)
	}
	if err := co.index.Hydrate(rows); err != nil {
		return fmt.Errorf("hydrate index: %w", err)
	}
	return nil
}

// CheckAvailability reports whether the seat is free for the whole
// interval: no confirmed occupancy and no active checkout lock may
// overlap it.
func (co *Coordinator) CheckAvailability(ctx context.Context, seatID uint64, iv Interval) (bool, error) {
	if !iv.Valid() {
		return false, ErrInvalidInterval
	}
	if _, err := co.seats.Seat(ctx, seatID); err != nil {
		return false, err
	}
	if co.index.HasOverlap(seatID, iv) {
		return false, nil
	}
	if co.locks.HasOverlapLock(seatID, iv) {
		return false, nil
	}
	return true, nil
}

// StartCheckout grants an exclusive checkout lock on (seatID, iv) to
// the customer.  The interval must satisfy the duration bounds and
// start in the future.  Returns ErrDenied when a concurrent checkout
// or confirmed booking overlaps.
func (co *Coordinator) StartCheckout(ctx context.Context, seatID uint64, iv Interval, customerID uint64) (*Lock, error) {
	if err := iv.CheckBounds(co.cfg.MinDuration, co.cfg.MaxDuration); err != nil {
		return nil, err
	}
	if !iv.StartTime().After(co.clock()) {
		return nil, fmt.Errorf("%w: interval start must be in the future", ErrInvalidInterval)
	}
	if _, err := co.seats.Seat(ctx, seatID); err != nil {
		return nil, err
	}
	return co.locks.Acquire(seatID, iv, customerID)
}

// ReleaseCheckout abandons a checkout lock.  Idempotent.
func (co *Coordinator) ReleaseCheckout(token string) { co.locks.Release(token) }

// ExtendCheckout resets the lock's TTL while the customer is still
// filling in the checkout flow.
func (co *Coordinator) ExtendCheckout(token string) (Lock, error) {
	return co.locks.Extend(token, 0)
}

// CreateReservation converts an active checkout lock into a
// PENDING_PAYMENT order.  The amount is computed server-side from the
// seat's hourly rate; a non-zero client amount that disagrees fails
// with ErrAmountMismatch.  The lock is extended to cover the payment
// deadline so it keeps guarding the interval until the index takes
// over at payment time.
func (co *Coordinator) CreateReservation(ctx context.Context, token string, customerID uint64, amountCents uint32) (*model.Order, error) {
	lock, err := co.locks.Get(token)
	if err != nil {
		return nil, err
	}
	if lock.HolderID != customerID {
		return nil, ErrForbidden
	}
	seat, err := co.seats.Seat(ctx, lock.SeatID)
	if err != nil {
		return nil, err
	}
	computed := priceFor(seat.HourlyRateCents, lock.Interval)
	if amountCents != 0 && amountCents != computed {
		return nil, fmt.Errorf("%w: client %d, computed %d", ErrAmountMismatch, amountCents, computed)
	}
	now := co.clock()
	deadline := now.Add(co.cfg.PaymentTimeout)
	if _, err := co.locks.Extend(token, deadline.Sub(now)); err != nil {
		return nil, err
	}
	order := &model.Order{
		OrderNo:     uuid.NewString(),
		UserID:      customerID,
		StoreID:     seat.StoreID,
		SeatID:      lock.SeatID,
		StartMin:    lock.Interval.Start,
		EndMin:      lock.Interval.End,
		AmountCents: computed,
		Status:      model.StatusPendingPayment,
		LockToken:   &token,
		PayDeadline: deadline,
	}
	if err := co.store.CreateOrder(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// ConfirmPayment applies the payment provider's success callback.  In
// one durable transaction the order becomes PAID and its interval is
// written into the occupancy table; the originating lock is released
// afterwards.  A defensive occupancy conflict aborts everything and
// surfaces ErrConflict with the order still PENDING_PAYMENT.  A late
// callback on an already auto-cancelled order fails with
// ErrInvalidTransition; the reconciliation job owns the refund.
func (co *Coordinator) ConfirmPayment(ctx context.Context, orderNo, transactionRef string) (*model.Order, error) {
	return co.fire(ctx, orderNo, TriggerPaySuccess, transactionRef)
}

// ConfirmByStore acknowledges a paid order on behalf of the store.
func (co *Coordinator) ConfirmByStore(ctx context.Context, orderNo string) (*model.Order, error) {
	return co.fire(ctx, orderNo, TriggerStoreConfirm, "")
}

// CheckIn marks the customer as arrived.  Only the order's owner may
// check in.
func (co *Coordinator) CheckIn(ctx context.Context, orderNo string, customerID uint64) (*model.Order, error) {
	order, err := co.ownedOrder(ctx, orderNo, customerID)
	if err != nil {
		return nil, err
	}
	return co.apply(ctx, order, TriggerCheckIn, "")
}

// CheckOut completes an in-use order.
func (co *Coordinator) CheckOut(ctx context.Context, orderNo string, customerID uint64) (*model.Order, error) {
	order, err := co.ownedOrder(ctx, orderNo, customerID)
	if err != nil {
		return nil, err
	}
	return co.apply(ctx, order, TriggerCheckOut, "")
}

// Cancel cancels the customer's order.  Before payment it simply
// releases the lock; after payment it enters REFUND_PROCESSING and
// releases the occupancy, but only while the store's cancellation
// deadline has not passed — afterwards it fails with ErrDeadlinePassed
// (the operator no-refund path remains available).  Cancelling an
// order that is already cancelled or already refunding is a no-op.
func (co *Coordinator) Cancel(ctx context.Context, orderNo string, customerID uint64) (*model.Order, error) {
	order, err := co.ownedOrder(ctx, orderNo, customerID)
	if err != nil {
		return nil, err
	}
	switch order.Status {
	case model.StatusCancelled, model.StatusRefundProcessing, model.StatusRefundSuccess:
		return order, nil // already cancelled; idempotent
	}
	if order.Status != model.StatusPendingPayment {
		seat, err := co.seats.Seat(ctx, order.SeatID)
		if err != nil {
			return nil, err
		}
		cutoff := Interval{Start: order.StartMin, End: order.EndMin}.StartTime().Add(-seat.CancelDeadline)
		if co.clock().After(cutoff) {
			return nil, ErrDeadlinePassed
		}
	}
	return co.apply(ctx, order, TriggerCancel, "")
}

// CancelNoRefund cancels an order without a refund, bypassing the
// deadline policy.  This is the operator-discretion path for staff.
func (co *Coordinator) CancelNoRefund(ctx context.Context, orderNo string) (*model.Order, error) {
	order, err := co.store.OrderByNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	if order.Status == model.StatusCancelled {
		return order, nil
	}
	return co.apply(ctx, order, TriggerCancelNoRefund, "")
}

// MarkRefundResult applies the refund provider's callback to an order
// in REFUND_PROCESSING.
func (co *Coordinator) MarkRefundResult(ctx context.Context, orderNo string, success bool, refundRef string) (*model.Order, error) {
	trigger := TriggerRefundFailure
	if success {
		trigger = TriggerRefundSuccess
	}
	return co.fire(ctx, orderNo, trigger, refundRef)
}

// ExpireStale is the periodic maintenance entry point.  It sweeps
// expired checkout locks, auto-cancels PENDING_PAYMENT orders past
// their payment deadline, and completes IN_USE orders whose interval
// has elapsed.  Individual order failures are logged and skipped so
// one bad row cannot stall the sweep.
func (co *Coordinator) ExpireStale(ctx context.Context) (locksRemoved, ordersTimedOut int) {
	now := co.clock()
	co.metrics.IncSweep()
	locksRemoved = co.locks.Sweep(now)

	pending, err := co.store.ExpiredPendingOrders(ctx, now)
	if err != nil {
		log.Printf("sweep: list expired pending orders: %v", err)
	}
	for i := range pending {
		if _, err := co.apply(ctx, &pending[i], TriggerTimeout, ""); err != nil {
			log.Printf("sweep: timeout order %s: %v", pending[i].OrderNo, err)
			continue
		}
		ordersTimedOut++
	}
	co.metrics.AddTimedOutOrders(ordersTimedOut)

	overdue, err := co.store.OverdueInUseOrders(ctx, now.Unix()/60)
	if err != nil {
		log.Printf("sweep: list overdue in-use orders: %v", err)
	}
	for i := range overdue {
		if _, err := co.apply(ctx, &overdue[i], TriggerCheckOut, ""); err != nil {
			log.Printf("sweep: complete order %s: %v", overdue[i].OrderNo, err)
		}
	}
	return locksRemoved, ordersTimedOut
}

// Run executes ExpireStale on the configured interval until ctx is
// cancelled.  One pass runs immediately so a restart clears stale
// state without waiting a full period.
func (co *Coordinator) Run(ctx context.Context) {
	t := time.NewTicker(co.cfg.SweepInterval)
	defer t.Stop()
	co.sweepOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			co.sweepOnce(ctx)
		}
	}
}

func (co *Coordinator) sweepOnce(ctx context.Context) {
	locks, orders := co.ExpireStale(ctx)
	if locks > 0 || orders > 0 {
		log.Printf("sweep: removed %d expired locks, timed out %d orders", locks, orders)
	}
}

// fire loads the order and applies the trigger without an ownership
// check; used for provider callbacks and staff operations.
func (co *Coordinator) fire(ctx context.Context, orderNo string, trigger Trigger, ref string) (*model.Order, error) {
	order, err := co.store.OrderByNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	return co.apply(ctx, order, trigger, ref)
}

func (co *Coordinator) ownedOrder(ctx context.Context, orderNo string, customerID uint64) (*model.Order, error) {
	order, err := co.store.OrderByNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	if order.UserID != customerID {
		return nil, ErrForbidden
	}
	return order, nil
}

// apply runs the state machine, persists the transition durably, then
// mirrors the effects into the in-memory index and lock manager.  The
// durable write happens first: if it fails nothing in memory changes,
// and if the process dies between the two the index is rebuilt from
// the table at the next start.
func (co *Coordinator) apply(ctx context.Context, order *model.Order, trigger Trigger, ref string) (*model.Order, error) {
	next, effects, err := Transition(order.Status, trigger)
	if err != nil {
		return nil, err
	}
	// The store clears the lock token column when the lock is released,
	// so grab it before the durable write.
	token := ""
	if order.LockToken != nil {
		token = *order.LockToken
	}
	if err := co.store.ApplyTransition(ctx, order, next, effects, ref); err != nil {
		return nil, err
	}
	co.applyMemory(order, effects, token)
	return order, nil
}

func (co *Coordinator) applyMemory(order *model.Order, effects []Effect, token string) {
	iv := Interval{Start: order.StartMin, End: order.EndMin}
	for _, eff := range effects {
		switch eff {
		case EffectCommitIndex:
			if err := co.index.Commit(order.SeatID, iv, order.OrderNo); err != nil {
				// The durable row committed, so this indicates the index
				// and table have diverged; surfaced loudly for operators.
				log.Printf("index: commit after durable write failed for order %s: %v", order.OrderNo, err)
			}
		case EffectReleaseIndex:
			co.index.Release(order.SeatID, iv, order.OrderNo)
		case EffectReleaseLock:
			if token != "" {
				co.locks.Release(token)
			}
		}
	}
}

// priceFor computes the order amount from an hourly rate and the
// booked duration, pro-rated by minute.
func priceFor(hourlyRateCents uint32, iv Interval) uint32 {
	return uint32(uint64(hourlyRateCents) * uint64(iv.Minutes()) / 60)
}

// IsClientError reports whether err belongs to the caller-fault class
// of the taxonomy, as opposed to a system failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrDenied) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrDeadlinePassed) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidInterval) ||
		errors.Is(err, ErrAmountMismatch) ||
		errors.Is(err, ErrForbidden)
}
