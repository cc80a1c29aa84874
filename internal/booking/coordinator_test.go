package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yihan-study/seat-booking/internal/model"
)

// memStore is an in-memory Store with the same transactional contract
// as the MySQL implementation: ApplyTransition either applies the
// status write and the occupancy effects together or changes nothing.
type memStore struct {
	mu            sync.Mutex
	orders        map[string]*model.Order
	occupancy     map[string]Occupancy // keyed by order number
	forceConflict bool                 // make the next occupancy commit fail
}

func newMemStore() *memStore {
	return &memStore{
		orders:    make(map[string]*model.Order),
		occupancy: make(map[string]Occupancy),
	}
}

func (s *memStore) CreateOrder(_ context.Context, o *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	s.orders[o.OrderNo] = &cp
	return nil
}

func (s *memStore) OrderByNo(_ context.Context, orderNo string) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderNo]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *memStore) ApplyTransition(_ context.Context, o *model.Order, next model.OrderStatus, effects []Effect, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.orders[o.OrderNo]
	if !ok {
		return ErrNotFound
	}
	for _, eff := range effects {
		if eff == EffectCommitIndex && s.forceConflict {
			return ErrConflict
		}
	}
	for _, eff := range effects {
		switch eff {
		case EffectCommitIndex:
			s.occupancy[o.OrderNo] = Occupancy{
				SeatID:   o.SeatID,
				Interval: Interval{Start: o.StartMin, End: o.EndMin},
				OrderNo:  o.OrderNo,
			}
		case EffectReleaseIndex:
			delete(s.occupancy, o.OrderNo)
		case EffectReleaseLock:
			stored.LockToken = nil
		}
	}
	stored.Status = next
	if ref != "" {
		switch next {
		case model.StatusPaid:
			stored.PaymentRef = &ref
		case model.StatusRefundSuccess, model.StatusRefundFailed:
			stored.RefundRef = &ref
		}
	}
	cp := *stored
	*o = cp
	return nil
}

func (s *memStore) ExpiredPendingOrders(_ context.Context, now time.Time) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Order
	for _, o := range s.orders {
		if o.Status == model.StatusPendingPayment && !o.PayDeadline.After(now) {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *memStore) OverdueInUseOrders(_ context.Context, nowMin int64) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Order
	for _, o := range s.orders {
		if o.Status == model.StatusInUse && o.EndMin <= nowMin {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *memStore) LoadOccupancy(_ context.Context) ([]Occupancy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Occupancy
	for _, oc := range s.occupancy {
		out = append(out, oc)
	}
	return out, nil
}

type memSeats map[uint64]SeatInfo

func (m memSeats) Seat(_ context.Context, seatID uint64) (SeatInfo, error) {
	info, ok := m[seatID]
	if !ok {
		return SeatInfo{}, ErrNotFound
	}
	return info, nil
}

type testCore struct {
	co    *Coordinator
	store *memStore
	locks *LockManager
	index *Index
	now   time.Time
}

func (tc *testCore) advance(d time.Duration) { tc.now = tc.now.Add(d) }

func newTestCore(t *testing.T) *testCore {
	t.Helper()
	idx := NewIndex()
	locks := NewLockManager(idx, DefaultLockTTL, nil)
	store := newMemStore()
	seats := memSeats{
		1: {SeatID: 1, StoreID: 1, Number: "A1", HourlyRateCents: 6000, CancelDeadline: 2 * time.Hour},
		2: {SeatID: 2, StoreID: 1, Number: "A2", HourlyRateCents: 6000, CancelDeadline: 2 * time.Hour},
	}
	co := NewCoordinator(idx, locks, store, seats, Config{}, nil)
	tc := &testCore{co: co, store: store, locks: locks, index: idx}
	tc.now = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	co.clock = func() time.Time { return tc.now }
	return tc
}

// at builds an interval from clock offsets relative to the test epoch.
func (tc *testCore) at(startOffset, endOffset time.Duration) Interval {
	base := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	return NewInterval(base.Add(startOffset), base.Add(endOffset))
}

// TestBookingFlow walks the full happy-path scenario: customer A locks
// seat S for [10:00, 11:00), customer B is denied an overlapping slot,
// A's payment commits the interval and releases the lock, and B can
// then book the adjacent [11:00, 12:00).
func TestBookingFlow(t *testing.T) {
	tc := newTestCore(t)
	ctx := context.Background()
	slot := tc.at(time.Hour, 2*time.Hour) // [10:00, 11:00)

	ok, err := tc.co.CheckAvailability(ctx, 1, slot)
	if err != nil || !ok {
		t.Fatalf("availability before lock = %v, %v; want true", ok, err)
	}

	lock, err := tc.co.StartCheckout(ctx, 1, slot, 100)
	if err != nil {
		t.Fatalf("A StartCheckout: %v", err)
	}
	if ok, _ := tc.co.CheckAvailability(ctx, 1, slot); ok {
		t.Fatal("seat still available while locked")
	}
	// B overlaps [10:30, 11:30) and must be denied
	if _, err := tc.co.StartCheckout(ctx, 1, tc.at(90*time.Minute, 150*time.Minute), 200); !errors.Is(err, ErrDenied) {
		t.Fatalf("B overlapping checkout = %v, want ErrDenied", err)
	}

	order, err := tc.co.CreateReservation(ctx, lock.Token, 100, 0)
	if err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}
	if order.Status != model.StatusPendingPayment {
		t.Fatalf("new order status = %s", order.Status)
	}
	if order.AmountCents != 6000 {
		t.Fatalf("amount = %d, want 6000", order.AmountCents)
	}

	paid, err := tc.co.ConfirmPayment(ctx, order.OrderNo, "txn-123")
	if err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	if paid.Status != model.StatusPaid {
		t.Fatalf("status after payment = %s", paid.Status)
	}
	if paid.PaymentRef == nil || *paid.PaymentRef != "txn-123" {
		t.Fatalf("payment ref = %v", paid.PaymentRef)
	}
	// the occupancy is now in the index and the lock is gone
	if ok, _ := tc.co.CheckAvailability(ctx, 1, slot); ok {
		t.Fatal("seat available after payment committed the interval")
	}
	if _, err := tc.locks.Get(lock.Token); !errors.Is(err, ErrNotFound) {
		t.Fatalf("lock survived payment: %v", err)
	}

	// B's adjacent slot [11:00, 12:00) succeeds now
	if _, err := tc.co.StartCheckout(ctx, 1, tc.at(2*time.Hour, 3*time.Hour), 200); err != nil {
		t.Fatalf("B adjacent checkout: %v", err)
	}
}

func TestConfirmPaymentAfterTimeoutIsInvalid(t *testing.T) {
	tc := newTestCore(t)
	ctx := context.Background()
	lock, err := tc.co.StartCheckout(ctx, 1, tc.at(time.Hour, 2*time.Hour), 100)
	if err != nil {
		t.Fatalf("StartCheckout: %v", err)
	}
	order, err := tc.co.CreateReservation(ctx, lock.Token, 100, 0)
	if err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}

	// no payment arrives; the sweep fires past the deadline
	tc.advance(16 * time.Minute)
	_, timedOut := tc.co.ExpireStale(ctx)
	if timedOut != 1 {
		t.Fatalf("sweep timed out %d orders, want 1", timedOut)
	}
	got, err := tc.store.OrderByNo(ctx, order.OrderNo)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if got.Status != model.StatusCancelled {
		t.Fatalf("status after sweep = %s, want CANCELLED", got.Status)
	}
	// the slot is bookable again
	if ok, _ := tc.co.CheckAvailability(ctx, 1, tc.at(time.Hour, 2*time.Hour)); !ok {
		t.Fatal("slot still blocked after auto-cancel")
	}

	// the payment provider's late success callback must not resurrect it
	if _, err := tc.co.ConfirmPayment(ctx, order.OrderNo, "txn-late"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("late ConfirmPayment = %v, want ErrInvalidTransition", err)
	}
}

func TestCancelReleasesOccupancy(t *testing.T) {
	tc := newTestCore(t)
	ctx := context.Background()
	slot := tc.at(24*time.Hour, 25*time.Hour) // tomorrow, well before any deadline
	lock, err := tc.co.StartCheckout(ctx, 1, slot, 100)
	if err != nil {
		t.Fatalf("StartCheckout: %v", err)
	}
	order, err := tc.co.CreateReservation(ctx, lock.Token, 100, 0)
	if err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}
	if _, err := tc.co.ConfirmPayment(ctx, order.OrderNo, "txn-1"); err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}

	cancelled, err := tc.co.Cancel(ctx, order.OrderNo, 100)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != model.StatusRefundProcessing {
		t.Fatalf("status after cancel = %s, want REFUND_PROCESSING", cancelled.Status)
	}
	if ok, _ := tc.co.CheckAvailability(ctx, 1, slot); !ok {
		t.Fatal("slot still blocked after cancel released the occupancy")
	}

	// second cancel is a no-op, not an error
	again, err := tc.co.Cancel(ctx, order.OrderNo, 100)
	if err != nil {
		t.Fatalf("second Cancel: %v", err)
	}
	if again.Status != model.StatusRefundProcessing {
		t.Fatalf("second cancel changed status to %s", again.Status)
	}

	// provider settles the refund
	done, err := tc.co.MarkRefundResult(ctx, order.OrderNo, true, "re-9")
	if err != nil {
		t.Fatalf("MarkRefundResult: %v", err)
	}
	if done.Status != model.StatusRefundSuccess {
		t.Fatalf("status after refund = %s", done.Status)
	}
}

func TestCancelPastDeadline(t *testing.T) {
	tc := newTestCore(t)
	ctx := context.Background()
	slot := tc.at(time.Hour, 2*time.Hour) // starts at 10:00; deadline is 2h before
	lock, err := tc.co.StartCheckout(ctx, 1, slot, 100)
	if err != nil {
		t.Fatalf("StartCheckout: %v", err)
	}
	order, err := tc.co.CreateReservation(ctx, lock.Token, 100, 0)
	if err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}
	if _, err := tc.co.ConfirmPayment(ctx, order.OrderNo, "txn-1"); err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}

	// now (09:00) is already past 08:00, the refund cutoff
	if _, err := tc.co.Cancel(ctx, order.OrderNo, 100); !errors.Is(err, ErrDeadlinePassed) {
		t.Fatalf("Cancel past deadline = %v, want ErrDeadlinePassed", err)
	}

	// the operator no-refund path still works
	forced, err := tc.co.CancelNoRefund(ctx, order.OrderNo)
	if err != nil {
		t.Fatalf("CancelNoRefund: %v", err)
	}
	if forced.Status != model.StatusCancelled {
		t.Fatalf("status after operator cancel = %s", forced.Status)
	}
	if ok, _ := tc.co.CheckAvailability(ctx, 1, slot); !ok {
		t.Fatal("operator cancel did not release the occupancy")
	}
}

func TestConfirmPaymentConflictLeavesOrderPending(t *testing.T) {
	tc := newTestCore(t)
	ctx := context.Background()
	lock, err := tc.co.StartCheckout(ctx, 1, tc.at(time.Hour, 2*time.Hour), 100)
	if err != nil {
		t.Fatalf("StartCheckout: %v", err)
	}
	order, err := tc.co.CreateReservation(ctx, lock.Token, 100, 0)
	if err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}

	tc.store.forceConflict = true
	if _, err := tc.co.ConfirmPayment(ctx, order.OrderNo, "txn-1"); !errors.Is(err, ErrConflict) {
		t.Fatalf("ConfirmPayment with conflict = %v, want ErrConflict", err)
	}
	got, err := tc.store.OrderByNo(ctx, order.OrderNo)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if got.Status != model.StatusPendingPayment {
		t.Fatalf("status after aborted payment = %s, want PENDING_PAYMENT", got.Status)
	}

	// reconciliation retries once the conflict is resolved
	tc.store.forceConflict = false
	if _, err := tc.co.ConfirmPayment(ctx, order.OrderNo, "txn-1"); err != nil {
		t.Fatalf("retried ConfirmPayment: %v", err)
	}
}

func TestCreateReservationValidation(t *testing.T) {
	tc := newTestCore(t)
	ctx := context.Background()
	lock, err := tc.co.StartCheckout(ctx, 1, tc.at(time.Hour, 3*time.Hour), 100)
	if err != nil {
		t.Fatalf("StartCheckout: %v", err)
	}

	// wrong holder
	if _, err := tc.co.CreateReservation(ctx, lock.Token, 200, 0); !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign CreateReservation = %v, want ErrForbidden", err)
	}
	// disagreeing client amount (two hours at 6000 = 12000)
	if _, err := tc.co.CreateReservation(ctx, lock.Token, 100, 9999); !errors.Is(err, ErrAmountMismatch) {
		t.Fatalf("mismatched amount = %v, want ErrAmountMismatch", err)
	}
	// matching client amount is accepted
	order, err := tc.co.CreateReservation(ctx, lock.Token, 100, 12000)
	if err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}
	if order.AmountCents != 12000 {
		t.Fatalf("amount = %d, want 12000", order.AmountCents)
	}
	// unknown token
	if _, err := tc.co.CreateReservation(ctx, "bogus", 100, 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown token = %v, want ErrNotFound", err)
	}
}

func TestCheckInCheckOutLifecycle(t *testing.T) {
	tc := newTestCore(t)
	ctx := context.Background()
	slot := tc.at(24*time.Hour, 25*time.Hour)
	lock, err := tc.co.StartCheckout(ctx, 1, slot, 100)
	if err != nil {
		t.Fatalf("StartCheckout: %v", err)
	}
	order, err := tc.co.CreateReservation(ctx, lock.Token, 100, 0)
	if err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}
	if _, err := tc.co.ConfirmPayment(ctx, order.OrderNo, "txn-1"); err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}

	// check-in requires the store's confirmation first
	if _, err := tc.co.CheckIn(ctx, order.OrderNo, 100); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("CheckIn before confirm = %v, want ErrInvalidTransition", err)
	}
	if _, err := tc.co.ConfirmByStore(ctx, order.OrderNo); err != nil {
		t.Fatalf("ConfirmByStore: %v", err)
	}
	// only the owner may check in
	if _, err := tc.co.CheckIn(ctx, order.OrderNo, 200); !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign CheckIn = %v, want ErrForbidden", err)
	}
	if _, err := tc.co.CheckIn(ctx, order.OrderNo, 100); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	done, err := tc.co.CheckOut(ctx, order.OrderNo, 100)
	if err != nil {
		t.Fatalf("CheckOut: %v", err)
	}
	if done.Status != model.StatusCompleted {
		t.Fatalf("status after checkout = %s", done.Status)
	}
}

func TestSweepCompletesElapsedInUseOrders(t *testing.T) {
	tc := newTestCore(t)
	ctx := context.Background()
	slot := tc.at(time.Hour, 2*time.Hour)
	lock, err := tc.co.StartCheckout(ctx, 1, slot, 100)
	if err != nil {
		t.Fatalf("StartCheckout: %v", err)
	}
	order, err := tc.co.CreateReservation(ctx, lock.Token, 100, 0)
	if err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}
	if _, err := tc.co.ConfirmPayment(ctx, order.OrderNo, "txn-1"); err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	if _, err := tc.co.ConfirmByStore(ctx, order.OrderNo); err != nil {
		t.Fatalf("ConfirmByStore: %v", err)
	}
	if _, err := tc.co.CheckIn(ctx, order.OrderNo, 100); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}

	// the customer never checks out; the interval elapses
	tc.advance(3 * time.Hour)
	tc.co.ExpireStale(ctx)
	got, err := tc.store.OrderByNo(ctx, order.OrderNo)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if got.Status != model.StatusCompleted {
		t.Fatalf("status after elapsed sweep = %s, want COMPLETED", got.Status)
	}
}

func TestHydrateRestoresIndex(t *testing.T) {
	tc := newTestCore(t)
	ctx := context.Background()
	slot := tc.at(time.Hour, 2*time.Hour)
	lock, err := tc.co.StartCheckout(ctx, 1, slot, 100)
	if err != nil {
		t.Fatalf("StartCheckout: %v", err)
	}
	order, err := tc.co.CreateReservation(ctx, lock.Token, 100, 0)
	if err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}
	if _, err := tc.co.ConfirmPayment(ctx, order.OrderNo, "txn-1"); err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}

	// simulate a restart: fresh index and lock manager, same store
	idx := NewIndex()
	locks := NewLockManager(idx, DefaultLockTTL, nil)
	co := NewCoordinator(idx, locks, tc.store, memSeats{
		1: {SeatID: 1, StoreID: 1, Number: "A1", HourlyRateCents: 6000, CancelDeadline: 2 * time.Hour},
	}, Config{}, nil)
	co.clock = func() time.Time { return tc.now }
	if err := co.Hydrate(ctx); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	if ok, _ := co.CheckAvailability(ctx, 1, slot); ok {
		t.Fatal("confirmed occupancy lost across restart")
	}
}
