package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/yihan-study/seat-booking/internal/booking"
	"github.com/yihan-study/seat-booking/internal/model"
)

// BookingStore wires the order and occupancy repositories together
// behind the coordinator's storage interface.  Every transition runs
// in a single database transaction so an order's status and the
// occupancy rows it implies can never disagree.
type BookingStore struct {
	db        *sql.DB
	orders    *OrderRepo
	occupancy *OccupancyRepo
}

// NewBookingStore returns a BookingStore over the given repositories.
func NewBookingStore(db *sql.DB, orders *OrderRepo, occupancy *OccupancyRepo) *BookingStore {
	return &BookingStore{db: db, orders: orders, occupancy: occupancy}
}

// CreateOrder persists a new order and populates its generated fields.
func (s *BookingStore) CreateOrder(ctx context.Context, o *model.Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := s.orders.CreateTx(ctx, tx, o); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// OrderByNo loads an order by its external order number.
func (s *BookingStore) OrderByNo(ctx context.Context, orderNo string) (*model.Order, error) {
	o, err := s.orders.GetByOrderNo(ctx, orderNo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.ErrNotFound
	}
	return o, err
}

// ApplyTransition writes the order's next status and its index
// effects in one transaction.  The order row is re-read with a row
// lock first, so two racing transitions on the same order serialize
// and the loser sees the winner's status.  A conflicting occupancy
// insert rolls everything back and returns booking.ErrConflict with
// the order left untouched.
func (s *BookingStore) ApplyTransition(ctx context.Context, o *model.Order, next model.OrderStatus, effects []booking.Effect, ref string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	current, err := s.orders.GetByOrderNoForUpdateTx(ctx, tx, o.OrderNo)
	if errors.Is(err, sql.ErrNoRows) {
		return booking.ErrNotFound
	}
	if err != nil {
		return err
	}
	if current.Status != o.Status {
		// Someone else transitioned this order first.  Re-derive the
		// step from the stored status so the state machine decides.
		return booking.ErrInvalidTransition
	}

	updated := *current
	updated.Status = next
	if ref != "" {
		switch next {
		case model.StatusPaid:
			updated.PaymentRef = &ref
		case model.StatusRefundSuccess, model.StatusRefundFailed:
			updated.RefundRef = &ref
		}
	}

	clearLockToken := false
	for _, eff := range effects {
		switch eff {
		case booking.EffectCommitIndex:
			iv := booking.Interval{Start: updated.StartMin, End: updated.EndMin}
			if err := s.occupancy.InsertTx(ctx, tx, updated.SeatID, iv, updated.OrderNo); err != nil {
				return err
			}
			clearLockToken = true
		case booking.EffectReleaseIndex:
			if err := s.occupancy.DeleteTx(ctx, tx, updated.OrderNo); err != nil {
				return err
			}
		case booking.EffectReleaseLock:
			clearLockToken = true
		}
	}
	if clearLockToken {
		updated.LockToken = nil
	}

	if err := s.orders.UpdateStatusTx(ctx, tx, &updated, clearLockToken); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	updated.UpdatedAt = time.Now().UTC()
	*o = updated
	return nil
}

// ExpiredPendingOrders lists unpaid orders past their deadline.
func (s *BookingStore) ExpiredPendingOrders(ctx context.Context, now time.Time) ([]model.Order, error) {
	return s.orders.ExpiredPending(ctx, now)
}

// OverdueInUseOrders lists in-use orders whose interval has elapsed.
func (s *BookingStore) OverdueInUseOrders(ctx context.Context, nowMin int64) ([]model.Order, error) {
	return s.orders.OverdueInUse(ctx, nowMin)
}

// LoadOccupancy returns every confirmed occupancy row.
func (s *BookingStore) LoadOccupancy(ctx context.Context) ([]booking.Occupancy, error) {
	return s.occupancy.LoadAll(ctx)
}
