package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/yihan-study/seat-booking/internal/booking"
	"github.com/yihan-study/seat-booking/internal/model"
)

// SeatRepo provides read access to the seats table and implements the
// coordinator's seat lookup.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo returns a new SeatRepo bound to the provided database.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

const seatColumns = `id, store_id, number, seat_type, hourly_rate_cents, is_active, created_at, updated_at`

func scanSeat(row interface{ Scan(...interface{}) error }, s *model.Seat) error {
	return row.Scan(
		&s.ID, &s.StoreID, &s.Number, &s.SeatType, &s.HourlyRateCents,
		&s.IsActive, &s.CreatedAt, &s.UpdatedAt,
	)
}

// ListByStore returns all active seats in a store, ordered by number.
func (r *SeatRepo) ListByStore(ctx context.Context, storeID uint64) ([]model.Seat, error) {
	const q = `SELECT ` + seatColumns + ` FROM seats WHERE store_id = ? AND is_active = 1 ORDER BY number`
	rows, err := r.db.QueryContext(ctx, q, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seats := make([]model.Seat, 0)
	for rows.Next() {
		var s model.Seat
		if err := scanSeat(rows, &s); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return seats, nil
}

// GetByID loads a single seat.  Returns sql.ErrNoRows when absent.
func (r *SeatRepo) GetByID(ctx context.Context, id uint64) (*model.Seat, error) {
	const q = `SELECT ` + seatColumns + ` FROM seats WHERE id = ?`
	var s model.Seat
	if err := scanSeat(r.db.QueryRowContext(ctx, q, id), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Seat returns the booking view of a seat, joined with its store's
// cancellation policy.  Inactive seats are reported as not found so
// they cannot be checked out.
func (r *SeatRepo) Seat(ctx context.Context, seatID uint64) (booking.SeatInfo, error) {
	const q = `SELECT s.id, s.store_id, s.number, s.hourly_rate_cents, st.cancel_deadline_hours
	           FROM seats s
	           JOIN stores st ON st.id = s.store_id
	           WHERE s.id = ? AND s.is_active = 1`
	var info booking.SeatInfo
	var deadlineHours uint32
	err := r.db.QueryRowContext(ctx, q, seatID).Scan(
		&info.SeatID, &info.StoreID, &info.Number, &info.HourlyRateCents, &deadlineHours,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return booking.SeatInfo{}, booking.ErrNotFound
	}
	if err != nil {
		return booking.SeatInfo{}, err
	}
	info.CancelDeadline = time.Duration(deadlineHours) * time.Hour
	return info, nil
}
