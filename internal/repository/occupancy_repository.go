package repository

import (
	"context"
	"database/sql"

	"github.com/yihan-study/seat-booking/internal/booking"
)

// OccupancyRepo persists confirmed seat occupancy intervals.  The
// in-memory interval index is the fast path; this table is the durable
// truth it is rebuilt from after a restart.
type OccupancyRepo struct {
	db *sql.DB
}

// NewOccupancyRepo returns a new OccupancyRepo bound to the provided database.
func NewOccupancyRepo(db *sql.DB) *OccupancyRepo { return &OccupancyRepo{db: db} }

// InsertTx records an occupancy for the seat within the transaction.
// It re-checks overlap under a row lock before inserting; a racing
// insert for an overlapping interval yields booking.ErrConflict so the
// caller can roll back the whole transition.
func (r *OccupancyRepo) InsertTx(ctx context.Context, tx *sql.Tx, seatID uint64, iv booking.Interval, orderNo string) error {
	const check = `SELECT COUNT(*) FROM seat_occupancy
	               WHERE seat_id = ? AND start_min < ? AND end_min > ?
	               FOR UPDATE`
	var n int
	if err := tx.QueryRowContext(ctx, check, seatID, iv.End, iv.Start).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return booking.ErrConflict
	}
	const ins = `INSERT INTO seat_occupancy (seat_id, start_min, end_min, order_no)
	             VALUES (?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, ins, seatID, iv.Start, iv.End, orderNo)
	return err
}

// DeleteTx removes the occupancy owned by the given order.  Deleting a
// row that is already gone is not an error; release is idempotent.
func (r *OccupancyRepo) DeleteTx(ctx context.Context, tx *sql.Tx, orderNo string) error {
	const q = `DELETE FROM seat_occupancy WHERE order_no = ?`
	_, err := tx.ExecContext(ctx, q, orderNo)
	return err
}

// LoadAll streams every stored occupancy, used to hydrate the interval
// index at startup.
func (r *OccupancyRepo) LoadAll(ctx context.Context) ([]booking.Occupancy, error) {
	const q = `SELECT seat_id, start_min, end_min, order_no FROM seat_occupancy`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []booking.Occupancy
	for rows.Next() {
		var oc booking.Occupancy
		if err := rows.Scan(&oc.SeatID, &oc.Interval.Start, &oc.Interval.End, &oc.OrderNo); err != nil {
			return nil, err
		}
		out = append(out, oc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
