package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/yihan-study/seat-booking/internal/model"
)

// OrderRepo provides data access to the orders table.  Orders are
// created once, then mutated only through status transitions; rows are
// never deleted.  All timestamps are stored and compared in UTC.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo returns a new OrderRepo bound to the provided database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions
// that span repositories.
func (r *OrderRepo) DB() *sql.DB { return r.db }

const orderColumns = `id, order_no, user_id, store_id, seat_id, start_min, end_min,
       amount_cents, status, lock_token, payment_ref, refund_ref, pay_deadline,
       created_at, updated_at`

func scanOrder(row interface{ Scan(...interface{}) error }, o *model.Order) error {
	var lockToken, paymentRef, refundRef sql.NullString
	var status string
	if err := row.Scan(
		&o.ID, &o.OrderNo, &o.UserID, &o.StoreID, &o.SeatID, &o.StartMin, &o.EndMin,
		&o.AmountCents, &status, &lockToken, &paymentRef, &refundRef, &o.PayDeadline,
		&o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		return err
	}
	o.Status = model.OrderStatus(status)
	if lockToken.Valid {
		v := lockToken.String
		o.LockToken = &v
	}
	if paymentRef.Valid {
		v := paymentRef.String
		o.PaymentRef = &v
	}
	if refundRef.Valid {
		v := refundRef.String
		o.RefundRef = &v
	}
	return nil
}

// CreateTx inserts a new order within the provided transaction and
// populates the generated ID plus DB-assigned timestamps on the
// record.  The caller must commit or roll back the transaction.
func (r *OrderRepo) CreateTx(ctx context.Context, tx *sql.Tx, o *model.Order) error {
	const q = `INSERT INTO orders
	           (order_no, user_id, store_id, seat_id, start_min, end_min, amount_cents, status, lock_token, pay_deadline)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var lockToken interface{}
	if o.LockToken != nil {
		lockToken = *o.LockToken
	}
	result, err := tx.ExecContext(ctx, q,
		o.OrderNo, o.UserID, o.StoreID, o.SeatID, o.StartMin, o.EndMin,
		o.AmountCents, string(o.Status), lockToken, o.PayDeadline.UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	// Read the row back so defaults and timestamps are populated.
	const sel = `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`
	return scanOrder(tx.QueryRowContext(ctx, sel, o.ID), o)
}

// GetByOrderNo loads an order by its external order number.  Returns
// sql.ErrNoRows when no such order exists.
func (r *OrderRepo) GetByOrderNo(ctx context.Context, orderNo string) (*model.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE order_no = ?`
	var o model.Order
	if err := scanOrder(r.db.QueryRowContext(ctx, q, orderNo), &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// GetByOrderNoForUpdateTx loads an order inside the transaction with a
// row lock, so concurrent transitions on the same order serialize at
// the database.
func (r *OrderRepo) GetByOrderNoForUpdateTx(ctx context.Context, tx *sql.Tx, orderNo string) (*model.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE order_no = ? FOR UPDATE`
	var o model.Order
	if err := scanOrder(tx.QueryRowContext(ctx, q, orderNo), &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// UpdateStatusTx writes the order's status and reference columns
// within the provided transaction.  Passing clearLockToken removes the
// lock_token so a released checkout lock is not retained beyond its
// life.  Only the mutable columns are touched.
func (r *OrderRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, o *model.Order, clearLockToken bool) error {
	var lockToken interface{}
	if !clearLockToken && o.LockToken != nil {
		lockToken = *o.LockToken
	}
	var paymentRef, refundRef interface{}
	if o.PaymentRef != nil {
		paymentRef = *o.PaymentRef
	}
	if o.RefundRef != nil {
		refundRef = *o.RefundRef
	}
	const q = `UPDATE orders
	           SET status = ?, lock_token = ?, payment_ref = ?, refund_ref = ?, updated_at = UTC_TIMESTAMP()
	           WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, string(o.Status), lockToken, paymentRef, refundRef, o.ID)
	return err
}

// ExpiredPending returns all PENDING_PAYMENT orders whose payment
// deadline is at or before now.  Used by the maintenance sweep.
func (r *OrderRepo) ExpiredPending(ctx context.Context, now time.Time) ([]model.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders
	           WHERE status = ? AND pay_deadline <= ?`
	return r.queryOrders(ctx, q, string(model.StatusPendingPayment), now.UTC().Format("2006-01-02 15:04:05"))
}

// OverdueInUse returns IN_USE orders whose booked interval has fully
// elapsed by nowMin (minutes since epoch).
func (r *OrderRepo) OverdueInUse(ctx context.Context, nowMin int64) ([]model.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders
	           WHERE status = ? AND end_min <= ?`
	return r.queryOrders(ctx, q, string(model.StatusInUse), nowMin)
}

func (r *OrderRepo) queryOrders(ctx context.Context, q string, args ...interface{}) ([]model.Order, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Order
	for rows.Next() {
		var o model.Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// OrderDetail is an order joined with its store and seat names, for
// display to customers.
type OrderDetail struct {
	OrderNo     string    `json:"order_no"`
	StoreID     uint64    `json:"store_id"`
	StoreName   string    `json:"store_name"`
	SeatID      uint64    `json:"seat_id"`
	SeatNumber  string    `json:"seat_number"`
	StartTime   string    `json:"start_time"`
	EndTime     string    `json:"end_time"`
	AmountCents uint32    `json:"amount_cents"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListByUser returns all orders for the given user, newest first,
// joined with store and seat display fields.  Interval bounds are
// rendered as RFC3339 instants.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uint64) ([]OrderDetail, error) {
	const q = `SELECT o.order_no, o.store_id, st.name, o.seat_id, se.number,
	                  o.start_min, o.end_min, o.amount_cents, o.status, o.created_at
	           FROM orders o
	           JOIN stores st ON st.id = o.store_id
	           JOIN seats se ON se.id = o.seat_id
	           WHERE o.user_id = ?
	           ORDER BY o.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]OrderDetail, 0)
	for rows.Next() {
		var d OrderDetail
		var startMin, endMin int64
		if err := rows.Scan(
			&d.OrderNo, &d.StoreID, &d.StoreName, &d.SeatID, &d.SeatNumber,
			&startMin, &endMin, &d.AmountCents, &d.Status, &d.CreatedAt,
		); err != nil {
			return nil, err
		}
		d.StartTime = time.Unix(startMin*60, 0).UTC().Format(time.RFC3339)
		d.EndTime = time.Unix(endMin*60, 0).UTC().Format(time.RFC3339)
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}
