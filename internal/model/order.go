package model

import "time"

// OrderStatus enumerates the lifecycle states of an order.  Values are
// stored verbatim in the orders.status column.  Transitions between
// statuses are validated exclusively by the booking state machine;
// nothing else writes this field.
type OrderStatus string

const (
	StatusPendingPayment   OrderStatus = "PENDING_PAYMENT"   // created from a checkout lock, awaiting payment
	StatusPaid             OrderStatus = "PAID"              // payment confirmed, occupancy committed
	StatusConfirmed        OrderStatus = "CONFIRMED"         // store acknowledged the booking
	StatusInUse            OrderStatus = "IN_USE"            // customer checked in
	StatusCompleted        OrderStatus = "COMPLETED"         // customer checked out or interval elapsed
	StatusCancelled        OrderStatus = "CANCELLED"         // cancelled without a refund owed
	StatusRefundProcessing OrderStatus = "REFUND_PROCESSING" // refund requested, awaiting provider
	StatusRefundSuccess    OrderStatus = "REFUND_SUCCESS"    // provider confirmed the refund
	StatusRefundFailed     OrderStatus = "REFUND_FAILED"     // provider rejected the refund; retried externally
)

// Terminal reports whether the status admits no further transitions.
func (s OrderStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusRefundSuccess, StatusRefundFailed:
		return true
	}
	return false
}

// Order records a customer's booking of one seat for one time
// interval.  The interval is stored as half-open [StartMin, EndMin) in
// minutes since the Unix epoch, matching the representation used by
// the interval index.  Orders are never physically deleted; terminal
// statuses are retained for audit and history.
//
// Fields:
//  ID          – primary key identifier.
//  OrderNo     – externally visible, globally unique order number.
//  UserID      – customer who placed the order.
//  StoreID     – store the booked seat belongs to.
//  SeatID      – seat being booked.
//  StartMin    – interval start, minutes since epoch (inclusive).
//  EndMin      – interval end, minutes since epoch (exclusive).
//  AmountCents – total price in cents (hourly rate × duration).
//  Status      – current lifecycle status.
//  LockToken   – checkout lock backing a PENDING_PAYMENT order (nullable).
//  PaymentRef  – external payment transaction reference, if any.
//  RefundRef   – external refund transaction reference, if any.
//  PayDeadline – absolute deadline for the payment callback.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Order struct {
	ID          uint64      // orders.id
	OrderNo     string      // orders.order_no
	UserID      uint64      // orders.user_id
	StoreID     uint64      // orders.store_id
	SeatID      uint64      // orders.seat_id
	StartMin    int64       // orders.start_min
	EndMin      int64       // orders.end_min
	AmountCents uint32      // orders.amount_cents
	Status      OrderStatus // orders.status
	LockToken   *string     // orders.lock_token (nullable)
	PaymentRef  *string     // orders.payment_ref (nullable)
	RefundRef   *string     // orders.refund_ref (nullable)
	PayDeadline time.Time   // orders.pay_deadline
	CreatedAt   time.Time   // orders.created_at
	UpdatedAt   time.Time   // orders.updated_at
}
