// Package queue defines message payloads exchanged over the message broker.
package queue

// OrderPaidEvent is published when a payment callback confirms an order.
// It contains enough information for downstream consumers to log, notify,
// or trigger analytics without querying the primary database.
type OrderPaidEvent struct {
	OrderNo     string `json:"order_no"`
	UserID      uint64 `json:"user_id"`
	StoreID     uint64 `json:"store_id"`
	SeatID      uint64 `json:"seat_id"`
	StartsAt    string `json:"starts_at"`
	EndsAt      string `json:"ends_at"`
	AmountCents uint32 `json:"amount_cents"`
	PaymentRef  string `json:"payment_ref"`
	PaidAt      string `json:"paid_at"`
}

// OrderRefundedEvent is published when the payment provider settles a
// refund, successfully or not.
type OrderRefundedEvent struct {
	OrderNo     string `json:"order_no"`
	UserID      uint64 `json:"user_id"`
	AmountCents uint32 `json:"amount_cents"`
	RefundRef   string `json:"refund_ref"`
	Success     bool   `json:"success"`
	SettledAt   string `json:"settled_at"`
}
