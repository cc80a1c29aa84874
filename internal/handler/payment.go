package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/yihan-study/seat-booking/internal/booking"
	"github.com/yihan-study/seat-booking/internal/queue"
	queue_publisher "github.com/yihan-study/seat-booking/internal/service"
)

// PaymentHandler receives the asynchronous callbacks from the payment
// provider. These routes are authenticated by a shared callback secret
// at the middleware layer, not by customer JWTs, because the provider
// calls them server-to-server.
type PaymentHandler struct {
	Booking *booking.Coordinator
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(coord *booking.Coordinator) *PaymentHandler {
	if coord == nil {
		panic("nil coordinator passed to NewPaymentHandler")
	}
	return &PaymentHandler{Booking: coord}
}

// Callback handles POST /v1/payments/callback. A success callback
// confirms the order and commits its occupancy; callbacks for orders
// that were already auto-cancelled are rejected with 409 so the
// provider keeps the money visible for reconciliation. Duplicate
// callbacks for an already paid order are also 409; the provider
// treats any 2xx/4xx as final.
func (h *PaymentHandler) Callback(c echo.Context) error {
	var body struct {
		OrderNo        string `json:"order_no"`
		TransactionRef string `json:"transaction_ref"`
		Status         string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.OrderNo == "" || body.TransactionRef == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "order_no and transaction_ref are required"})
	}
	if body.Status != "SUCCESS" {
		// A failed payment leaves the order pending; the customer can
		// retry until the deadline and the sweep voids it after.
		return c.JSON(http.StatusOK, echo.Map{"result": "ignored"})
	}
	ctx := c.Request().Context()
	order, err := h.Booking.ConfirmPayment(ctx, body.OrderNo, body.TransactionRef)
	if err != nil {
		return bookingError(c, err)
	}
	// Event publishing is best-effort; the payment is already durable.
	ev := queue.OrderPaidEvent{
		OrderNo:     order.OrderNo,
		UserID:      order.UserID,
		StoreID:     order.StoreID,
		SeatID:      order.SeatID,
		StartsAt:    time.Unix(order.StartMin*60, 0).UTC().Format(time.RFC3339),
		EndsAt:      time.Unix(order.EndMin*60, 0).UTC().Format(time.RFC3339),
		AmountCents: order.AmountCents,
		PaymentRef:  body.TransactionRef,
		PaidAt:      time.Now().UTC().Format(time.RFC3339),
	}
	if err := queue_publisher.PublishOrderPaid(ctx, ev); err != nil {
		log.Printf("payment: publish order.paid failed for %s: %v", order.OrderNo, err)
	}
	return c.JSON(http.StatusOK, orderJSON(order))
}

// RefundCallback handles POST /v1/payments/refund-callback, settling
// an order that is waiting in REFUND_PROCESSING.
func (h *PaymentHandler) RefundCallback(c echo.Context) error {
	var body struct {
		OrderNo   string `json:"order_no"`
		RefundRef string `json:"refund_ref"`
		Success   bool   `json:"success"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.OrderNo == "" || body.RefundRef == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "order_no and refund_ref are required"})
	}
	ctx := c.Request().Context()
	order, err := h.Booking.MarkRefundResult(ctx, body.OrderNo, body.Success, body.RefundRef)
	if err != nil {
		return bookingError(c, err)
	}
	ev := queue.OrderRefundedEvent{
		OrderNo:     order.OrderNo,
		UserID:      order.UserID,
		AmountCents: order.AmountCents,
		RefundRef:   body.RefundRef,
		Success:     body.Success,
		SettledAt:   time.Now().UTC().Format(time.RFC3339),
	}
	if err := queue_publisher.PublishOrderRefunded(ctx, ev); err != nil {
		log.Printf("payment: publish order.refunded failed for %s: %v", order.OrderNo, err)
	}
	return c.JSON(http.StatusOK, orderJSON(order))
}
