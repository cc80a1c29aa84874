package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/yihan-study/seat-booking/internal/booking"
)

// CheckoutHandler owns the short-lived checkout lock endpoints. A lock
// gives one customer an exclusive window to turn a (seat, interval)
// pair into an order; it is not a booking and disappears on expiry.
type CheckoutHandler struct {
	Booking *booking.Coordinator
}

// NewCheckoutHandler constructs a CheckoutHandler.
func NewCheckoutHandler(coord *booking.Coordinator) *CheckoutHandler {
	if coord == nil {
		panic("nil coordinator passed to NewCheckoutHandler")
	}
	return &CheckoutHandler{Booking: coord}
}

func lockJSON(l booking.Lock) echo.Map {
	return echo.Map{
		"lock_token": l.Token,
		"seat_id":    l.SeatID,
		"start_time": l.Interval.StartTime().Format(time.RFC3339),
		"end_time":   l.Interval.EndTime().Format(time.RFC3339),
		"expires_at": l.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

// Start handles POST /v1/seats/:id/checkout. The body carries the
// requested interval; on success the customer receives a lock token to
// present when creating the order. A competing hold or confirmed
// booking yields 409.
func (h *CheckoutHandler) Start(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	seatID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat id"})
	}
	var body struct {
		StartTime string `json:"start_time"`
		EndTime   string `json:"end_time"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	iv, err := parseInterval(body.StartTime, body.EndTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	lock, err := h.Booking.StartCheckout(c.Request().Context(), seatID, iv, userID)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusCreated, lockJSON(*lock))
}

// Release handles DELETE /v1/checkout/:token. Only the holder may
// abandon their lock; releasing a lock that already expired is a
// silent success.
func (h *CheckoutHandler) Release(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	token := c.Param("token")
	lock, err := h.Booking.Locks().Get(token)
	if err == nil && lock.HolderID != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	h.Booking.ReleaseCheckout(token)
	return c.NoContent(http.StatusNoContent)
}

// Extend handles POST /v1/checkout/:token/extend and resets the lock's
// TTL while the customer is still in the checkout flow.
func (h *CheckoutHandler) Extend(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	token := c.Param("token")
	current, err := h.Booking.Locks().Get(token)
	if err != nil {
		return bookingError(c, err)
	}
	if current.HolderID != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	lock, err := h.Booking.ExtendCheckout(token)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, lockJSON(lock))
}
