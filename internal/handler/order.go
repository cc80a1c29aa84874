package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/yihan-study/seat-booking/internal/booking"
	"github.com/yihan-study/seat-booking/internal/repository"
)

// OrderHandler serves the customer order endpoints. All state changes
// go through the booking coordinator so the order row, the occupancy
// index and the checkout locks stay consistent; the repository is used
// directly only for read-side listings.
type OrderHandler struct {
	Booking   *booking.Coordinator
	OrderRepo *repository.OrderRepo
}

// NewOrderHandler constructs an OrderHandler. All dependencies must be non-nil.
func NewOrderHandler(coord *booking.Coordinator, orderRepo *repository.OrderRepo) *OrderHandler {
	if coord == nil || orderRepo == nil {
		panic("nil dependency passed to NewOrderHandler")
	}
	return &OrderHandler{Booking: coord, OrderRepo: orderRepo}
}

// Create handles POST /v1/orders. The body carries the checkout lock
// token plus the amount the client was shown; the server recomputes
// the price and rejects a mismatch so a stale or tampered quote can
// never be charged.
func (h *OrderHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		LockToken   string `json:"lock_token"`
		AmountCents uint32 `json:"amount_cents"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.LockToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "lock_token is required"})
	}
	order, err := h.Booking.CreateReservation(c.Request().Context(), body.LockToken, userID, body.AmountCents)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusCreated, orderJSON(order))
}

// ListMine handles GET /v1/my-orders and returns the caller's orders,
// newest first.
func (h *OrderHandler) ListMine(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orders, err := h.OrderRepo.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": orders})
}

// Get handles GET /v1/orders/:order_no. Customers can only read their
// own orders; anything else is reported as not found.
func (h *OrderHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orderNo := c.Param("order_no")
	order, err := h.OrderRepo.GetByOrderNo(c.Request().Context(), orderNo)
	if errors.Is(err, sql.ErrNoRows) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if order.UserID != userID {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
	}
	return c.JSON(http.StatusOK, orderJSON(order))
}

// Cancel handles POST /v1/orders/:order_no/cancel. Before payment this
// simply voids the order; after payment it starts a refund, subject to
// the store's cancellation deadline. Cancelling an already cancelled
// order is a no-op success.
func (h *OrderHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	order, err := h.Booking.Cancel(c.Request().Context(), c.Param("order_no"), userID)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, orderJSON(order))
}

// CheckIn handles POST /v1/orders/:order_no/check-in, marking the
// start of actual seat usage.
func (h *OrderHandler) CheckIn(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	order, err := h.Booking.CheckIn(c.Request().Context(), c.Param("order_no"), userID)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, orderJSON(order))
}

// CheckOut handles POST /v1/orders/:order_no/check-out, completing the
// order when the customer leaves.
func (h *OrderHandler) CheckOut(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	order, err := h.Booking.CheckOut(c.Request().Context(), c.Param("order_no"), userID)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, orderJSON(order))
}
