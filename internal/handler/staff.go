package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/yihan-study/seat-booking/internal/booking"
)

// StaffHandler exposes the store-side order operations. Routes using
// it sit behind the STAFF role middleware.
type StaffHandler struct {
	Booking *booking.Coordinator
}

// NewStaffHandler constructs a StaffHandler.
func NewStaffHandler(coord *booking.Coordinator) *StaffHandler {
	if coord == nil {
		panic("nil coordinator passed to NewStaffHandler")
	}
	return &StaffHandler{Booking: coord}
}

// Confirm handles POST /v1/staff/orders/:order_no/confirm. Staff
// acknowledge a paid order, typically when preparing the seat.
func (h *StaffHandler) Confirm(c echo.Context) error {
	order, err := h.Booking.ConfirmByStore(c.Request().Context(), c.Param("order_no"))
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, orderJSON(order))
}

// Cancel handles POST /v1/staff/orders/:order_no/cancel. This is the
// operator override: it voids a paid or confirmed order without
// starting a refund, for cases settled outside the system.
func (h *StaffHandler) Cancel(c echo.Context) error {
	order, err := h.Booking.CancelNoRefund(c.Request().Context(), c.Param("order_no"))
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, orderJSON(order))
}
