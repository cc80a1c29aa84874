package handler // handler defines http handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/yihan-study/seat-booking/internal/booking"
	"github.com/yihan-study/seat-booking/internal/model"
)

// getUserID extracts the user_id from echo.Context and converts it to uint64
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// parseID parses a numeric path parameter; zero counts as invalid.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// parseInterval builds a booking interval from two RFC3339 instants.
func parseInterval(startRaw, endRaw string) (booking.Interval, error) {
	start, err := time.Parse(time.RFC3339, startRaw)
	if err != nil {
		return booking.Interval{}, errors.New("start_time must be RFC3339")
	}
	end, err := time.Parse(time.RFC3339, endRaw)
	if err != nil {
		return booking.Interval{}, errors.New("end_time must be RFC3339")
	}
	iv := booking.NewInterval(start, end)
	if !iv.Valid() {
		return booking.Interval{}, errors.New("end_time must be after start_time")
	}
	return iv, nil
}

// bookingError translates the booking error taxonomy into an HTTP
// response. Unknown errors become a 500 without leaking internals.
func bookingError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, booking.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, booking.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, booking.ErrDenied):
		return c.JSON(http.StatusConflict, echo.Map{"error": "seat is held or occupied for this interval"})
	case errors.Is(err, booking.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "interval conflicts with a confirmed booking"})
	case errors.Is(err, booking.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": "order state does not allow this operation"})
	case errors.Is(err, booking.ErrDeadlinePassed):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "cancellation deadline has passed"})
	case errors.Is(err, booking.ErrInvalidInterval):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid interval"})
	case errors.Is(err, booking.ErrAmountMismatch):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount does not match the server-side price"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

// orderJSON is the customer-facing rendering of an order. Interval
// bounds are rendered as RFC3339 instants; internal IDs and the lock
// token stay private.
func orderJSON(o *model.Order) echo.Map {
	return echo.Map{
		"order_no":     o.OrderNo,
		"store_id":     o.StoreID,
		"seat_id":      o.SeatID,
		"start_time":   time.Unix(o.StartMin*60, 0).UTC().Format(time.RFC3339),
		"end_time":     time.Unix(o.EndMin*60, 0).UTC().Format(time.RFC3339),
		"amount_cents": o.AmountCents,
		"status":       string(o.Status),
		"pay_deadline": o.PayDeadline.UTC().Format(time.RFC3339),
		"created_at":   o.CreatedAt.UTC().Format(time.RFC3339),
	}
}
