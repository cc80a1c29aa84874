package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/yihan-study/seat-booking/internal/booking"
	"github.com/yihan-study/seat-booking/internal/repository"
)

// PublicHandler serves the unauthenticated browse endpoints: store
// listings, seat listings and availability probes. These are the
// read-heavy routes the response cache sits in front of.
type PublicHandler struct {
	StoreRepo *repository.StoreRepo
	SeatRepo  *repository.SeatRepo
	Booking   *booking.Coordinator
}

// NewPublicHandler constructs a PublicHandler. All dependencies must be non-nil.
func NewPublicHandler(storeRepo *repository.StoreRepo, seatRepo *repository.SeatRepo, coord *booking.Coordinator) *PublicHandler {
	if storeRepo == nil || seatRepo == nil || coord == nil {
		panic("nil dependency passed to NewPublicHandler")
	}
	return &PublicHandler{StoreRepo: storeRepo, SeatRepo: seatRepo, Booking: coord}
}

// ListStores handles GET /v1/stores and returns all stores.
func (h *PublicHandler) ListStores(c echo.Context) error {
	stores, err := h.StoreRepo.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	items := make([]echo.Map, 0, len(stores))
	for _, s := range stores {
		items = append(items, echo.Map{
			"id":                    s.ID,
			"name":                  s.Name,
			"description":           s.Description,
			"address":               s.Address,
			"phone":                 s.Phone,
			"total_seats":           s.TotalSeats,
			"cancel_deadline_hours": s.CancelDeadlineHours,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"stores": items})
}

// GetStore handles GET /v1/stores/:id.
func (h *PublicHandler) GetStore(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid store id"})
	}
	s, err := h.StoreRepo.GetByID(c.Request().Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "store not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":                    s.ID,
		"name":                  s.Name,
		"description":           s.Description,
		"address":               s.Address,
		"phone":                 s.Phone,
		"total_seats":           s.TotalSeats,
		"cancel_deadline_hours": s.CancelDeadlineHours,
	})
}

// ListStoreSeats handles GET /v1/stores/:id/seats and returns the
// store's active seats.
func (h *PublicHandler) ListStoreSeats(c echo.Context) error {
	storeID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid store id"})
	}
	ctx := c.Request().Context()
	if _, err := h.StoreRepo.GetByID(ctx, storeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "store not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	seats, err := h.SeatRepo.ListByStore(ctx, storeID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	items := make([]echo.Map, 0, len(seats))
	for _, s := range seats {
		items = append(items, echo.Map{
			"id":                s.ID,
			"number":            s.Number,
			"seat_type":         s.SeatType,
			"hourly_rate_cents": s.HourlyRateCents,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"store_id": storeID, "seats": items})
}

// SeatAvailability handles GET /v1/seats/:id/availability. The
// start_time and end_time query parameters are RFC3339 instants; the
// response says whether the seat is free for the whole interval and
// lists the confirmed bookings that overlap it.
func (h *PublicHandler) SeatAvailability(c echo.Context) error {
	seatID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat id"})
	}
	iv, err := parseInterval(c.QueryParam("start_time"), c.QueryParam("end_time"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	available, err := h.Booking.CheckAvailability(c.Request().Context(), seatID, iv)
	if err != nil {
		return bookingError(c, err)
	}
	busy := h.Booking.Index().QueryOverlap(seatID, iv)
	intervals := make([]echo.Map, 0, len(busy))
	for _, oc := range busy {
		intervals = append(intervals, echo.Map{
			"start_time": oc.Interval.StartTime().Format(time.RFC3339),
			"end_time":   oc.Interval.EndTime().Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"seat_id":   seatID,
		"available": available,
		"busy":      intervals,
	})
}
