package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/yihan-study/seat-booking/internal/handler"    // staff handlers
	"github.com/yihan-study/seat-booking/internal/middleware" // JWT + role middlewares
)

// RegisterStaff registers STAFF-scoped endpoints under /v1/staff.
// All routes require a valid JWT and STAFF role.
func RegisterStaff(e *echo.Echo, s *handler.StaffHandler, jwtSecret string) {
	// Attach middlewares at group construction time for clarity.
	g := e.Group(
		"/v1/staff",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("STAFF"),
	)

	// Store-side order operations.  Confirm acknowledges a paid order;
	// cancel is the no-refund operator override.
	g.POST("/orders/:order_no/confirm", s.Confirm)
	g.POST("/orders/:order_no/cancel", s.Cancel)
}
