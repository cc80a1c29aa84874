package router

import (
	"github.com/labstack/echo/v4"

	"github.com/yihan-study/seat-booking/internal/handler"
	"github.com/yihan-study/seat-booking/internal/middleware"
)

// RegisterCustomer registers customer-scoped endpoints under /v1.  All routes
// require a valid JWT and the CUSTOMER role.  Customers can lock a seat for
// checkout, turn the lock into an order, pay via the provider (whose
// callback arrives on the payment routes), cancel, and check in and out.
func RegisterCustomer(e *echo.Echo, checkout *handler.CheckoutHandler, orders *handler.OrderHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("CUSTOMER"),
	)
	// Checkout locks.  A lock is a short exclusive hold on (seat, interval);
	// it expires on its own if the customer walks away.
	g.POST("/seats/:id/checkout", checkout.Start)
	g.DELETE("/checkout/:token", checkout.Release)
	g.POST("/checkout/:token/extend", checkout.Extend)

	// Orders.  Creation consumes a live checkout lock; the remaining
	// endpoints operate on the caller's own orders only.
	g.POST("/orders", orders.Create)
	g.GET("/my-orders", orders.ListMine)
	g.GET("/orders/:order_no", orders.Get)
	g.POST("/orders/:order_no/cancel", orders.Cancel)
	g.POST("/orders/:order_no/check-in", orders.CheckIn)
	g.POST("/orders/:order_no/check-out", orders.CheckOut)
}
