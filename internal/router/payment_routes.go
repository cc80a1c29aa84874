package router

// This file registers the payment provider callback routes.  They are
// separate from the customer routes because the provider authenticates
// with a shared callback secret rather than a customer JWT.

import (
	"github.com/labstack/echo/v4"

	"github.com/yihan-study/seat-booking/internal/handler"
	"github.com/yihan-study/seat-booking/internal/middleware"
)

// RegisterPayment registers the provider-facing callback endpoints under
// /v1/payments.  Both routes verify the shared callback secret and are
// never exposed to browsers.
func RegisterPayment(e *echo.Echo, h *handler.PaymentHandler, callbackSecret string) {
	g := e.Group(
		"/v1/payments",
		middleware.CallbackAuth(callbackSecret),
	)
	// Settles a pending order after the provider collected the money
	g.POST("/callback", h.Callback)
	// Settles a refund that was started by a cancellation
	g.POST("/refund-callback", h.RefundCallback)
}
