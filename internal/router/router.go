package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/yihan-study/seat-booking/internal/handler" // import the handlers that implement business logic
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterPublic registers unauthenticated browse endpoints on the provided
// Echo instance.  The PublicHandler exposes sanitized store, seat and
// availability data for guests.  The optional middleware (typically the
// Redis response cache) is applied to every route in the group.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, mw ...echo.MiddlewareFunc) {
	g := e.Group("/v1", mw...)
	// Expose list of all stores
	g.GET("/stores", p.ListStores)
	// Store details by store id
	g.GET("/stores/:id", p.GetStore)
	// List active seats of a specific store
	g.GET("/stores/:id/seats", p.ListStoreSeats)
	// Availability probe for a seat over a requested interval.  Status is
	// derived from confirmed occupancy and active checkout locks so guests
	// see a seat as busy the moment someone else enters checkout.
	g.GET("/seats/:id/availability", p.SeatAvailability)
}
