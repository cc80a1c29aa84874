package middleware // middleware provides shared request processing for handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

// CallbackAuth returns a middleware that authenticates server-to-server
// callbacks from the payment provider.  The provider sends the shared
// secret in the X-Callback-Secret header; the comparison is constant
// time so the secret cannot be probed byte by byte.  Customer JWTs are
// never accepted on callback routes.
func CallbackAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			got := c.Request().Header.Get("X-Callback-Secret")
			if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid callback secret"})
			}
			return next(c)
		}
	}
}
