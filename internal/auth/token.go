package auth

import (
	"crypto/subtle"
	"strings"

	"github.com/labstack/echo/v4"
)

const bearerPrefix = "Bearer "

// RequireToken rejects requests whose Authorization header does not carry
// the bearer token. An empty token disables the check.
func RequireToken(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if token == "" {
			return next
		}

		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(header, bearerPrefix) {
				return echo.ErrUnauthorized
			}

			given := strings.TrimPrefix(header, bearerPrefix)
			if subtle.ConstantTimeCompare([]byte(given), []byte(token)) != 1 {
				return echo.ErrUnauthorized
			}

			return next(c)
		}
	}
}
