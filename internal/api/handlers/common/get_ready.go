package common

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github/chapool/cctp-rebalancer/internal/api"
)

// statusNotReady is the non-standard "Web Server Is Down" status.
const statusNotReady = 521

func GetReadyRoute(s *api.Server) *echo.Route {
	return s.Router.Management.GET("/ready", getReadyHandler(s))
}

func getReadyHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.Ready() {
			return c.String(statusNotReady, "Not ready.")
		}

		return c.String(http.StatusOK, "Ready.")
	}
}
