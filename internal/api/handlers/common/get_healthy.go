package common

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github/chapool/cctp-rebalancer/internal/api"
)

func GetHealthyRoute(s *api.Server) *echo.Route {
	return s.Router.Management.GET("/healthy", getHealthyHandler(s))
}

// Liveness only: the process serves requests. Chain reachability is
// reported per cycle, not here.
func getHealthyHandler(_ *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.String(http.StatusOK, "Healthy.")
	}
}
