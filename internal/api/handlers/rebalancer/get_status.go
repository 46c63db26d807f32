package rebalancer

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github/chapool/cctp-rebalancer/internal/api"
	"github/chapool/cctp-rebalancer/internal/api/httperrors"
	"github/chapool/cctp-rebalancer/internal/util"
)

func GetStatusRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1.GET("/status", getStatusHandler(s))
}

// getStatusHandler returns the report of the last finished cycle.
func getStatusHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		report := s.Cycle.LastReport()
		if report == nil {
			return httperrors.ErrNotFoundNoCycle
		}

		return util.ValidateAndReturn(c, http.StatusOK, newReportResponse(report))
	}
}
