package rebalancer

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github/chapool/cctp-rebalancer/internal/api"
	"github/chapool/cctp-rebalancer/internal/api/httperrors"
	"github/chapool/cctp-rebalancer/internal/util"
	"github/chapool/cctp-rebalancer/internal/wallet/rebalance"
)

func GetPlanRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1.GET("/plan", getPlanHandler(s))
}

// getPlanHandler reads live balances and returns the actions a cycle would
// run with the balances they would leave behind. Nothing is executed.
func getPlanHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		report, err := s.Cycle.Plan(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Failed to plan rebalance")
			return httperrors.ErrBadGatewayBalances
		}

		response := newReportResponse(report)
		for _, b := range rebalance.Project(report.Balances, report.Actions) {
			response.Projected = append(response.Projected, newAllocationItem(b))
		}

		return util.ValidateAndReturn(c, http.StatusOK, response)
	}
}
