package handlers

import (
	"github.com/labstack/echo/v4"

	"github/chapool/cctp-rebalancer/internal/api"
	"github/chapool/cctp-rebalancer/internal/api/handlers/common"
	"github/chapool/cctp-rebalancer/internal/api/handlers/rebalancer"
)

func AttachAllRoutes(s *api.Server) {
	s.Router.Routes = []*echo.Route{
		common.GetHealthyRoute(s),
		common.GetMetricsRoute(s),
		common.GetReadyRoute(s),
		rebalancer.GetBalancesRoute(s),
		rebalancer.GetChainsRoute(s),
		rebalancer.GetPlanRoute(s),
		rebalancer.GetStatusRoute(s),
		rebalancer.PostRebalanceRoute(s),
	}
}
