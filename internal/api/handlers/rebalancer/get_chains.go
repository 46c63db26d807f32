package rebalancer

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github/chapool/cctp-rebalancer/internal/api"
	"github/chapool/cctp-rebalancer/internal/util"
)

func GetChainsRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1.GET("/chains", getChainsHandler(s))
}

func getChainsHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		chains := s.Cycle.Config().Chains

		response := &GetChainsResponse{
			Chains: make([]*ChainItem, 0, len(chains)),
		}
		for _, h := range chains {
			response.Chains = append(response.Chains, newChainItem(h))
		}

		return util.ValidateAndReturn(c, http.StatusOK, response)
	}
}
