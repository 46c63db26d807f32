package rebalancer

import (
	"net/http"

	"github.com/go-openapi/swag"
	"github.com/go-openapi/validate"
	"github.com/labstack/echo/v4"

	"github/chapool/cctp-rebalancer/internal/api"
	"github/chapool/cctp-rebalancer/internal/api/httperrors"
	"github/chapool/cctp-rebalancer/internal/util"
	"github/chapool/cctp-rebalancer/internal/wallet/chain"
	"github/chapool/cctp-rebalancer/internal/wallet/rebalance"
)

func GetBalancesRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1.GET("/balances", getBalancesHandler(s))
}

// getBalancesHandler reads live balances. The optional chain query parameter
// restricts the read to one configured chain.
func getBalancesHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)
		cfg := s.Cycle.Config()

		chains, err := filterChains(c, cfg.Chains)
		if err != nil {
			return err
		}

		readings, err := s.Balance.ReadBalances(ctx, chains, cfg.Owner)
		if err != nil {
			log.Error().Err(err).Msg("Failed to read balances")
			return httperrors.ErrBadGatewayBalances
		}

		raw := make([]rebalance.Balance, len(readings))
		degraded := make(map[string]bool)
		for i, r := range readings {
			raw[i] = rebalance.Balance{Chain: r.Chain, Amount: r.Amount}
			degraded[r.Chain.Name] = r.Err != nil
		}

		balances := rebalance.CalculateAllocations(raw)
		response := &GetBalancesResponse{
			Owner:       swag.String(cfg.Owner.Hex()),
			Total:       rebalance.Total(balances).String(),
			Allocations: make([]*AllocationItem, len(balances)),
		}
		for i, b := range balances {
			item := newAllocationItem(b)
			item.Degraded = degraded[b.Chain.Name]
			response.Allocations[i] = item
		}

		return util.ValidateAndReturn(c, http.StatusOK, response)
	}
}

func filterChains(c echo.Context, chains []chain.Handle) ([]chain.Handle, error) {
	name := c.QueryParam("chain")
	if name == "" {
		return chains, nil
	}

	names := make([]any, len(chains))
	for i, h := range chains {
		if h.Name == name {
			return []chain.Handle{h}, nil
		}
		names[i] = h.Name
	}

	return nil, httperrors.NewFromValidation("Invalid chain parameter", validate.Enum("chain", "query", name, names))
}
