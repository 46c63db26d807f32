package rebalancer

import (
	"net/http"

	"github.com/go-openapi/strfmt"
	"github.com/go-openapi/swag"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github/chapool/cctp-rebalancer/internal/api"
	"github/chapool/cctp-rebalancer/internal/api/httperrors"
	"github/chapool/cctp-rebalancer/internal/util"
	"github/chapool/cctp-rebalancer/internal/wallet/cycle"
)

func PostRebalanceRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Admin.POST("/rebalance", postRebalanceHandler(s))
}

// postRebalanceHandler starts a cycle in the background. The cycle outlives
// the request; poll /api/v1/status for its report.
func postRebalanceHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		id, err := s.Cycle.Trigger(ctx)
		if err != nil {
			if errors.Is(err, cycle.ErrCycleInProgress) {
				return httperrors.ErrConflictCycleInProgress
			}
			if errors.Is(err, cycle.ErrStopping) {
				return httperrors.ErrUnavailableStopping
			}
			log.Error().Err(err).Msg("Failed to trigger rebalance")
			return err
		}

		log.Info().Str("cycle_id", id.String()).Msg("Rebalance triggered")

		cycleID := strfmt.UUID(id.String())
		return util.ValidateAndReturn(c, http.StatusAccepted, &RebalanceResponse{
			CycleID: &cycleID,
			Message: swag.String("Rebalance cycle started"),
		})
	}
}
