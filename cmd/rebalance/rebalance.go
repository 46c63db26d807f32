package rebalance

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github/chapool/cctp-rebalancer/internal/api"
	"github/chapool/cctp-rebalancer/internal/config"
	"github/chapool/cctp-rebalancer/internal/util/command"
)

func New() *cobra.Command {
	v := config.NewViper()

	cmd := &cobra.Command{
		Use:   "rebalance",
		Short: "Runs the rebalance scheduler",
		Long: `Runs rebalance cycles every --interval until interrupted.

Each cycle reads USDC balances on every chain, compares them to --targets
and moves funds from over-allocated to under-allocated chains when a
deviation exceeds --threshold. With --once a single cycle runs and the exit
status reports whether every action succeeded.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRebalance(cmd.Context(), config.FromViper(v))
		},
	}

	command.BindRebalanceFlags(cmd, v)

	return cmd
}

func runRebalance(ctx context.Context, cfg config.Rebalancer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return command.WithRebalancer(ctx, cfg, func(ctx context.Context, s *api.Server) error {
		if cfg.Listen != "" && !cfg.Once {
			go func() {
				log.Info().Str("listen", cfg.Listen).Msg("Starting HTTP server")
				if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error().Err(err).Msg("HTTP server stopped")
				}
			}()
		}

		return s.Cycle.Run(ctx, cfg.Interval, cfg.Once)
	})
}
