package command

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github/chapool/cctp-rebalancer/internal/api"
	"github/chapool/cctp-rebalancer/internal/api/router"
	"github/chapool/cctp-rebalancer/internal/config"
)

const shutdownTimeout = 30 * time.Second

// NewSubcommandGroup returns a command that only groups subCommands and
// prints its help when run directly.
func NewSubcommandGroup(name string, subCommands ...*cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name,
		Short: name + " subcommands",
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				log.Error().Err(err).Msg("Failed to print help")
			}
		},
	}

	cmd.AddCommand(subCommands...)

	return cmd
}

// WithRebalancer sets up logging, initializes every component from cfg and
// hands the server to action. Components are shut down when action returns.
func WithRebalancer(ctx context.Context, cfg config.Rebalancer, action func(ctx context.Context, s *api.Server) error) error {
	config.SetupLogger(cfg.Logger)

	s, err := api.InitNewServer(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to initialize rebalancer")
	}

	router.Init(s)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if errs := s.Shutdown(shutdownCtx); len(errs) > 0 {
			log.Error().Errs("shutdownErrors", errs).Msg("Failed to gracefully shut down rebalancer")
		}
	}()

	log.Info().
		Str("version", config.GetFormattedBuildArgs()).
		Int("chains", len(s.Resolved.Chains)).
		Str("owner", s.Resolved.Owner.Hex()).
		Bool("dry_run", cfg.DryRun).
		Msg("Rebalancer initialized")

	return action(ctx, s)
}
