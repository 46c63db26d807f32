package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github/chapool/cctp-rebalancer/internal/config"
	"github/chapool/cctp-rebalancer/internal/util"
	"github/chapool/cctp-rebalancer/internal/wallet/attestation"
	"github/chapool/cctp-rebalancer/internal/wallet/balance"
	"github/chapool/cctp-rebalancer/internal/wallet/cycle"
	"github/chapool/cctp-rebalancer/internal/wallet/session"
	"github/chapool/cctp-rebalancer/internal/wallet/transfer"
)

type Router struct {
	Routes     []*echo.Route
	Root       *echo.Group
	Management *echo.Group
	APIV1      *echo.Group
	// APIV1Admin carries the routes that start cycles.
	APIV1Admin *echo.Group
}

// Server is a central struct keeping all the dependencies.
// It is initialized with InitNewServer, which creates the components in
// dependency order. Echo and Router are set up by router.Init afterwards.
type Server struct {
	Echo   *echo.Echo
	Router *Router

	Config   config.Rebalancer
	Resolved config.Resolved

	Sessions    *session.Registry
	Balance     balance.Service
	Attestation *attestation.Poller
	Pipeline    *transfer.Pipeline
	Cycle       *cycle.Service
}

func NewServer(config config.Rebalancer) *Server {
	s := &Server{
		Config: config,
	}

	return s
}

func (s *Server) Ready() bool {
	if err := util.IsStructInitialized(s); err != nil {
		log.Debug().Err(err).Msg("Server is not fully initialized")
		return false
	}

	return true
}

func (s *Server) Start() error {
	if !s.Ready() {
		return errors.New("server is not ready")
	}

	if err := s.Echo.Start(s.Config.Listen); err != nil {
		return fmt.Errorf("failed to start echo server: %w", err)
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) []error {
	log.Warn().Msg("Shutting down server")

	var errs []error

	if s.Echo != nil {
		log.Debug().Msg("Shutting down echo server")

		if err := s.Echo.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Failed to shutdown echo server")
			errs = append(errs, err)
		}
	}

	if s.Cycle != nil {
		log.Debug().Msg("Waiting for running rebalance cycles")
		s.Cycle.Stop()
	}

	if s.Sessions != nil {
		log.Debug().Msg("Closing chain sessions")
		s.Sessions.Close()
	}

	return errs
}
