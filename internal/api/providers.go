package api

import (
	"github.com/rs/zerolog/log"

	"github/chapool/cctp-rebalancer/internal/config"
	"github/chapool/cctp-rebalancer/internal/wallet/attestation"
	"github/chapool/cctp-rebalancer/internal/wallet/balance"
	"github/chapool/cctp-rebalancer/internal/wallet/cycle"
	"github/chapool/cctp-rebalancer/internal/wallet/session"
	"github/chapool/cctp-rebalancer/internal/wallet/transfer"
)

// InitNewServer resolves cfg and creates every component. It fails on
// configuration errors before any chain is contacted.
func InitNewServer(cfg config.Rebalancer) (*Server, error) {
	resolved, err := cfg.Resolve()
	if err != nil {
		return nil, err
	}

	s := NewServer(cfg)
	s.Resolved = resolved
	s.Sessions = NewSessions(cfg, resolved)
	s.Balance = NewBalance(s.Sessions, resolved)
	s.Attestation = NewAttestation(cfg)
	s.Pipeline = NewPipeline(cfg, s.Sessions, s.Attestation)
	s.Cycle = NewCycle(resolved, s.Balance, s.Pipeline)

	return s, nil
}

func NewSessions(cfg config.Rebalancer, resolved config.Resolved) *session.Registry {
	return session.NewRegistry(resolved.Key, cfg.SessionConfig(resolved.Owner))
}

//nolint:ireturn
func NewBalance(sessions *session.Registry, resolved config.Resolved) balance.Service {
	return balance.NewService(balance.RegistryReaders(sessions), resolved.Policy)
}

func NewAttestation(cfg config.Rebalancer) *attestation.Poller {
	client := attestation.NewClient(cfg.Attestation.BaseURL,
		attestation.WithRateLimit(cfg.Attestation.RPS, 1),
	)

	return attestation.NewPoller(client, cfg.Attestation.Poll(),
		attestation.WithOnPoll(func(key attestation.Key, state attestation.State, status attestation.Status) {
			log.Info().
				Str("key", key.String()).
				Int("attempt", state.Attempt).
				Dur("elapsed", state.Elapsed).
				Str("status", string(status)).
				Msg("Attestation: polled")
		}),
	)
}

func NewPipeline(cfg config.Rebalancer, sessions *session.Registry, poller *attestation.Poller) *transfer.Pipeline {
	return transfer.NewPipeline(transfer.RegistrySessions(sessions), poller, transfer.Config{
		DryRun: cfg.DryRun,
		Gas:    cfg.Gas,
		Retry:  cfg.Retry,
	})
}

func NewCycle(resolved config.Resolved, balances balance.Service, pipeline *transfer.Pipeline) *cycle.Service {
	return cycle.NewService(balances, pipeline, cycle.Config{
		Chains:    resolved.Chains,
		Targets:   resolved.Targets,
		Threshold: resolved.Threshold,
		Owner:     resolved.Owner,
	})
}
