package cycle

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github/chapool/cctp-rebalancer/internal/metrics"
	"github/chapool/cctp-rebalancer/internal/wallet/rebalance"
)

// Service runs rebalance cycles. Cycles never overlap.
type Service struct {
	balances Balances
	executor Executor
	cfg      Config

	// running serializes cycles so two never sign on the same chain at once.
	running sync.Mutex

	// triggered tracks background cycles; stopping rejects new ones.
	triggerMu sync.Mutex
	stopping  bool
	triggered sync.WaitGroup

	mu   sync.RWMutex
	last *Report
}

// NewService creates a cycle controller.
func NewService(balances Balances, executor Executor, cfg Config) *Service {
	return &Service{
		balances: balances,
		executor: executor,
		cfg:      cfg,
	}
}

// Config returns the cycle configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// LastReport returns the most recent finished cycle, or nil.
func (s *Service) LastReport() *Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// RunCycle runs one cycle and blocks until it finishes. Cancellation of ctx is
// not propagated into the cycle: an action that started runs to its own end.
func (s *Service) RunCycle(ctx context.Context) (*Report, error) {
	s.running.Lock()
	defer s.running.Unlock()

	return s.run(context.WithoutCancel(ctx))
}

// Trigger starts a cycle in the background. It returns ErrCycleInProgress
// when a cycle is already running and ErrStopping after Stop.
func (s *Service) Trigger(ctx context.Context) (uuid.UUID, error) {
	s.triggerMu.Lock()
	defer s.triggerMu.Unlock()

	if s.stopping {
		return uuid.Nil, ErrStopping
	}
	if !s.running.TryLock() {
		return uuid.Nil, ErrCycleInProgress
	}

	id := uuid.New()
	cycleCtx := context.WithoutCancel(ctx)

	s.triggered.Add(1)
	go func() {
		defer s.triggered.Done()
		defer s.running.Unlock()

		if _, err := s.runWithID(cycleCtx, id); err != nil {
			log.Error().Err(err).Str("cycle_id", id.String()).Msg("CycleService: triggered cycle failed")
		}
	}()

	return id, nil
}

// Stop rejects further triggers and blocks until every cycle in flight has
// finished. It is safe to call more than once.
func (s *Service) Stop() {
	s.triggerMu.Lock()
	s.stopping = true
	s.triggerMu.Unlock()

	s.triggered.Wait()

	// a scheduled cycle holds running without being tracked
	s.running.Lock()
	s.running.Unlock() //nolint:staticcheck
}

// Plan computes the report of a cycle without executing any action.
func (s *Service) Plan(ctx context.Context) (*Report, error) {
	report := &Report{ID: uuid.New(), StartedAt: time.Now()}

	if err := s.assess(ctx, report); err != nil {
		return nil, err
	}

	if !report.NoAction {
		report.Actions = rebalance.Plan(report.Balances, s.cfg.Targets, s.cfg.Threshold)
	}
	report.FinishedAt = time.Now()

	return report, nil
}

// Run runs cycles every interval until ctx is done. Cancellation is only
// observed between cycles, and Run returns only after triggered cycles have
// finished too. With once set a single cycle runs and its error, or
// ErrCycleFailed, is returned.
func (s *Service) Run(ctx context.Context, interval time.Duration, once bool) error {
	log.Info().
		Dur("interval", interval).
		Bool("once", once).
		Int("chains", len(s.cfg.Chains)).
		Msg("CycleService: starting rebalance scheduler")

	defer s.Stop()

	for {
		if err := ctx.Err(); err != nil {
			log.Info().Msg("CycleService: rebalance scheduler stopped")
			return nil
		}

		report, started, err := s.scheduled(ctx)
		if !started {
			log.Info().Msg("CycleService: rebalance scheduler stopped")
			return nil
		}
		if once {
			if err != nil {
				return err
			}
			if report.Failed {
				return ErrCycleFailed
			}
			return nil
		}

		if err != nil {
			log.Error().Err(err).Msg("CycleService: cycle failed, retrying at next interval")
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("CycleService: rebalance scheduler stopped")
			return nil
		case <-time.After(interval):
		}
	}
}

// scheduled runs a cycle unless ctx was cancelled while waiting for the
// previous one to release the lock.
func (s *Service) scheduled(ctx context.Context) (*Report, bool, error) {
	s.running.Lock()
	defer s.running.Unlock()

	if ctx.Err() != nil {
		return nil, false, nil
	}

	report, err := s.run(context.WithoutCancel(ctx))
	return report, true, err
}

func (s *Service) run(ctx context.Context) (*Report, error) {
	return s.runWithID(ctx, uuid.New())
}

func (s *Service) runWithID(ctx context.Context, id uuid.UUID) (*Report, error) {
	report := &Report{ID: id, StartedAt: time.Now()}

	logger := log.With().Str("cycle_id", id.String()).Logger()

	if err := s.assess(ctx, report); err != nil {
		metrics.CyclesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	if report.NoAction {
		report.FinishedAt = time.Now()
		s.record(report, "no_action")
		logger.Info().Msg("CycleService: all chains within threshold, no action")
		return report, nil
	}

	report.Actions = rebalance.Plan(report.Balances, s.cfg.Targets, s.cfg.Threshold)
	logger.Info().Int("actions", len(report.Actions)).Msg("CycleService: rebalance planned")

	for _, action := range report.Actions {
		outcome := s.executor.Execute(ctx, action)
		report.Outcomes = append(report.Outcomes, outcome)

		if outcome.Success {
			logger.Info().
				Str("action_id", action.ID().String()).
				Str("action", action.String()).
				Str("source_tx", outcome.SourceTx.Hex()).
				Str("dest_tx", outcome.DestTx.Hex()).
				Bool("dry_run", outcome.DryRun).
				Msg("CycleService: action succeeded")
			continue
		}

		report.Failed = true
		logger.Error().
			Err(outcome.Err).
			Str("action_id", action.ID().String()).
			Str("action", action.String()).
			Msg("CycleService: action failed, continuing with next action")
	}

	report.FinishedAt = time.Now()

	result := "executed"
	if report.Failed {
		result = "failed"
	}
	s.record(report, result)

	logger.Info().
		Int("actions", len(report.Actions)).
		Bool("failed", report.Failed).
		Dur("duration", report.Duration()).
		Msg("CycleService: cycle finished")

	return report, nil
}

// assess reads balances and fills allocations and deviations.
func (s *Service) assess(ctx context.Context, report *Report) error {
	readings, err := s.balances.ReadBalances(ctx, s.cfg.Chains, s.cfg.Owner)
	if err != nil {
		return errors.Wrap(err, "failed to read balances")
	}

	raw := make([]rebalance.Balance, len(readings))
	for i, r := range readings {
		raw[i] = rebalance.Balance{Chain: r.Chain, Amount: r.Amount}
		if r.Err != nil {
			report.Degraded = append(report.Degraded, r.Chain.Name)
		}
	}

	report.Balances = rebalance.CalculateAllocations(raw)
	report.Deviations = rebalance.CalculateDeviations(report.Balances, s.cfg.Targets)
	report.NoAction = !rebalance.NeedsRebalancing(report.Deviations, s.cfg.Threshold)

	for _, d := range report.Deviations {
		current, _ := d.Current.Float64()
		deviation, _ := d.Deviation.Float64()
		metrics.ChainAllocationPercent.WithLabelValues(d.Chain.Name).Set(current)
		metrics.ChainDeviationPercent.WithLabelValues(d.Chain.Name).Set(deviation)

		log.Debug().
			Str("chain", d.Chain.Name).
			Str("current", d.Current.StringFixed(2)).
			Str("target", d.Target.StringFixed(2)).
			Str("deviation", d.Deviation.StringFixed(2)).
			Msg("CycleService: allocation")
	}

	return nil
}

func (s *Service) record(report *Report, result string) {
	metrics.CyclesTotal.WithLabelValues(result).Inc()
	metrics.CycleDuration.Observe(report.Duration().Seconds())

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()
}
