package balance

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github/chapool/cctp-rebalancer/internal/metrics"
	"github/chapool/cctp-rebalancer/internal/wallet/cctp"
	"github/chapool/cctp-rebalancer/internal/wallet/chain"
	"github/chapool/cctp-rebalancer/internal/wallet/session"
)

const (
	defaultReadTimeout = 15 * time.Second
	// maxConcurrentReads bounds open balance calls across chains.
	maxConcurrentReads = 8
)

type service struct {
	readers     Readers
	policy      FailurePolicy
	readTimeout time.Duration
}

// NewService creates a balance service.
//
//nolint:ireturn
func NewService(readers Readers, policy FailurePolicy) Service {
	if policy == "" {
		policy = FailurePolicyZero
	}
	return &service{
		readers:     readers,
		policy:      policy,
		readTimeout: defaultReadTimeout,
	}
}

// RegistryReaders resolves readers from a session registry.
func RegistryReaders(reg *session.Registry) Readers {
	return ReadersFunc(func(ctx context.Context, h chain.Handle) (Reader, error) {
		s, err := reg.Get(ctx, h)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

// ReadBalance reads the USDC balance of owner on h.
func (s *service) ReadBalance(ctx context.Context, h chain.Handle, owner common.Address) (*big.Int, error) {
	reader, err := s.readers.Reader(ctx, h)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get chain reader")
	}

	data, err := cctp.PackBalanceOf(owner)
	if err != nil {
		return nil, err
	}

	resp, err := reader.Call(ctx, h.USDC, data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to call balanceOf")
	}

	return cctp.UnpackUint256("balanceOf", resp)
}

// ReadBalances fans the reads out across chains. Reads are independent and
// read-only so they run concurrently. Under FailurePolicyAbort the first
// failure cancels the reads still in flight.
func (s *service) ReadBalances(ctx context.Context, chains []chain.Handle, owner common.Address) ([]Reading, error) {
	readings := make([]Reading, len(chains))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentReads)
	for i, h := range chains {
		g.Go(func() error {
			readCtx, cancel := context.WithTimeout(gctx, s.readTimeout)
			defer cancel()

			amount, err := s.ReadBalance(readCtx, h, owner)
			readings[i] = Reading{Chain: h, Amount: amount, Err: err}

			if err != nil && s.policy == FailurePolicyAbort {
				return errors.Wrapf(ErrReadFailed, "chain=%s: %v", h.Name, err)
			}
			return nil
		})
	}
	abortErr := g.Wait()

	failed := 0
	for i := range readings {
		if readings[i].Err == nil {
			continue
		}
		failed++
		metrics.BalanceReadErrors.WithLabelValues(readings[i].Chain.Name).Inc()

		log.Warn().
			Err(readings[i].Err).
			Str("chain", readings[i].Chain.Name).
			Str("owner", owner.Hex()).
			Str("policy", string(s.policy)).
			Msg("BalanceService: failed to read balance")

		readings[i].Amount = big.NewInt(0)
	}

	if abortErr != nil {
		return nil, abortErr
	}

	if len(chains) > 0 && failed == len(chains) {
		return nil, ErrAllReadsFailed
	}

	return readings, nil
}
