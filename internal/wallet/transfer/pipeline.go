package transfer

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github/chapool/cctp-rebalancer/internal/metrics"
	"github/chapool/cctp-rebalancer/internal/retry"
	"github/chapool/cctp-rebalancer/internal/wallet/attestation"
	"github/chapool/cctp-rebalancer/internal/wallet/cctp"
	"github/chapool/cctp-rebalancer/internal/wallet/rebalance"
)

var (
	// ErrReverted is returned for mined transactions with a failed status.
	ErrReverted = errors.New("execution reverted")
	// ErrMissingMessage is returned when neither the burn receipt nor the
	// attestation service provide the message payload.
	ErrMissingMessage = errors.New("burn message unavailable")
)

// Pipeline executes one action through approve, burn, attestation and mint.
type Pipeline struct {
	sessions     Sessions
	attestations Awaiter
	cfg          Config
}

// NewPipeline creates a pipeline.
func NewPipeline(sessions Sessions, attestations Awaiter, cfg Config) *Pipeline {
	if cfg.Gas == (GasPolicy{}) {
		cfg.Gas = DefaultGasPolicy()
	}

	return &Pipeline{
		sessions:     sessions,
		attestations: attestations,
		cfg:          cfg,
	}
}

// run tracks the mutable progress of one execution until it is frozen into
// an Outcome.
type run struct {
	out   Outcome
	start time.Time
}

func newRun(action rebalance.Action) *run {
	return &run{
		out:   Outcome{Action: action, State: StateIdle},
		start: time.Now(),
	}
}

func (r *run) enter(state State) {
	r.out.State = state
}

func (r *run) fail(err error) Outcome {
	f := &Failure{
		Step:      r.out.State,
		Kind:      kindOf(err),
		Err:       err,
		MessageID: r.out.MessageID,
		SourceTx:  r.out.SourceTx,
	}

	metrics.StepFailures.WithLabelValues(f.Step.String(), string(f.Kind)).Inc()

	r.out.Err = f
	r.out.State = StateFailed
	return r.finish()
}

func (r *run) complete() Outcome {
	r.out.State = StateComplete
	r.out.Success = true
	return r.finish()
}

func (r *run) finish() Outcome {
	r.out.Duration = time.Since(r.start)

	result := "success"
	switch {
	case r.out.DryRun:
		result = "dry_run"
	case !r.out.Success:
		result = "failed"
	}
	metrics.ActionsTotal.WithLabelValues(r.out.Action.From().Name, r.out.Action.To().Name, result).Inc()

	return r.out
}

func kindOf(err error) FailureKind {
	switch {
	case errors.Is(err, attestation.ErrTimeout):
		return KindAttestationTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, ErrMissingMessage):
		return KindInternal
	case retry.IsRetryable(err):
		return KindTransientExhausted
	default:
		return KindRejected
	}
}

// Execute runs action to completion or failure. A failure never escapes as
// an error; it is carried in the Outcome.
func (p *Pipeline) Execute(ctx context.Context, action rebalance.Action) Outcome {
	r := newRun(action)

	logger := log.With().
		Str("action_id", action.ID().String()).
		Str("from", action.From().Name).
		Str("to", action.To().Name).
		Str("amount", action.Amount().String()).
		Logger()

	if p.cfg.DryRun {
		logger.Info().Msg("TransferPipeline: dry run, skipping transfer")
		r.out.DryRun = true
		return r.complete()
	}

	src, err := p.sessions.Session(ctx, action.From())
	if err != nil {
		return r.fail(errors.Wrap(err, "failed to get source session"))
	}
	dst, err := p.sessions.Session(ctx, action.To())
	if err != nil {
		return r.fail(errors.Wrap(err, "failed to get destination session"))
	}

	amount := action.Amount()

	r.enter(StateApproving)
	approveTx, err := p.approve(ctx, src, amount)
	if err != nil {
		return r.fail(err)
	}
	r.out.ApproveTx = approveTx

	r.enter(StateBurning)
	burnTx, receipt, err := p.burn(ctx, src, dst, amount)
	r.out.SourceTx = burnTx
	if err != nil {
		return r.fail(err)
	}

	logger.Info().
		Str("burn_tx", burnTx.Hex()).
		Msg("TransferPipeline: burn confirmed")

	message, key := p.messageKey(src, burnTx, receipt, r)

	return p.attestAndMint(ctx, r, dst, message, key, false)
}

func (p *Pipeline) approve(ctx context.Context, src ChainSession, amount *big.Int) (common.Hash, error) {
	defer observeStep(StateApproving, time.Now())

	h := src.Chain()

	data, err := cctp.PackAllowance(src.Address(), h.TokenMessenger)
	if err != nil {
		return common.Hash{}, err
	}

	resp, err := retry.DoWithData(ctx, p.retrier(StateApproving, h.Name), func(ctx context.Context) ([]byte, error) {
		return src.Call(ctx, h.USDC, data)
	})
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "failed to read allowance")
	}

	allowance, err := cctp.UnpackUint256("allowance", resp)
	if err != nil {
		return common.Hash{}, err
	}

	if allowance.Cmp(amount) >= 0 {
		log.Debug().
			Str("chain", h.Name).
			Str("allowance", allowance.String()).
			Str("amount", amount.String()).
			Msg("TransferPipeline: allowance sufficient, skipping approve")
		return common.Hash{}, nil
	}

	approveData, err := cctp.PackApprove(h.TokenMessenger, amount)
	if err != nil {
		return common.Hash{}, err
	}

	txHash, _, err := p.submit(ctx, src, StateApproving, h.USDC, approveData)
	return txHash, err
}

func (p *Pipeline) burn(ctx context.Context, src, dst ChainSession, amount *big.Int) (common.Hash, *types.Receipt, error) {
	defer observeStep(StateBurning, time.Now())

	h := src.Chain()

	data, err := cctp.PackDepositForBurn(amount, dst.Chain().Domain, dst.Address(), h.USDC)
	if err != nil {
		return common.Hash{}, nil, err
	}

	return p.submit(ctx, src, StateBurning, h.TokenMessenger, data)
}

// messageKey extracts the burn message from the receipt. Without a parsable
// MessageSent event the attestation is looked up by transaction hash.
func (p *Pipeline) messageKey(src ChainSession, burnTx common.Hash, receipt *types.Receipt, r *run) ([]byte, attestation.Key) {
	h := src.Chain()
	key := attestation.Key{SourceDomain: h.Domain, TxHash: burnTx}

	message, ok, err := cctp.ParseMessageSent(receipt.Logs, h.MessageTransmitter)
	if err != nil || !ok {
		log.Warn().
			Err(err).
			Str("chain", h.Name).
			Str("burn_tx", burnTx.Hex()).
			Msg("TransferPipeline: MessageSent event not found, falling back to transaction hash lookup")
		r.out.DegradedLookup = true
		return nil, key
	}

	r.out.MessageID = cctp.MessageHash(message)
	key.MessageHash = r.out.MessageID

	return message, key
}

// attestAndMint waits for the attestation and mints on dst. With
// checkReceived set the destination is asked first whether the message was
// already received.
func (p *Pipeline) attestAndMint(ctx context.Context, r *run, dst ChainSession, message []byte, key attestation.Key, checkReceived bool) Outcome {
	r.enter(StateAwaitingAttestation)

	att, err := p.awaitAttestation(ctx, key)
	if err != nil {
		return r.fail(err)
	}

	if len(message) == 0 {
		message = att.Message
	}
	if len(message) == 0 {
		return r.fail(errors.Wrapf(ErrMissingMessage, "key=%s", key))
	}
	if r.out.MessageID == (common.Hash{}) {
		r.out.MessageID = cctp.MessageHash(message)
	}

	r.enter(StateMinting)

	if checkReceived {
		used, err := p.messageReceived(ctx, dst, message)
		if err != nil {
			return r.fail(err)
		}
		if used {
			log.Info().
				Str("message_id", r.out.MessageID.Hex()).
				Str("to", dst.Chain().Name).
				Msg("TransferPipeline: message already received on destination, nothing to mint")
			r.out.AlreadyMinted = true
			return r.complete()
		}
	}

	mintTx, err := p.mint(ctx, dst, message, att.Signature)
	r.out.DestTx = mintTx
	if err != nil {
		return r.fail(err)
	}

	log.Info().
		Str("action_id", r.out.Action.ID().String()).
		Str("source_tx", r.out.SourceTx.Hex()).
		Str("dest_tx", mintTx.Hex()).
		Str("message_id", r.out.MessageID.Hex()).
		Msg("TransferPipeline: transfer complete")

	return r.complete()
}

func (p *Pipeline) awaitAttestation(ctx context.Context, key attestation.Key) (*attestation.Attestation, error) {
	defer observeStep(StateAwaitingAttestation, time.Now())

	att, state, err := p.attestations.Await(ctx, key)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("key", key.String()).
		Int("attempts", state.Attempt).
		Dur("elapsed", state.Elapsed).
		Msg("TransferPipeline: attestation received")

	return att, nil
}

func (p *Pipeline) mint(ctx context.Context, dst ChainSession, message, signature []byte) (common.Hash, error) {
	defer observeStep(StateMinting, time.Now())

	data, err := cctp.PackReceiveMessage(message, signature)
	if err != nil {
		return common.Hash{}, err
	}

	txHash, _, err := p.submit(ctx, dst, StateMinting, dst.Chain().MessageTransmitter, data)
	return txHash, err
}

// submit estimates, signs, broadcasts and waits for one transaction. Each
// phase is retried on its own so a transient receipt error never leads to a
// second submission.
func (p *Pipeline) submit(ctx context.Context, s ChainSession, step State, to common.Address, data []byte) (common.Hash, *types.Receipt, error) {
	h := s.Chain()
	r := p.retrier(step, h.Name)

	estimate, err := retry.DoWithData(ctx, r, func(ctx context.Context) (uint64, error) {
		return s.EstimateGas(ctx, to, data)
	})
	if err != nil {
		return common.Hash{}, nil, errors.Wrap(err, "failed to estimate gas")
	}

	gasLimit := p.cfg.Gas.Apply(h.Name, estimate)

	tx, err := retry.DoWithData(ctx, r, func(ctx context.Context) (*types.Transaction, error) {
		return s.SignTx(ctx, to, data, gasLimit)
	})
	if err != nil {
		return common.Hash{}, nil, errors.Wrap(err, "failed to prepare transaction")
	}

	txHash := tx.Hash()

	attempts := 0
	if err := r.Do(ctx, func(ctx context.Context) error {
		attempts++
		return s.Broadcast(ctx, tx)
	}); err != nil {
		// an earlier attempt may have reached the node and been mined
		if attempts < 2 || !retry.IsNonceUsed(err) {
			return txHash, nil, err
		}
		if _, lookupErr := s.Receipt(ctx, txHash); lookupErr != nil {
			return txHash, nil, err
		}

		log.Warn().
			Err(err).
			Str("chain", h.Name).
			Str("step", step.String()).
			Str("tx_hash", txHash.Hex()).
			Msg("TransferPipeline: retried broadcast rejected, transaction already mined")
	}

	log.Debug().
		Str("chain", h.Name).
		Str("step", step.String()).
		Str("tx_hash", txHash.Hex()).
		Uint64("gas_limit", gasLimit).
		Uint64("nonce", tx.Nonce()).
		Msg("TransferPipeline: transaction broadcasted")

	receipt, err := retry.DoWithData(ctx, r, func(ctx context.Context) (*types.Receipt, error) {
		return s.WaitMined(ctx, txHash)
	})
	if err != nil {
		return txHash, nil, errors.Wrap(err, "failed while waiting for receipt")
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return txHash, receipt, retry.Terminal(errors.Wrapf(ErrReverted, "tx=%s", txHash.Hex()))
	}

	return txHash, receipt, nil
}

func (p *Pipeline) retrier(step State, chainName string) *retry.Retrier {
	opts := []retry.Option{
		retry.WithOnRetry(func(attempt int, delay time.Duration, err error) {
			metrics.StepRetries.WithLabelValues(step.String()).Inc()
			log.Warn().
				Err(err).
				Str("chain", chainName).
				Str("step", step.String()).
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("TransferPipeline: retrying after transient error")
		}),
	}

	rc := p.cfg.Retry
	if rc.InitialInterval > 0 {
		opts = append(opts, retry.WithInitialInterval(rc.InitialInterval))
	}
	if rc.MaxInterval > 0 {
		opts = append(opts, retry.WithMaxInterval(rc.MaxInterval))
	}
	if rc.Multiplier > 0 {
		opts = append(opts, retry.WithMultiplier(rc.Multiplier))
	}
	if rc.MaxRetries > 0 {
		opts = append(opts, retry.WithMaxRetries(rc.MaxRetries))
	}
	if rc.Jitter > 0 {
		opts = append(opts, retry.WithJitter(rc.Jitter))
	}

	return retry.New(opts...)
}

func observeStep(step State, start time.Time) {
	metrics.StepDuration.WithLabelValues(step.String()).Observe(time.Since(start).Seconds())
}
