package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github/chapool/cctp-rebalancer/internal/wallet/attestation"
	"github/chapool/cctp-rebalancer/internal/wallet/chain"
	"github/chapool/cctp-rebalancer/internal/wallet/rebalance"
	"github/chapool/cctp-rebalancer/internal/wallet/session"
)

// State is a pipeline stage. Failed is absorbing.
type State int

const (
	StateIdle State = iota
	StateApproving
	StateBurning
	StateAwaitingAttestation
	StateMinting
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateApproving:
		return "approving"
	case StateBurning:
		return "burning"
	case StateAwaitingAttestation:
		return "awaiting_attestation"
	case StateMinting:
		return "minting"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// FailureKind classifies why an action failed.
type FailureKind string

const (
	// KindTransientExhausted means the retry budget ran out on transient errors.
	KindTransientExhausted FailureKind = "transient_exhausted"
	// KindRejected means the chain deterministically rejected the call.
	KindRejected FailureKind = "rejected"
	// KindAttestationTimeout means the burn committed but no attestation
	// arrived before the attempt ceiling. The action can be resumed.
	KindAttestationTimeout FailureKind = "attestation_timeout"
	KindCanceled           FailureKind = "canceled"
	KindInternal           FailureKind = "internal"
)

// Failure describes the step an action failed in.
type Failure struct {
	Step      State
	Kind      FailureKind
	Err       error
	MessageID common.Hash
	SourceTx  common.Hash
}

func (f *Failure) Error() string {
	msg := fmt.Sprintf("%s failed (%s): %v", f.Step, f.Kind, f.Err)
	if f.SourceTx != (common.Hash{}) {
		msg += fmt.Sprintf(" source_tx=%s", f.SourceTx.Hex())
	}
	if f.MessageID != (common.Hash{}) {
		msg += fmt.Sprintf(" message_id=%s", f.MessageID.Hex())
	}
	return msg
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Outcome is the result of executing one action. It is not modified after
// it is returned.
type Outcome struct {
	Action  rebalance.Action
	Success bool
	DryRun  bool
	// AlreadyMinted is set by ResumeMint when the message was received before.
	AlreadyMinted bool
	State         State

	ApproveTx common.Hash
	SourceTx  common.Hash
	DestTx    common.Hash
	MessageID common.Hash
	// DegradedLookup is set when the burn event was not found and the
	// attestation was looked up by transaction hash.
	DegradedLookup bool

	Err      *Failure
	Duration time.Duration
}

// ChainSession is the per-chain capability the pipeline runs on.
// *session.Session implements it.
type ChainSession interface {
	Chain() chain.Handle
	Address() common.Address
	Call(ctx context.Context, to common.Address, data []byte) ([]byte, error)
	EstimateGas(ctx context.Context, to common.Address, data []byte) (uint64, error)
	SignTx(ctx context.Context, to common.Address, data []byte, gasLimit uint64) (*types.Transaction, error)
	Broadcast(ctx context.Context, tx *types.Transaction) error
	Receipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	WaitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Sessions resolves the session of a chain.
type Sessions interface {
	Session(ctx context.Context, h chain.Handle) (ChainSession, error)
}

// SessionsFunc adapts a function to Sessions.
type SessionsFunc func(ctx context.Context, h chain.Handle) (ChainSession, error)

func (f SessionsFunc) Session(ctx context.Context, h chain.Handle) (ChainSession, error) {
	return f(ctx, h)
}

// RegistrySessions resolves sessions from a session registry.
func RegistrySessions(reg *session.Registry) Sessions {
	return SessionsFunc(func(ctx context.Context, h chain.Handle) (ChainSession, error) {
		s, err := reg.Get(ctx, h)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

// Awaiter waits for an attestation. *attestation.Poller implements it.
type Awaiter interface {
	Await(ctx context.Context, key attestation.Key) (*attestation.Attestation, attestation.State, error)
}

// RetryConfig is the backoff budget applied to every chain call.
type RetryConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	MaxRetries      int
	Jitter          float64
}

// Config configures a Pipeline.
type Config struct {
	DryRun bool
	Gas    GasPolicy
	Retry  RetryConfig
}
