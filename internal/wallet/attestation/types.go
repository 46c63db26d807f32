package attestation

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Status of an attestation as reported by the attestation service.
type Status string

const (
	StatusPending  Status = "pending_confirmations"
	StatusComplete Status = "complete"
)

// ErrTimeout is returned when the attempt ceiling is reached without a
// complete attestation.
var ErrTimeout = errors.New("attestation not available before attempt ceiling")

// Key identifies a burn to the attestation service. MessageHash is preferred;
// TxHash is the degraded lookup used when the burn event could not be parsed.
type Key struct {
	SourceDomain uint32
	MessageHash  common.Hash
	TxHash       common.Hash
}

// ByMessageHash reports whether the key uses the message hash lookup.
func (k Key) ByMessageHash() bool {
	return k.MessageHash != (common.Hash{})
}

func (k Key) String() string {
	if k.ByMessageHash() {
		return fmt.Sprintf("message=%s", k.MessageHash.Hex())
	}
	return fmt.Sprintf("domain=%d tx=%s", k.SourceDomain, k.TxHash.Hex())
}

// Attestation is the result of one lookup.
type Attestation struct {
	Status    Status
	Signature []byte
	// Message is only returned by the transaction hash lookup.
	Message []byte
}

// Complete reports whether the attestation can be used for minting.
func (a *Attestation) Complete() bool {
	return a != nil && a.Status == StatusComplete && len(a.Signature) > 0
}

// Fetcher performs a single attestation lookup.
type Fetcher interface {
	Fetch(ctx context.Context, key Key) (*Attestation, error)
}

// Clock abstracts time for the poller.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// State is the explicit progress of one Await call.
type State struct {
	Attempt  int
	Elapsed  time.Duration
	Interval time.Duration
}

// PollConfig configures the adaptive poll schedule.
type PollConfig struct {
	// FastInterval is used for the first FastAttempts lookups.
	FastInterval time.Duration
	FastAttempts int
	// SlowInterval is used afterwards.
	SlowInterval time.Duration
	// MaxAttempts is the hard ceiling on lookups.
	MaxAttempts int
}

const (
	defaultFastInterval = 5 * time.Second
	defaultFastAttempts = 24
	defaultSlowInterval = 30 * time.Second
	defaultMaxAttempts  = 120
)

// DefaultPollConfig returns the default schedule: two minutes at 5s, then 30s
// until 120 lookups.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		FastInterval: defaultFastInterval,
		FastAttempts: defaultFastAttempts,
		SlowInterval: defaultSlowInterval,
		MaxAttempts:  defaultMaxAttempts,
	}
}

func (c PollConfig) withDefaults() PollConfig {
	d := DefaultPollConfig()
	if c.FastInterval <= 0 {
		c.FastInterval = d.FastInterval
	}
	if c.FastAttempts < 0 {
		c.FastAttempts = 0
	}
	if c.SlowInterval <= 0 {
		c.SlowInterval = d.SlowInterval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	return c
}

// IntervalAfter returns the wait that follows the given attempt number.
// The waits after the first FastAttempts lookups use FastInterval.
func (c PollConfig) IntervalAfter(attempt int) time.Duration {
	if attempt <= c.FastAttempts {
		return c.FastInterval
	}
	return c.SlowInterval
}
