package config

import (
	"crypto/ecdsa"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github/chapool/cctp-rebalancer/internal/wallet/attestation"
	"github/chapool/cctp-rebalancer/internal/wallet/balance"
	"github/chapool/cctp-rebalancer/internal/wallet/chain"
	"github/chapool/cctp-rebalancer/internal/wallet/keystore"
	"github/chapool/cctp-rebalancer/internal/wallet/rebalance"
	"github/chapool/cctp-rebalancer/internal/wallet/session"
	"github/chapool/cctp-rebalancer/internal/wallet/transfer"
)

// EnvPrefix prefixes every environment variable except the logger ones.
const EnvPrefix = "REBALANCER"

// Viper keys. Flags named like "dry-run" map to the "dry_run" key and to
// the REBALANCER_DRY_RUN environment variable.
const (
	KeyChains               = "chains"
	KeyChainsFile           = "chains_file"
	KeyTargets              = "targets"
	KeyThreshold            = "threshold"
	KeyInterval             = "interval"
	KeyDryRun               = "dry_run"
	KeyOnce                 = "once"
	KeyListen               = "listen"
	KeyAPIToken             = "api_token"
	KeyPrivateKey           = "private_key"
	KeyKeystoreFile         = "keystore_file"
	KeyKeystorePassword     = "keystore_password"
	KeyWatchAddress         = "watch_address"
	KeyBalanceFailurePolicy = "balance_failure_policy"

	KeyAttestationURL          = "attestation.url"
	KeyAttestationRPS          = "attestation.rps"
	KeyAttestationFastInterval = "attestation.fast_interval"
	KeyAttestationFastAttempts = "attestation.fast_attempts"
	KeyAttestationSlowInterval = "attestation.slow_interval"
	KeyAttestationMaxAttempts  = "attestation.max_attempts"

	KeyGasBufferPercent = "gas.buffer_percent"
	KeyGasCeiling       = "gas.ceiling"

	KeyRetryInitialInterval = "retry.initial_interval"
	KeyRetryMaxInterval     = "retry.max_interval"
	KeyRetryMultiplier      = "retry.multiplier"
	KeyRetryMaxRetries      = "retry.max_retries"
	KeyRetryJitter          = "retry.jitter"

	KeyReceiptPollInterval = "receipt.poll_interval"
	KeyReceiptTimeout      = "receipt.timeout"
	KeyBaseFeeMultiplier   = "receipt.base_fee_multiplier"

	KeyLoggerLevel              = "logger.level"
	KeyLoggerPrettyPrintConsole = "logger.pretty_print_console"
)

var (
	ErrMissingPrivateKey = errors.New("REBALANCER_PRIVATE_KEY or REBALANCER_KEYSTORE_FILE is required unless running in dry-run mode")
	ErrAmbiguousKey      = errors.New("REBALANCER_PRIVATE_KEY and REBALANCER_KEYSTORE_FILE are mutually exclusive")
	ErrInvalidThreshold  = errors.New("invalid threshold")
	ErrInvalidAddress    = errors.New("invalid address")
)

type LoggerConfig struct {
	Level              string
	PrettyPrintConsole bool
}

type AttestationConfig struct {
	BaseURL      string
	RPS          float64
	FastInterval time.Duration
	FastAttempts int
	SlowInterval time.Duration
	MaxAttempts  int
}

func (c AttestationConfig) Poll() attestation.PollConfig {
	return attestation.PollConfig{
		FastInterval: c.FastInterval,
		FastAttempts: c.FastAttempts,
		SlowInterval: c.SlowInterval,
		MaxAttempts:  c.MaxAttempts,
	}
}

type ReceiptConfig struct {
	PollInterval      time.Duration
	Timeout           time.Duration
	BaseFeeMultiplier int64
}

// Rebalancer holds the raw process configuration. Values that need the
// chain set to be interpreted, such as targets, are parsed by Resolve.
type Rebalancer struct {
	Logger LoggerConfig

	// Chains is the comma separated list of active chain names.
	Chains     string
	ChainsFile string

	// Targets is the comma separated list of percentages, one per chain.
	Targets   string
	Threshold string
	Interval  time.Duration
	DryRun    bool
	Once      bool
	Listen    string

	// APIToken protects the mutating HTTP routes when set.
	APIToken             string `json:"-"`
	PrivateKey           string `json:"-"`
	WatchAddress         string
	BalanceFailurePolicy string

	// KeystoreFile is an encrypted v3 keystore holding the signing key.
	KeystoreFile     string
	KeystorePassword string `json:"-"`

	Attestation AttestationConfig
	Gas         transfer.GasPolicy
	Retry       transfer.RetryConfig
	Receipt     ReceiptConfig
}

// Resolved is a validated Rebalancer turned into domain values.
type Resolved struct {
	Chains    []chain.Handle
	Targets   []rebalance.TargetAllocation
	Threshold decimal.Decimal
	Policy    balance.FailurePolicy
	// Key is nil for read-only operation.
	Key   *ecdsa.PrivateKey
	Owner common.Address
}

// NewViper returns a viper instance with all defaults set, reading
// REBALANCER_* environment variables.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv(KeyLoggerLevel, "LOGGER_LEVEL")
	_ = v.BindEnv(KeyLoggerPrettyPrintConsole, "LOGGER_PRETTY_PRINT_CONSOLE")

	v.SetDefault(KeyChains, strings.Join(DefaultChainNames(), ","))
	v.SetDefault(KeyTargets, "")
	v.SetDefault(KeyThreshold, "5")
	v.SetDefault(KeyInterval, 5*time.Minute)
	v.SetDefault(KeyDryRun, false)
	v.SetDefault(KeyOnce, false)
	v.SetDefault(KeyListen, ":8080")
	v.SetDefault(KeyBalanceFailurePolicy, string(balance.FailurePolicyZero))

	v.SetDefault(KeyAttestationURL, DefaultAttestationURL)
	v.SetDefault(KeyAttestationRPS, 2.0)
	v.SetDefault(KeyAttestationFastInterval, 5*time.Second)
	v.SetDefault(KeyAttestationFastAttempts, 24)
	v.SetDefault(KeyAttestationSlowInterval, 30*time.Second)
	v.SetDefault(KeyAttestationMaxAttempts, 120)

	gas := transfer.DefaultGasPolicy()
	v.SetDefault(KeyGasBufferPercent, gas.BufferPercent)
	v.SetDefault(KeyGasCeiling, gas.Ceiling)

	v.SetDefault(KeyRetryInitialInterval, time.Second)
	v.SetDefault(KeyRetryMaxInterval, 30*time.Second)
	v.SetDefault(KeyRetryMultiplier, 2.0)
	v.SetDefault(KeyRetryMaxRetries, 5)
	v.SetDefault(KeyRetryJitter, 0.1)

	v.SetDefault(KeyReceiptPollInterval, 3*time.Second)
	v.SetDefault(KeyReceiptTimeout, 5*time.Minute)
	v.SetDefault(KeyBaseFeeMultiplier, 2)

	v.SetDefault(KeyLoggerLevel, "info")
	v.SetDefault(KeyLoggerPrettyPrintConsole, false)

	return v
}

// FromViper reads the configuration from v.
func FromViper(v *viper.Viper) Rebalancer {
	return Rebalancer{
		Logger: LoggerConfig{
			Level:              v.GetString(KeyLoggerLevel),
			PrettyPrintConsole: v.GetBool(KeyLoggerPrettyPrintConsole),
		},
		Chains:               v.GetString(KeyChains),
		ChainsFile:           v.GetString(KeyChainsFile),
		Targets:              v.GetString(KeyTargets),
		Threshold:            v.GetString(KeyThreshold),
		Interval:             v.GetDuration(KeyInterval),
		DryRun:               v.GetBool(KeyDryRun),
		Once:                 v.GetBool(KeyOnce),
		Listen:               v.GetString(KeyListen),
		APIToken:             v.GetString(KeyAPIToken),
		PrivateKey:           v.GetString(KeyPrivateKey),
		WatchAddress:         v.GetString(KeyWatchAddress),
		BalanceFailurePolicy: v.GetString(KeyBalanceFailurePolicy),
		KeystoreFile:         v.GetString(KeyKeystoreFile),
		KeystorePassword:     v.GetString(KeyKeystorePassword),
		Attestation: AttestationConfig{
			BaseURL:      v.GetString(KeyAttestationURL),
			RPS:          v.GetFloat64(KeyAttestationRPS),
			FastInterval: v.GetDuration(KeyAttestationFastInterval),
			FastAttempts: v.GetInt(KeyAttestationFastAttempts),
			SlowInterval: v.GetDuration(KeyAttestationSlowInterval),
			MaxAttempts:  v.GetInt(KeyAttestationMaxAttempts),
		},
		Gas: transfer.GasPolicy{
			BufferPercent: v.GetUint64(KeyGasBufferPercent),
			Ceiling:       v.GetUint64(KeyGasCeiling),
		},
		Retry: transfer.RetryConfig{
			InitialInterval: v.GetDuration(KeyRetryInitialInterval),
			MaxInterval:     v.GetDuration(KeyRetryMaxInterval),
			Multiplier:      v.GetFloat64(KeyRetryMultiplier),
			MaxRetries:      v.GetInt(KeyRetryMaxRetries),
			Jitter:          v.GetFloat64(KeyRetryJitter),
		},
		Receipt: ReceiptConfig{
			PollInterval:      v.GetDuration(KeyReceiptPollInterval),
			Timeout:           v.GetDuration(KeyReceiptTimeout),
			BaseFeeMultiplier: v.GetInt64(KeyBaseFeeMultiplier),
		},
	}
}

// LoadDotEnv loads a .env file from the working directory if one exists.
// Variables already set in the environment win.
func LoadDotEnv() {
	if err := gotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("Config: no .env file loaded")
	}
}

// DefaultRebalancerConfigFromEnv returns the configuration read from the
// environment (and .env) with defaults for everything unset.
func DefaultRebalancerConfigFromEnv() Rebalancer {
	LoadDotEnv()
	return FromViper(NewViper())
}

// Resolve validates the configuration and parses it into domain values.
func (c Rebalancer) Resolve() (Resolved, error) {
	var out Resolved

	all := DefaultChains()
	if c.ChainsFile != "" {
		loaded, err := LoadChainsFile(c.ChainsFile)
		if err != nil {
			return out, err
		}
		all = loaded
	}
	all = ApplyRPCOverrides(all, LookupRPCEnv)

	chains, err := ResolveChains(all, splitList(c.Chains))
	if err != nil {
		return out, err
	}
	out.Chains = chains

	targets, err := ParseTargets(c.Targets, chains)
	if err != nil {
		return out, err
	}
	out.Targets = targets

	threshold, err := decimal.NewFromString(strings.TrimSpace(c.Threshold))
	if err != nil {
		return out, errors.Wrapf(ErrInvalidThreshold, "%q", c.Threshold)
	}
	if threshold.IsNegative() {
		return out, errors.Wrapf(ErrInvalidThreshold, "%s is negative", threshold)
	}
	out.Threshold = threshold

	policy, err := balance.ParseFailurePolicy(c.BalanceFailurePolicy)
	if err != nil {
		return out, err
	}
	out.Policy = policy

	key, err := c.signingKey()
	if err != nil {
		return out, err
	}
	if key != nil {
		out.Key = key
		out.Owner = crypto.PubkeyToAddress(key.PublicKey)
	}

	if c.WatchAddress != "" {
		if !common.IsHexAddress(c.WatchAddress) {
			return out, errors.Wrapf(ErrInvalidAddress, "watch address %q", c.WatchAddress)
		}
		if out.Key == nil {
			out.Owner = common.HexToAddress(c.WatchAddress)
		}
	}

	if out.Key == nil && !c.DryRun {
		return out, ErrMissingPrivateKey
	}

	return out, nil
}

func (c Rebalancer) signingKey() (*ecdsa.PrivateKey, error) {
	switch {
	case c.PrivateKey != "" && c.KeystoreFile != "":
		return nil, ErrAmbiguousKey
	case c.PrivateKey != "":
		key, err := crypto.HexToECDSA(strings.TrimPrefix(c.PrivateKey, "0x"))
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse private key")
		}
		return key, nil
	case c.KeystoreFile != "":
		key, err := keystore.LoadKeyFile(c.KeystoreFile, c.KeystorePassword)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load keystore %s", c.KeystoreFile)
		}
		return key, nil
	default:
		return nil, nil //nolint:nilnil
	}
}

// SessionConfig returns the session settings for the resolved owner.
func (c Rebalancer) SessionConfig(owner common.Address) session.Config {
	return session.Config{
		ReceiptPollInterval: c.Receipt.PollInterval,
		ReceiptTimeout:      c.Receipt.Timeout,
		BaseFeeMultiplier:   c.Receipt.BaseFeeMultiplier,
		WatchAddress:        owner,
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
