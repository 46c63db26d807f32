package attestation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github/chapool/cctp-rebalancer/internal/metrics"
	"github/chapool/cctp-rebalancer/internal/retry"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	defaultRPS         = 2
	defaultBurst       = 1
	maxErrorBody       = 512
)

type v1Response struct {
	Status      string `json:"status"`
	Attestation string `json:"attestation"`
}

type v2Response struct {
	Messages []v2Message `json:"messages"`
}

type v2Message struct {
	Status      string `json:"status"`
	Attestation string `json:"attestation"`
	Message     string `json:"message"`
}

// Client reads attestations from a Circle Iris compatible HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit sets the client-side request rate.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewClient creates an attestation client for baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		limiter:    rate.NewLimiter(rate.Limit(defaultRPS), defaultBurst),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Fetch performs one lookup. A 404 is reported as a pending attestation.
func (c *Client) Fetch(ctx context.Context, key Key) (*Attestation, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	var url string
	if key.ByMessageHash() {
		url = fmt.Sprintf("%s/v1/attestations/%s", c.baseURL, key.MessageHash.Hex())
	} else {
		url = fmt.Sprintf("%s/v2/messages/%d?transactionHash=%s", c.baseURL, key.SourceDomain, key.TxHash.Hex())
	}

	body, found, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	if !found {
		metrics.AttestationPolls.WithLabelValues("not_found").Inc()
		return &Attestation{Status: StatusPending}, nil
	}

	var att *Attestation
	if key.ByMessageHash() {
		att, err = decodeV1(body)
	} else {
		att, err = decodeV2(body)
	}
	if err != nil {
		return nil, retry.Terminal(err)
	}

	metrics.AttestationPolls.WithLabelValues(string(att.Status)).Inc()
	return att, nil
}

func (c *Client) wait(ctx context.Context) error {
	r := c.limiter.Reserve()
	if !r.OK() {
		return errors.New("rate: cannot reserve token")
	}

	delay := r.Delay()
	if delay <= 0 {
		return nil
	}

	metrics.AttestationRateLimitWaits.Inc()
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}

func (c *Client) get(ctx context.Context, url string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to create attestation request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, errors.Wrap(err, "attestation request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, retry.Transient(errors.Wrap(err, "failed to read attestation response"))
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, true, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return nil, false, retry.Transient(errors.Errorf("http status %d: %s", resp.StatusCode, truncate(body)))
	default:
		return nil, false, retry.Terminal(errors.Errorf("http status %d: %s", resp.StatusCode, truncate(body)))
	}
}

func decodeV1(body []byte) (*Attestation, error) {
	var resp v1Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "failed to decode attestation response")
	}

	return toAttestation(resp.Status, resp.Attestation, "")
}

func decodeV2(body []byte) (*Attestation, error) {
	var resp v2Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "failed to decode messages response")
	}

	if len(resp.Messages) == 0 {
		return &Attestation{Status: StatusPending}, nil
	}

	m := resp.Messages[0]
	return toAttestation(m.Status, m.Attestation, m.Message)
}

func toAttestation(status, signature, message string) (*Attestation, error) {
	att := &Attestation{Status: Status(status)}
	if att.Status != StatusComplete {
		att.Status = StatusPending
		return att, nil
	}

	sig, err := hexutil.Decode(signature)
	if err != nil {
		return nil, errors.Wrap(err, "invalid attestation signature encoding")
	}
	att.Signature = sig

	if message != "" && message != "0x" {
		msg, err := hexutil.Decode(message)
		if err != nil {
			return nil, errors.Wrap(err, "invalid message encoding")
		}
		att.Message = msg
	}

	return att, nil
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody])
	}
	return string(body)
}
