// Package basescore implements the typed client for the base score
// provider, the oracle producing the unconditioned creditworthiness
// estimate consumed by the fusion engine.
package basescore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/duskolend/creditd/internal/domain"
	"github.com/duskolend/creditd/internal/metrics"
	cnet "github.com/duskolend/creditd/internal/net"
)

// Config configures the base score provider client.
type Config struct {
	BaseURL          string
	RequestTimeout   time.Duration
	RateLimitRPS     float64
	RateLimitBurst   int
	FailureThreshold uint32
	UserAgent        string
}

// Client talks to the base score provider over HTTP.
type Client struct {
	config  Config
	client  *http.Client
	metrics *metrics.Registry
}

// creditScoreRequest is the wire request for POST /eth/credit-score.
type creditScoreRequest struct {
	Address string `json:"address"`
}

// creditScoreResponse is the wire response. The engine consumes only
// credit_score and feature_importance; the classifier fields come along for
// the ride.
type creditScoreResponse struct {
	CreditScore       *float64           `json:"credit_score"`
	FeatureImportance map[string]float64 `json:"feature_importance"`
	IsProfessional    bool               `json:"is_professional"`
	Probability       float64            `json:"probability"`
}

// NewClient creates a base score provider client. A nil metrics registry
// disables instrumentation.
func NewClient(config Config, m *metrics.Registry) *Client {
	if config.RequestTimeout == 0 {
		config.RequestTimeout = 10 * time.Second
	}

	client := cnet.NewClient(cnet.Options{
		Provider:         domain.ProviderBaseScore,
		RPS:              config.RateLimitRPS,
		Burst:            config.RateLimitBurst,
		FailureThreshold: config.FailureThreshold,
		UserAgent:        config.UserAgent,
	}, config.RequestTimeout)

	return &Client{config: config, client: client, metrics: m}
}

// FetchBaseScore retrieves the creditworthiness estimate for address.
// Transport failures, timeouts and non-2xx responses surface as an
// unavailable upstream error; payloads that violate the documented contract
// surface as malformed. The response is never clamped or repaired.
func (c *Client) FetchBaseScore(ctx context.Context, address string) (*domain.BaseScore, error) {
	body, err := json.Marshal(creditScoreRequest{Address: address})
	if err != nil {
		return nil, fmt.Errorf("encode credit-score request: %w", err)
	}

	url := c.config.BaseURL + "/eth/credit-score"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build credit-score request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.observe("error", start)
		return nil, domain.Unavailable(domain.ProviderBaseScore, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.observe("error", start)
		return nil, domain.Unavailable(domain.ProviderBaseScore, fmt.Errorf("read response: %w", err))
	}

	score, err := parseCreditScore(address, raw)
	if err != nil {
		c.observe("malformed", start)
		return nil, err
	}

	c.observe("ok", start)
	return score, nil
}

// parseCreditScore converts the untyped wire payload into a validated
// domain.BaseScore, rejecting missing or out-of-range fields.
func parseCreditScore(address string, raw []byte) (*domain.BaseScore, error) {
	var wire creditScoreResponse
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, domain.Malformed(domain.ProviderBaseScore, fmt.Errorf("decode response: %w", err))
	}
	if wire.CreditScore == nil {
		return nil, domain.Malformed(domain.ProviderBaseScore, fmt.Errorf("credit_score missing"))
	}

	score := &domain.BaseScore{
		Address:           domain.NormalizeAddress(address),
		Score:             *wire.CreditScore,
		FeatureImportance: wire.FeatureImportance,
	}
	if err := score.Validate(); err != nil {
		return nil, domain.Malformed(domain.ProviderBaseScore, err)
	}
	return score, nil
}

func (c *Client) observe(outcome string, start time.Time) {
	if c.metrics != nil {
		c.metrics.ObserveUpstream(domain.ProviderBaseScore, outcome, time.Since(start))
		if outcome != "ok" {
			c.metrics.ObserveUpstreamFailure(domain.ProviderBaseScore, outcome)
		}
	}
}
