// Package washtrade implements the typed client for the wash-trade
// detector and its blacklist store.
package washtrade

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/duskolend/creditd/internal/domain"
	"github.com/duskolend/creditd/internal/metrics"
	cnet "github.com/duskolend/creditd/internal/net"
)

// Config configures the detector client.
type Config struct {
	BaseURL          string
	RequestTimeout   time.Duration
	RateLimitRPS     float64
	RateLimitBurst   int
	FailureThreshold uint32
	UserAgent        string
}

// Client talks to the wash-trade detector over HTTP.
type Client struct {
	config  Config
	client  *http.Client
	metrics *metrics.Registry
}

// creditResponse is the wire shape of GET /credit/{token}/{address}/{score}.
type creditResponse struct {
	AdjustedScore  *float64 `json:"adjusted_score"`
	Penalty        *float64 `json:"penalty"`
	WashTradeData  *struct {
		Detected bool    `json:"detected"`
		Count    int     `json:"count"`
		Volume   float64 `json:"volume"`
	} `json:"wash_trade_data"`
	Recommendation *struct {
		LendingRisk            string  `json:"lending_risk"`
		MaxLoanAmount          float64 `json:"max_loan_amount"`
		InterestRateAdjustment float64 `json:"interest_rate_adjustment"`
	} `json:"recommendation"`
}

// blacklistRequest is the wire request for the blacklist mutations.
type blacklistRequest struct {
	Address string `json:"address"`
	Token   string `json:"token"`
}

type blacklistResponse struct {
	Success bool `json:"success"`
}

// checkResponse is the wire shape of GET /blacklist/check/{address}.
type checkResponse struct {
	Detected bool    `json:"detected"`
	Penalty  float64 `json:"penalty"`
}

// NewClient creates a wash-trade detector client. A nil metrics registry
// disables instrumentation.
func NewClient(config Config, m *metrics.Registry) *Client {
	if config.RequestTimeout == 0 {
		config.RequestTimeout = 10 * time.Second
	}

	client := cnet.NewClient(cnet.Options{
		Provider:         domain.ProviderWashTrade,
		RPS:              config.RateLimitRPS,
		Burst:            config.RateLimitBurst,
		FailureThreshold: config.FailureThreshold,
		UserAgent:        config.UserAgent,
	}, config.RequestTimeout)

	return &Client{config: config, client: client, metrics: m}
}

// FetchAssessment retrieves the detector's verdict for (token, address)
// given the already-known base score. The detector's adjusted score is
// authoritative; this client only validates shape and range, it never
// recomputes.
func (c *Client) FetchAssessment(ctx context.Context, token, address string, baseScore float64) (*domain.WashTradeAssessment, error) {
	endpoint := fmt.Sprintf("%s/credit/%s/%s/%s",
		c.config.BaseURL,
		url.PathEscape(token),
		url.PathEscape(address),
		strconv.FormatFloat(baseScore, 'f', -1, 64))

	raw, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	return parseAssessment(raw)
}

// AddToBlacklist flags (address, token) in the detector's blacklist store.
func (c *Client) AddToBlacklist(ctx context.Context, address, token string) error {
	return c.mutateBlacklist(ctx, "add", address, token)
}

// RemoveFromBlacklist clears (address, token) from the blacklist store.
func (c *Client) RemoveFromBlacklist(ctx context.Context, address, token string) error {
	return c.mutateBlacklist(ctx, "remove", address, token)
}

// CheckBlacklist reports whether address is currently flagged, without
// touching the scoring path.
func (c *Client) CheckBlacklist(ctx context.Context, address string) (bool, error) {
	endpoint := c.config.BaseURL + "/blacklist/check/" + url.PathEscape(address)
	raw, err := c.get(ctx, endpoint)
	if err != nil {
		return false, err
	}

	var wire checkResponse
	if err := json.Unmarshal(raw, &wire); err != nil {
		return false, domain.Malformed(domain.ProviderWashTrade, fmt.Errorf("decode blacklist check: %w", err))
	}
	return wire.Detected, nil
}

func (c *Client) mutateBlacklist(ctx context.Context, action, address, token string) error {
	body, err := json.Marshal(blacklistRequest{Address: address, Token: token})
	if err != nil {
		return fmt.Errorf("encode blacklist %s request: %w", action, err)
	}

	endpoint := c.config.BaseURL + "/blacklist/" + action
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build blacklist %s request: %w", action, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.observe("error", start)
		return domain.Unavailable(domain.ProviderWashTrade, err)
	}
	defer resp.Body.Close()

	var wire blacklistResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		c.observe("malformed", start)
		return domain.Malformed(domain.ProviderWashTrade, fmt.Errorf("decode blacklist %s response: %w", action, err))
	}
	if !wire.Success {
		c.observe("error", start)
		return domain.Unavailable(domain.ProviderWashTrade, fmt.Errorf("blacklist %s not acknowledged", action))
	}

	c.observe("ok", start)
	return nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.observe("error", start)
		return nil, domain.Unavailable(domain.ProviderWashTrade, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.observe("error", start)
		return nil, domain.Unavailable(domain.ProviderWashTrade, fmt.Errorf("read response: %w", err))
	}

	c.observe("ok", start)
	return raw, nil
}

// parseAssessment converts the untyped wire payload into a validated
// domain.WashTradeAssessment, rejecting missing or out-of-range fields.
func parseAssessment(raw []byte) (*domain.WashTradeAssessment, error) {
	var wire creditResponse
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, domain.Malformed(domain.ProviderWashTrade, fmt.Errorf("decode credit response: %w", err))
	}
	if wire.AdjustedScore == nil {
		return nil, domain.Malformed(domain.ProviderWashTrade, fmt.Errorf("adjusted_score missing"))
	}
	if wire.Penalty == nil {
		return nil, domain.Malformed(domain.ProviderWashTrade, fmt.Errorf("penalty missing"))
	}
	if wire.WashTradeData == nil {
		return nil, domain.Malformed(domain.ProviderWashTrade, fmt.Errorf("wash_trade_data missing"))
	}
	if wire.Recommendation == nil {
		return nil, domain.Malformed(domain.ProviderWashTrade, fmt.Errorf("recommendation missing"))
	}

	assessment := &domain.WashTradeAssessment{
		Detected:      wire.WashTradeData.Detected,
		Count:         wire.WashTradeData.Count,
		Volume:        wire.WashTradeData.Volume,
		AdjustedScore: *wire.AdjustedScore,
		Penalty:       *wire.Penalty,
		Recommendation: domain.Recommendation{
			LendingRisk:            domain.LendingRisk(wire.Recommendation.LendingRisk),
			MaxLoanAmount:          wire.Recommendation.MaxLoanAmount,
			InterestRateAdjustment: wire.Recommendation.InterestRateAdjustment,
		},
	}
	if err := assessment.Validate(); err != nil {
		return nil, domain.Malformed(domain.ProviderWashTrade, err)
	}
	return assessment, nil
}

func (c *Client) observe(outcome string, start time.Time) {
	if c.metrics != nil {
		c.metrics.ObserveUpstream(domain.ProviderWashTrade, outcome, time.Since(start))
		if outcome != "ok" {
			c.metrics.ObserveUpstreamFailure(domain.ProviderWashTrade, outcome)
		}
	}
}
