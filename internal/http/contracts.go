package http

import (
	"time"

	"github.com/duskolend/creditd/internal/domain"
)

// ErrorResponse is the standardized error payload for all endpoints.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Code      string    `json:"code"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Error codes returned in ErrorResponse.Code.
const (
	CodeInvalidAddress     = "invalid_address"
	CodeUpstreamBaseScore  = "upstream_base_score_failure"
	CodeUpstreamWashTrade  = "upstream_wash_trade_failure"
	CodeMalformedUpstream  = "malformed_upstream_response"
	CodeInvariantViolation = "invariant_violation"
	CodeSnapshotNotFound   = "snapshot_not_found"
	CodeSnapshotsDisabled  = "snapshots_disabled"
	CodeBadRequest         = "bad_request"
	CodeNotFound           = "endpoint_not_found"
	CodeInternal           = "internal_error"
)

// ScoreResponse wraps a combined score result.
type ScoreResponse struct {
	Result    *domain.CombinedScoreResult `json:"result"`
	Timestamp time.Time                   `json:"timestamp"`
}

// BlacklistRequest is the body of POST /blacklist/add and /blacklist/remove.
// BaseScore is the base score the caller already holds; the refreshed
// assessment is computed against it.
type BlacklistRequest struct {
	Address   string   `json:"address"`
	Token     string   `json:"token,omitempty"`
	BaseScore *float64 `json:"base_score"`
}

// BlacklistResponse reports the refreshed assessment after a mutation.
type BlacklistResponse struct {
	Address    string                      `json:"address"`
	Token      string                      `json:"token"`
	Assessment *domain.WashTradeAssessment `json:"assessment"`
	Timestamp  time.Time                   `json:"timestamp"`
}

// SnapshotResponse wraps the last stored decision for an address. It may
// lag the live score and is not a substitute for one.
type SnapshotResponse struct {
	Result    *domain.CombinedScoreResult `json:"result"`
	Timestamp time.Time                   `json:"timestamp"`
}

// HealthResponse reports service liveness and upstream configuration.
type HealthResponse struct {
	Status    string                    `json:"status"`
	Version   string                    `json:"version"`
	Timestamp time.Time                 `json:"timestamp"`
	Uptime    string                    `json:"uptime"`
	Providers map[string]ProviderHealth `json:"providers"`
}

// ProviderHealth describes one configured upstream.
type ProviderHealth struct {
	Name    string `json:"name"`
	BaseURL string `json:"base_url"`
}
