package domain

import (
	"errors"
	"fmt"
)

// Upstream provider names, used in errors and metrics labels.
const (
	ProviderBaseScore = "base_score"
	ProviderWashTrade = "wash_trade"
)

// ErrInvalidAddress is returned before any upstream call when the supplied
// address fails basic format validation.
var ErrInvalidAddress = errors.New("invalid account address")

// UpstreamError classifies a failure talking to one of the two upstream
// providers. Kind separates transport-level unavailability from payloads
// that arrived but violate the documented contract.
type UpstreamError struct {
	Provider   string // "base_score" or "wash_trade"
	Kind       string // "unavailable" or "malformed"
	StatusCode int    // non-zero for HTTP status failures
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s provider %s (HTTP %d): %v", e.Provider, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s provider %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IsUnavailable reports whether the provider could not be reached or
// answered non-2xx.
func (e *UpstreamError) IsUnavailable() bool { return e.Kind == "unavailable" }

// IsMalformed reports whether the provider answered with a payload that
// violates its documented contract.
func (e *UpstreamError) IsMalformed() bool { return e.Kind == "malformed" }

// Unavailable wraps a transport/HTTP failure for the named provider.
func Unavailable(provider string, err error) *UpstreamError {
	return &UpstreamError{Provider: provider, Kind: "unavailable", Err: err}
}

// Malformed wraps a contract violation in the named provider's payload.
func Malformed(provider string, err error) *UpstreamError {
	return &UpstreamError{Provider: provider, Kind: "malformed", Err: err}
}

// InvariantError reports a detector response whose adjusted score is
// inconsistent with baseScore - penalty. Surfaced loudly instead of
// trusting the detector: upstream inconsistency must not silently corrupt
// a lending decision.
type InvariantError struct {
	Address   string
	BaseScore float64
	Penalty   float64
	Adjusted  float64
	Detected  bool
}

func (e *InvariantError) Error() string {
	if e.Detected {
		return fmt.Sprintf("inconsistent assessment for %s: adjusted_score %.4f != base %.4f - penalty %.4f",
			e.Address, e.Adjusted, e.BaseScore, e.Penalty)
	}
	return fmt.Sprintf("inconsistent assessment for %s: adjusted_score %.4f != base %.4f with no detection",
		e.Address, e.Adjusted, e.BaseScore)
}

// AsUpstreamError unwraps err into an *UpstreamError if there is one.
func AsUpstreamError(err error) (*UpstreamError, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}
