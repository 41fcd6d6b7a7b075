package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// RiskLevel is the discretized risk tier driving lending terms.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskVeryHigh RiskLevel = "very_high"
)

// LendingRisk is the detector's qualitative lending-risk flag. Unlike
// RiskLevel it has no "very_high" tier.
type LendingRisk string

const (
	LendingRiskLow    LendingRisk = "low"
	LendingRiskMedium LendingRisk = "medium"
	LendingRiskHigh   LendingRisk = "high"
)

// BaseScore is the unconditioned creditworthiness estimate returned by the
// base score provider, before any manipulation-detection adjustment.
type BaseScore struct {
	Address           string             `json:"address"`
	Score             float64            `json:"score"`
	FeatureImportance map[string]float64 `json:"feature_importance,omitempty"`
}

// Recommendation carries the detector's pre-computed lending terms.
type Recommendation struct {
	LendingRisk            LendingRisk `json:"lending_risk"`
	MaxLoanAmount          float64     `json:"max_loan_amount"`
	InterestRateAdjustment float64     `json:"interest_rate_adjustment"`
}

// WashTradeAssessment is the wash-trade detector's verdict for one
// (address, token, baseScore) triple. Immutable once received.
type WashTradeAssessment struct {
	Detected       bool           `json:"detected"`
	Count          int            `json:"count"`
	Volume         float64        `json:"volume"`
	AdjustedScore  float64        `json:"adjusted_score"`
	Penalty        float64        `json:"penalty"`
	Recommendation Recommendation `json:"recommendation"`
}

// CombinedScoreResult is the fusion engine's sole output. Constructed once
// per request and never mutated afterwards.
type CombinedScoreResult struct {
	Address                 string    `json:"address"`
	Token                   string    `json:"token"`
	BaseScore               float64   `json:"base_score"`
	WashTradePenalty        float64   `json:"wash_trade_penalty"`
	FinalScore              float64   `json:"final_score"`
	RiskLevel               RiskLevel `json:"risk_level"`
	RecommendedInterestRate float64   `json:"recommended_interest_rate"`
	MaxLoanAmount           float64   `json:"max_loan_amount"`
	Explanation             string    `json:"explanation"`
}

var evmAddressRe = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// ValidAddress reports whether addr is a syntactically valid EVM account
// identifier. Checksum casing is not enforced; addresses compare
// case-insensitively.
func ValidAddress(addr string) bool {
	return evmAddressRe.MatchString(strings.TrimSpace(addr))
}

// NormalizeAddress lowercases and trims an address for comparison keys.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// ValidScore reports whether s is inside the documented [0,100] score range.
func ValidScore(s float64) bool {
	return s >= 0 && s <= 100
}

// Validate rejects base scores outside the documented contract. Violations
// are hard failures at the boundary, never clamped: silent clamping would
// mask upstream bugs that directly affect lending exposure.
func (b BaseScore) Validate() error {
	if !ValidScore(b.Score) {
		return fmt.Errorf("credit_score %.4f outside [0,100]", b.Score)
	}
	for feature, weight := range b.FeatureImportance {
		if weight < 0 || weight > 1 {
			return fmt.Errorf("feature_importance[%s] = %.4f outside [0,1]", feature, weight)
		}
	}
	return nil
}

// Validate rejects assessments that break the detector's documented contract.
func (a WashTradeAssessment) Validate() error {
	if !ValidScore(a.AdjustedScore) {
		return fmt.Errorf("adjusted_score %.4f outside [0,100]", a.AdjustedScore)
	}
	if a.Penalty < 0 {
		return fmt.Errorf("penalty %.4f is negative", a.Penalty)
	}
	if a.Count < 0 {
		return fmt.Errorf("count %d is negative", a.Count)
	}
	if a.Volume < 0 {
		return fmt.Errorf("volume %.4f is negative", a.Volume)
	}
	switch a.Recommendation.LendingRisk {
	case LendingRiskLow, LendingRiskMedium, LendingRiskHigh:
	default:
		return fmt.Errorf("unknown lending_risk %q", a.Recommendation.LendingRisk)
	}
	if a.Recommendation.MaxLoanAmount < 0 {
		return fmt.Errorf("max_loan_amount %.4f is negative", a.Recommendation.MaxLoanAmount)
	}
	return nil
}
