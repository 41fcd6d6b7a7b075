package domain

import (
	"errors"
	"testing"
)

func TestValidAddress(t *testing.T) {
	valid := []string{
		"0x1234567890abcdef1234567890abcdef12345678",
		"0x1234567890ABCDEF1234567890ABCDEF12345678",
		"  0x1234567890abcdef1234567890abcdef12345678  ",
	}
	for _, addr := range valid {
		if !ValidAddress(addr) {
			t.Errorf("expected %q to be valid", addr)
		}
	}

	invalid := []string{
		"",
		"0x",
		"0x123",
		"1234567890abcdef1234567890abcdef12345678",
		"0x1234567890abcdef1234567890abcdef1234567",   // 39 chars
		"0x1234567890abcdef1234567890abcdef123456789", // 41 chars
		"0x1234567890abcdef1234567890abcdef1234567g",  // non-hex
	}
	for _, addr := range invalid {
		if ValidAddress(addr) {
			t.Errorf("expected %q to be invalid", addr)
		}
	}
}

func TestNormalizeAddress(t *testing.T) {
	got := NormalizeAddress("  0xABCdef1234567890ABCDEF1234567890abcdef12 ")
	want := "0xabcdef1234567890abcdef1234567890abcdef12"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBaseScoreValidate(t *testing.T) {
	ok := BaseScore{Address: "0xabc", Score: 72, FeatureImportance: map[string]float64{
		"balance_ether":      0.3,
		"total_transactions": 0.7,
	}}
	if err := ok.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, score := range []float64{-0.01, 100.01, 250} {
		bad := BaseScore{Score: score}
		if err := bad.Validate(); err == nil {
			t.Errorf("score %.2f: expected range error", score)
		}
	}

	badWeight := BaseScore{Score: 50, FeatureImportance: map[string]float64{"sent": 1.5}}
	if err := badWeight.Validate(); err == nil {
		t.Error("expected feature importance range error")
	}
}

func TestWashTradeAssessmentValidate(t *testing.T) {
	ok := WashTradeAssessment{
		Detected:      true,
		Count:         3,
		Volume:        120.5,
		AdjustedScore: 50,
		Penalty:       40,
		Recommendation: Recommendation{
			LendingRisk:            LendingRiskHigh,
			MaxLoanAmount:          1.5,
			InterestRateAdjustment: -2,
		},
	}
	if err := ok.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := map[string]WashTradeAssessment{
		"score out of range": {AdjustedScore: 101, Recommendation: Recommendation{LendingRisk: LendingRiskLow}},
		"negative penalty":   {AdjustedScore: 50, Penalty: -1, Recommendation: Recommendation{LendingRisk: LendingRiskLow}},
		"negative count":     {AdjustedScore: 50, Count: -1, Recommendation: Recommendation{LendingRisk: LendingRiskLow}},
		"negative volume":    {AdjustedScore: 50, Volume: -1, Recommendation: Recommendation{LendingRisk: LendingRiskLow}},
		"bad lending risk":   {AdjustedScore: 50, Recommendation: Recommendation{LendingRisk: "extreme"}},
		"negative max loan":  {AdjustedScore: 50, Recommendation: Recommendation{LendingRisk: LendingRiskLow, MaxLoanAmount: -3}},
	}
	for name, assessment := range cases {
		if err := assessment.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestUpstreamErrorClassification(t *testing.T) {
	unavailable := Unavailable(ProviderBaseScore, errTest)
	if !unavailable.IsUnavailable() || unavailable.IsMalformed() {
		t.Error("expected unavailable classification")
	}

	malformed := Malformed(ProviderWashTrade, errTest)
	if !malformed.IsMalformed() || malformed.IsUnavailable() {
		t.Error("expected malformed classification")
	}

	if _, ok := AsUpstreamError(errTest); ok {
		t.Error("plain error should not unwrap to UpstreamError")
	}
	if ue, ok := AsUpstreamError(malformed); !ok || ue.Provider != ProviderWashTrade {
		t.Error("expected to unwrap UpstreamError")
	}
}

var errTest = errors.New("test failure")
