package washtrade

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskolend/creditd/internal/domain"
)

const testAddress = "0x1234567890abcdef1234567890abcdef12345678"

func newTestClient(baseURL string) *Client {
	return NewClient(Config{BaseURL: baseURL}, nil)
}

func validCreditPayload() map[string]interface{} {
	return map[string]interface{}{
		"adjusted_score": 50.0,
		"penalty":        40.0,
		"wash_trade_data": map[string]interface{}{
			"detected": true,
			"count":    12,
			"volume":   3450.0,
		},
		"recommendation": map[string]interface{}{
			"lending_risk":             "high",
			"max_loan_amount":          1.5,
			"interest_rate_adjustment": 8.0,
		},
	}
}

func TestFetchAssessment_OK(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(validCreditPayload())
	}))
	defer server.Close()

	assessment, err := newTestClient(server.URL).FetchAssessment(context.Background(), "LINK", testAddress, 90)
	require.NoError(t, err)

	assert.Equal(t, "/credit/LINK/"+testAddress+"/90", gotPath,
		"base score travels to the detector in the request path")
	assert.True(t, assessment.Detected)
	assert.Equal(t, 12, assessment.Count)
	assert.Equal(t, 3450.0, assessment.Volume)
	assert.Equal(t, 50.0, assessment.AdjustedScore)
	assert.Equal(t, 40.0, assessment.Penalty)
	assert.Equal(t, domain.LendingRiskHigh, assessment.Recommendation.LendingRisk)
	assert.Equal(t, 1.5, assessment.Recommendation.MaxLoanAmount)
	assert.Equal(t, 8.0, assessment.Recommendation.InterestRateAdjustment)
}

func TestFetchAssessment_FractionalBaseScore(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(validCreditPayload())
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchAssessment(context.Background(), "LINK", testAddress, 72.5)
	require.NoError(t, err)
	assert.Equal(t, "/credit/LINK/"+testAddress+"/72.5", gotPath)
}

func TestFetchAssessment_MissingFields(t *testing.T) {
	for _, missing := range []string{"adjusted_score", "penalty", "wash_trade_data", "recommendation"} {
		payload := validCreditPayload()
		delete(payload, missing)

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(payload)
		}))

		_, err := newTestClient(server.URL).FetchAssessment(context.Background(), "LINK", testAddress, 90)
		server.Close()

		require.Error(t, err, "missing %s", missing)
		upstream, ok := domain.AsUpstreamError(err)
		require.True(t, ok, "missing %s", missing)
		assert.True(t, upstream.IsMalformed(), "missing %s", missing)
	}
}

func TestFetchAssessment_UnknownLendingRisk(t *testing.T) {
	payload := validCreditPayload()
	payload["recommendation"].(map[string]interface{})["lending_risk"] = "catastrophic"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchAssessment(context.Background(), "LINK", testAddress, 90)
	require.Error(t, err)

	upstream, ok := domain.AsUpstreamError(err)
	require.True(t, ok)
	assert.True(t, upstream.IsMalformed())
}

func TestFetchAssessment_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "detector offline", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchAssessment(context.Background(), "LINK", testAddress, 90)
	require.Error(t, err)

	upstream, ok := domain.AsUpstreamError(err)
	require.True(t, ok)
	assert.Equal(t, domain.ProviderWashTrade, upstream.Provider)
	assert.True(t, upstream.IsUnavailable())
}

func TestAddToBlacklist_OK(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	}))
	defer server.Close()

	err := newTestClient(server.URL).AddToBlacklist(context.Background(), testAddress, "LINK")
	require.NoError(t, err)

	assert.Equal(t, "/blacklist/add", gotPath)
	assert.Equal(t, testAddress, gotBody["address"])
	assert.Equal(t, "LINK", gotBody["token"])
}

func TestRemoveFromBlacklist_OK(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	}))
	defer server.Close()

	err := newTestClient(server.URL).RemoveFromBlacklist(context.Background(), testAddress, "LINK")
	require.NoError(t, err)
	assert.Equal(t, "/blacklist/remove", gotPath)
}

func TestBlacklist_NotAcknowledged(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"success": false})
	}))
	defer server.Close()

	err := newTestClient(server.URL).AddToBlacklist(context.Background(), testAddress, "LINK")
	require.Error(t, err)

	upstream, ok := domain.AsUpstreamError(err)
	require.True(t, ok)
	assert.True(t, upstream.IsUnavailable())
}

func TestCheckBlacklist(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/blacklist/check/"+testAddress, r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{"detected": true, "penalty": 25.0})
	}))
	defer server.Close()

	detected, err := newTestClient(server.URL).CheckBlacklist(context.Background(), testAddress)
	require.NoError(t, err)
	assert.True(t, detected)
}
