package basescore

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

func TestFetchBaseScore_OK(t *testing.T) {
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/eth/credit-score", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"credit_score": 72.5,
			"feature_importance": map[string]float64{
				"balance_ether":      0.3,
				"total_transactions": 0.25,
			},
			"is_professional": false,
			"probability":     0.12,
		})
	}))
	defer server.Close()

	score, err := newTestClient(server.URL).FetchBaseScore(context.Background(), testAddress)
	require.NoError(t, err)

	assert.Equal(t, testAddress, gotBody["address"])
	assert.Equal(t, 72.5, score.Score)
	assert.Equal(t, 0.3, score.FeatureImportance["balance_ether"])
	assert.Equal(t, testAddress, score.Address)
}

func TestFetchBaseScore_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchBaseScore(context.Background(), testAddress)
	require.Error(t, err)

	upstream, ok := domain.AsUpstreamError(err)
	require.True(t, ok)
	assert.Equal(t, domain.ProviderBaseScore, upstream.Provider)
	assert.True(t, upstream.IsUnavailable())
}

func TestFetchBaseScore_Unreachable(t *testing.T) {
	// Closed port: transport-level failure.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, err := newTestClient(server.URL).FetchBaseScore(context.Background(), testAddress)
	require.Error(t, err)

	upstream, ok := domain.AsUpstreamError(err)
	require.True(t, ok)
	assert.True(t, upstream.IsUnavailable())
}

func TestFetchBaseScore_MissingScore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"feature_importance": map[string]float64{},
		})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchBaseScore(context.Background(), testAddress)
	require.Error(t, err)

	upstream, ok := domain.AsUpstreamError(err)
	require.True(t, ok)
	assert.True(t, upstream.IsMalformed())
}

func TestFetchBaseScore_ScoreOutOfRange(t *testing.T) {
	// Out-of-range scores are rejected, never clamped.
	for _, score := range []float64{-1, 120} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{"credit_score": score})
		}))

		_, err := newTestClient(server.URL).FetchBaseScore(context.Background(), testAddress)
		server.Close()

		require.Error(t, err, "score %.1f", score)
		upstream, ok := domain.AsUpstreamError(err)
		require.True(t, ok)
		assert.True(t, upstream.IsMalformed(), "score %.1f", score)
	}
}

func TestFetchBaseScore_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchBaseScore(context.Background(), testAddress)
	require.Error(t, err)

	upstream, ok := domain.AsUpstreamError(err)
	require.True(t, ok)
	assert.True(t, upstream.IsMalformed())
}

func TestFetchBaseScore_ZeroScoreIsValid(t *testing.T) {
	// A present zero is a legitimate score, distinct from a missing field.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"credit_score": 0})
	}))
	defer server.Close()

	score, err := newTestClient(server.URL).FetchBaseScore(context.Background(), testAddress)
	require.NoError(t, err)
	assert.Equal(t, 0.0, score.Score)
}
