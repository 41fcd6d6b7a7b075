// Package handlers implements the creditd HTTP endpoint handlers.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/duskolend/creditd/internal/domain"
	httpContracts "github.com/duskolend/creditd/internal/http"
	"github.com/duskolend/creditd/internal/persistence/snapshot"
	"github.com/duskolend/creditd/internal/score"
)

// Handlers holds the endpoint dependencies.
type Handlers struct {
	engine    *score.Engine
	snapshots *snapshot.Store // nil when snapshots are disabled
	version   string
	started   time.Time
	providers map[string]string // provider name -> base URL, for /health
}

// NewHandlers creates the handler set. snapshots may be nil.
func NewHandlers(engine *score.Engine, snapshots *snapshot.Store, version string, providers map[string]string) *Handlers {
	return &Handlers{
		engine:    engine,
		snapshots: snapshots,
		version:   version,
		started:   time.Now(),
		providers: providers,
	}
}

// writeJSON writes a JSON response with proper error handling.
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, `{"error":"json_encoding_failed"}`, http.StatusInternalServerError)
	}
}

// writeError writes the standardized error response.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	requestID, _ := r.Context().Value("request_id").(string)
	if requestID == "" {
		requestID = "unknown"
	}

	h.writeJSON(w, status, httpContracts.ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      code,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
	})
}

// writeEngineError maps engine failures onto the HTTP error taxonomy. No
// fallback score is ever synthesized: callers get the typed failure and
// decide their own retry UX.
func (h *Handlers) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrInvalidAddress) {
		h.writeError(w, r, http.StatusBadRequest, httpContracts.CodeInvalidAddress, err.Error())
		return
	}

	var invariant *domain.InvariantError
	if errors.As(err, &invariant) {
		h.writeError(w, r, http.StatusBadGateway, httpContracts.CodeInvariantViolation, err.Error())
		return
	}

	if upstream, ok := domain.AsUpstreamError(err); ok {
		code := httpContracts.CodeUpstreamWashTrade
		if upstream.Provider == domain.ProviderBaseScore {
			code = httpContracts.CodeUpstreamBaseScore
		}
		if upstream.IsMalformed() {
			code = httpContracts.CodeMalformedUpstream
		}
		h.writeError(w, r, http.StatusBadGateway, code, err.Error())
		return
	}

	h.writeError(w, r, http.StatusInternalServerError, httpContracts.CodeInternal, err.Error())
}

// NotFound handles unmatched routes.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, http.StatusNotFound, httpContracts.CodeNotFound,
		"The requested endpoint does not exist")
}
