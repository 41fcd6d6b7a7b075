package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/duskolend/creditd/internal/domain"
	httpContracts "github.com/duskolend/creditd/internal/http"
)

type blacklistMutation func(ctx context.Context, address, token string, baseScore float64) (*domain.WashTradeAssessment, error)

// BlacklistAdd handles POST /blacklist/add. Flags the (address, token)
// pair in the detector's blacklist store and returns the post-mutation
// assessment.
func (h *Handlers) BlacklistAdd(w http.ResponseWriter, r *http.Request) {
	h.mutateBlacklist(w, r, h.engine.FlagAddress)
}

// BlacklistRemove handles POST /blacklist/remove.
func (h *Handlers) BlacklistRemove(w http.ResponseWriter, r *http.Request) {
	h.mutateBlacklist(w, r, h.engine.ClearFlag)
}

func (h *Handlers) mutateBlacklist(w http.ResponseWriter, r *http.Request, mutate blacklistMutation) {
	var req httpContracts.BlacklistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, httpContracts.CodeBadRequest,
			"request body must be JSON with address, optional token, and base_score")
		return
	}
	if req.BaseScore == nil {
		h.writeError(w, r, http.StatusBadRequest, httpContracts.CodeBadRequest,
			"base_score is required: the refreshed assessment is computed against it")
		return
	}

	assessment, err := mutate(r.Context(), req.Address, req.Token, *req.BaseScore)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, httpContracts.BlacklistResponse{
		Address:    domain.NormalizeAddress(req.Address),
		Token:      req.Token,
		Assessment: assessment,
		Timestamp:  time.Now().UTC(),
	})
}
