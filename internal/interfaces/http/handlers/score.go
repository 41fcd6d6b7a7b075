package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	httpContracts "github.com/duskolend/creditd/internal/http"
)

// Score handles GET /score/{address}?token=SYMBOL. It always performs a
// live fusion: base score fetch, then wash-trade assessment, then the
// derived lending decision.
func (h *Handlers) Score(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	token := r.URL.Query().Get("token")

	result, err := h.engine.ComputeCombinedScore(r.Context(), address, token)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, httpContracts.ScoreResponse{
		Result:    result,
		Timestamp: time.Now().UTC(),
	})
}
