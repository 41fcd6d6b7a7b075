package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	httpContracts "github.com/duskolend/creditd/internal/http"
	"github.com/duskolend/creditd/internal/persistence/snapshot"
)

// Snapshot handles GET /snapshot/{address}. It returns the last stored
// decision for the address, if any. Advisory only: the snapshot may lag a
// concurrent blacklist mutation and is never used in place of a live score.
func (h *Handlers) Snapshot(w http.ResponseWriter, r *http.Request) {
	if h.snapshots == nil {
		h.writeError(w, r, http.StatusNotImplemented, httpContracts.CodeSnapshotsDisabled,
			"snapshot store is not configured")
		return
	}

	address := mux.Vars(r)["address"]
	result, err := h.snapshots.Get(r.Context(), address)
	if errors.Is(err, snapshot.ErrNotFound) {
		h.writeError(w, r, http.StatusNotFound, httpContracts.CodeSnapshotNotFound,
			"no stored decision for this address")
		return
	}
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, httpContracts.CodeInternal, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, httpContracts.SnapshotResponse{
		Result:    result,
		Timestamp: time.Now().UTC(),
	})
}
