package handlers

import (
	"net/http"
	"time"

	httpContracts "github.com/duskolend/creditd/internal/http"
)

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	providers := make(map[string]httpContracts.ProviderHealth, len(h.providers))
	for name, baseURL := range h.providers {
		providers[name] = httpContracts.ProviderHealth{Name: name, BaseURL: baseURL}
	}

	h.writeJSON(w, http.StatusOK, httpContracts.HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Providers: providers,
	})
}
