package api

import (
	"net/http"

	"github.com/phrazzld/chunkr/internal/api/shared"
)

// HealthResponse is the body of the health endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	AppName string `json:"app_name"`
	Version string `json:"version"`
}

// HealthHandler reports liveness.
type HealthHandler struct {
	appName string
	version string
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(appName, version string) *HealthHandler {
	return &HealthHandler{appName: appName, version: version}
}

// Health handles GET / and GET /health requests
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{
		Status:  "healthy",
		AppName: h.appName,
		Version: h.version,
	})
}
