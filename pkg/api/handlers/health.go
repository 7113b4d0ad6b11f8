package handlers

import (
	"net/http"
	"time"

	"github.com/marmos91/ecuserver/pkg/module"
)

// StatusProvider reports the state of the running echo module.
// *module.Module implements it.
type StatusProvider interface {
	Status() module.Status
}

// LivenessData is the payload of GET /health.
type LivenessData struct {
	Service   string `json:"service"`
	StartedAt string `json:"started_at"`
	Uptime    string `json:"uptime"`
	UptimeSec int64  `json:"uptime_sec"`
}

// HealthHandler handles health check endpoints.
//
// Health endpoints are unauthenticated and provide:
//   - Liveness probe: Is the server process running?
//   - Readiness probe: Is the echo listener accepting connections?
type HealthHandler struct {
	provider  StatusProvider
	startedAt time.Time
}

// NewHealthHandler creates a new health handler.
//
// The provider may be nil, in which case the readiness probe reports
// unhealthy.
func NewHealthHandler(provider StatusProvider) *HealthHandler {
	return &HealthHandler{provider: provider, startedAt: time.Now()}
}

// Liveness handles GET /health - simple liveness probe.
//
// Returns 200 OK as long as the HTTP server is responsive.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.startedAt)
	writeJSON(w, http.StatusOK, healthyResponse(LivenessData{
		Service:   "ecuserver",
		StartedAt: h.startedAt.UTC().Format(time.RFC3339),
		Uptime:    uptime.Round(time.Second).String(),
		UptimeSec: int64(uptime.Seconds()),
	}))
}

// Readiness handles GET /health/ready - readiness probe.
//
// Returns 200 OK with the module status while the module is running, and
// 503 Service Unavailable before Init completes or once Unload has begun.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("module not initialized"))
		return
	}

	st := h.provider.Status()
	if !st.Running() {
		writeJSON(w, http.StatusServiceUnavailable,
			unhealthyResponseWithData("module is "+st.State, st))
		return
	}

	writeJSON(w, http.StatusOK, healthyResponse(st))
}
