// Package health queries the ecuserver health endpoints for CLI commands.
package health

import (
	"github.com/marmos91/ecuserver/pkg/module"
)

// Response is the body of GET /health.
type Response struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Data      struct {
		Service   string `json:"service"`
		StartedAt string `json:"started_at"`
		Uptime    string `json:"uptime"`
		UptimeSec int64  `json:"uptime_sec"`
	} `json:"data"`
	Error string `json:"error,omitempty"`
}

// ReadyResponse is the body of GET /health/ready. Data is present when the
// module exists, including while it is unloading.
type ReadyResponse struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	Data      *module.Status `json:"data,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Healthy reports whether the probe succeeded.
func (r *Response) Healthy() bool { return r.Status == "healthy" }

// Ready reports whether the module is serving.
func (r *ReadyResponse) Ready() bool { return r.Status == "healthy" }
