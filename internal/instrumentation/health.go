package instrumentation

import (
	"encoding/json"
	"net/http"
	"time"
)

// HealthPath is served next to the Prometheus endpoint.
const HealthPath = "/healthz"

// HealthResponse represents the JSON response of the health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Uptime  string `json:"uptime"`

	MetricsExporter string `json:"metrics_exporter,omitempty"`
	TracingExporter string `json:"tracing_exporter,omitempty"`
}

// HealthHandler returns an HTTP handler for the liveness endpoint. If the
// process can answer it is alive; the body reports what it exports.
func (p *Provider) HealthHandler() http.Handler {
	start := time.Now()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		response := HealthResponse{
			Status: "ok",
			Uptime: time.Since(start).Round(time.Second).String(),
		}
		if p != nil {
			response.Version = p.config.ServiceVersion
			if p.Enabled() {
				response.MetricsExporter = p.config.MetricsExporter
				response.TracingExporter = p.config.TracingExporter
			}
		}

		_ = json.NewEncoder(w).Encode(response)
	})
}
