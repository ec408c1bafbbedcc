package handlers

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/rowgate-io/rowgate/pkg/config"
)

// PingResponse describes the running engine: version, environment and
// how many datasources it is configured to front.
type PingResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Service     string `json:"service"`
	GoVersion   string `json:"go_version"`
	Hostname    string `json:"hostname"`
	Environment string `json:"environment"`
	Sources     int    `json:"sources"`
	Uptime      string `json:"uptime"`
}

// HealthHandler handles health check and ping endpoints.
type HealthHandler struct {
	cfg     *config.Config
	started time.Time
	logger  *zap.Logger
}

// NewHealthHandler creates a new HealthHandler with the given configuration.
func NewHealthHandler(cfg *config.Config, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, started: time.Now(), logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/ping", h.Ping)
}

// Health handles GET /health requests.
// Returns a simple "ok" status for load balancer health checks.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ping handles GET /ping requests. The answer uses the same response
// envelope as the API proper. Hostname lookup failures degrade to
// "unknown" rather than failing the probe.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	ping := PingResponse{
		Status:      "ok",
		Version:     h.cfg.Version,
		Service:     "rowgate",
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
		Environment: h.cfg.Env,
		Sources:     len(h.cfg.Sources),
		Uptime:      time.Since(h.started).Round(time.Second).String(),
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: ping}); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}
