package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/rowgate-io/rowgate/pkg/auth"
	"github.com/rowgate-io/rowgate/pkg/services"
)

// DashboardHandler serves aggregated block metrics.
type DashboardHandler struct {
	dashboard services.DashboardService
	logger    *zap.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboard services.DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, logger: logger.Named("dashboard-handler")}
}

// RegisterRoutes registers the handler's routes on the given mux.
func (h *DashboardHandler) RegisterRoutes(mux *http.ServeMux, requireAuth func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("GET /api/dashboard/metrics", requireAuth(h.Metrics))
}

// Metrics handles GET /api/dashboard/metrics?database=&periodType=&periodId=.
func (h *DashboardHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	user, err := auth.RequireUser(r.Context())
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	q := r.URL.Query()
	db := q.Get("database")
	periodType := q.Get("periodType")
	periodID := q.Get("periodId")
	if db == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "database is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if periodType == "" {
		periodType = services.PeriodAll
	}

	metrics, err := h.dashboard.Metrics(r.Context(), user, db, periodType, periodID)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: metrics}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
