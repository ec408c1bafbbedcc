package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/rowgate-io/rowgate/pkg/auth"
	"github.com/rowgate-io/rowgate/pkg/services"
)

// RowsHandler serves paginated table browsing.
type RowsHandler struct {
	browse services.BrowseService
	logger *zap.Logger
}

// NewRowsHandler creates a new RowsHandler.
func NewRowsHandler(browse services.BrowseService, logger *zap.Logger) *RowsHandler {
	return &RowsHandler{browse: browse, logger: logger.Named("rows-handler")}
}

// RegisterRoutes registers the handler's routes on the given mux.
func (h *RowsHandler) RegisterRoutes(mux *http.ServeMux, requireAuth func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("POST /api/rows", requireAuth(h.Rows))
}

// Rows handles POST /api/rows.
func (h *RowsHandler) Rows(w http.ResponseWriter, r *http.Request) {
	user, err := auth.RequireUser(r.Context())
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	var req services.BrowseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	result, err := h.browse.Browse(r.Context(), user, &req)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
