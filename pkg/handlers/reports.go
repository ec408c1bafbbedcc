package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rowgate-io/rowgate/pkg/auth"
	"github.com/rowgate-io/rowgate/pkg/models"
	"github.com/rowgate-io/rowgate/pkg/repositories"
	"github.com/rowgate-io/rowgate/pkg/services"
)

// ReportsHandler serves report block management and execution.
type ReportsHandler struct {
	reports services.ReportService
	blocks  repositories.ReportBlockRepository
	logger  *zap.Logger
}

// NewReportsHandler creates a new ReportsHandler.
func NewReportsHandler(reports services.ReportService, blocks repositories.ReportBlockRepository, logger *zap.Logger) *ReportsHandler {
	return &ReportsHandler{reports: reports, blocks: blocks, logger: logger.Named("reports-handler")}
}

// RegisterRoutes registers the handler's routes on the given mux.
// Block management is admin-only; running a block is open to any
// authenticated user and goes through the access gate per table.
func (h *ReportsHandler) RegisterRoutes(mux *http.ServeMux, requireAuth, requireAdmin func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("POST /api/reports/blocks/{id}/run", requireAuth(h.Run))
	mux.HandleFunc("GET /api/reports/blocks", requireAuth(h.List))
	mux.HandleFunc("POST /api/reports/blocks", requireAdmin(h.Create))
	mux.HandleFunc("DELETE /api/reports/blocks/{id}", requireAdmin(h.Delete))
}

// RunBlockRequest is the payload for running a block. The body is
// optional; an absent page runs the first one.
type RunBlockRequest struct {
	Page int `json:"page,omitempty"`
}

// Run handles POST /api/reports/blocks/{id}/run.
func (h *ReportsHandler) Run(w http.ResponseWriter, r *http.Request) {
	user, err := auth.RequireUser(r.Context())
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	blockID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_block_id", "Invalid block ID"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	var req RunBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	result, err := h.reports.RunBlock(r.Context(), user, blockID, req.Page)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/reports/blocks.
func (h *ReportsHandler) List(w http.ResponseWriter, r *http.Request) {
	blocks, err := h.blocks.List(r.Context())
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	if blocks == nil {
		blocks = []*models.ReportBlock{}
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: blocks}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// CreateReportBlockRequest is the payload for creating a block.
type CreateReportBlockRequest struct {
	Name      string          `json:"name"`
	Kind      string          `json:"kind"`
	Database  string          `json:"database"`
	TableName string          `json:"table_name"`
	Filters   json.RawMessage `json:"filters,omitempty"`
	Join      json.RawMessage `json:"join,omitempty"`
	SortBy    string          `json:"sort_by,omitempty"`
	SortDesc  bool            `json:"sort_desc,omitempty"`
}

// Create handles POST /api/reports/blocks.
func (h *ReportsHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := auth.RequireUser(r.Context())
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	var req CreateReportBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if req.Name == "" || req.Database == "" || req.TableName == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "name, database and table_name are required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	switch req.Kind {
	case models.BlockKindTable, models.BlockKindChart, models.BlockKindMetric:
	default:
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "kind must be table, chart or metric"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	block := &models.ReportBlock{
		Name:      req.Name,
		Kind:      req.Kind,
		Database:  req.Database,
		TableName: req.TableName,
		Filters:   req.Filters,
		Join:      req.Join,
		SortBy:    req.SortBy,
		SortDesc:  req.SortDesc,
		CreatedBy: user.ID,
	}
	if err := h.blocks.Create(r.Context(), block); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: block}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/reports/blocks/{id}.
func (h *ReportsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	blockID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_block_id", "Invalid block ID"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.blocks.Delete(r.Context(), blockID); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: map[string]string{"status": "deleted"}}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
