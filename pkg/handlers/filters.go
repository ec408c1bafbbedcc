package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rowgate-io/rowgate/pkg/apperrors"
	"github.com/rowgate-io/rowgate/pkg/auth"
	"github.com/rowgate-io/rowgate/pkg/models"
	"github.com/rowgate-io/rowgate/pkg/query"
	"github.com/rowgate-io/rowgate/pkg/repositories"
	safesql "github.com/rowgate-io/rowgate/pkg/sql"
)

// FiltersHandler manages saved filter definitions.
type FiltersHandler struct {
	filters repositories.FilterDefinitionRepository
	logger  *zap.Logger
}

// NewFiltersHandler creates a new FiltersHandler.
func NewFiltersHandler(filters repositories.FilterDefinitionRepository, logger *zap.Logger) *FiltersHandler {
	return &FiltersHandler{filters: filters, logger: logger.Named("filters-handler")}
}

// RegisterRoutes registers the handler's routes on the given mux. Reads
// need authentication; writes need admin.
func (h *FiltersHandler) RegisterRoutes(mux *http.ServeMux, requireAuth, requireAdmin func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("GET /api/filters", requireAuth(h.List))
	mux.HandleFunc("POST /api/filters", requireAdmin(h.Create))
	mux.HandleFunc("PUT /api/filters/{id}", requireAdmin(h.Update))
	mux.HandleFunc("DELETE /api/filters/{id}", requireAdmin(h.Delete))
}

// FilterDefinitionRequest is the payload for creating or updating a
// saved filter definition.
type FilterDefinitionRequest struct {
	Database  string `json:"database"`
	TableName string `json:"table_name"`
	Name      string `json:"name"`
	Column    string `json:"column"`
	Operator  string `json:"operator"`
	Value     any    `json:"value"`
}

func (req *FilterDefinitionRequest) validate() error {
	if req.Database == "" || req.TableName == "" {
		return fmt.Errorf("%w: database and table_name are required", apperrors.ErrInvalidValue)
	}
	if req.Name == "" {
		return fmt.Errorf("%w: name is required", apperrors.ErrInvalidValue)
	}
	if err := safesql.ValidateIdentifier(req.Column, safesql.KindColumn); err != nil {
		return err
	}
	if !query.KnownOperator(req.Operator) {
		return fmt.Errorf("%w: %q", apperrors.ErrInvalidOperator, req.Operator)
	}
	return nil
}

// List handles GET /api/filters?database=&table=.
func (h *FiltersHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	db := q.Get("database")
	table := q.Get("table")
	if db == "" || table == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "database and table are required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	defs, err := h.filters.ListForTable(r.Context(), db, table)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: defs}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Create handles POST /api/filters.
func (h *FiltersHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := auth.RequireUser(r.Context())
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	var req FilterDefinitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if err := req.validate(); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	def := &models.FilterDefinition{
		ID:        uuid.New(),
		Database:  req.Database,
		TableName: req.TableName,
		Name:      req.Name,
		Column:    req.Column,
		Operator:  req.Operator,
		Value:     req.Value,
		CreatedBy: user.ID,
	}
	if err := h.filters.Create(r.Context(), def); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Filter definition created",
		zap.String("id", def.ID.String()),
		zap.String("database", def.Database),
		zap.String("table", def.TableName))

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: def}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PUT /api/filters/{id}.
func (h *FiltersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid filter id"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	var req FilterDefinitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if err := req.validate(); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	def, err := h.filters.GetByID(r.Context(), id)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	def.Database = req.Database
	def.TableName = req.TableName
	def.Name = req.Name
	def.Column = req.Column
	def.Operator = req.Operator
	def.Value = req.Value

	if err := h.filters.Update(r.Context(), def); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: def}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/filters/{id}.
func (h *FiltersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid filter id"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.filters.Delete(r.Context(), id); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "Filter definition deleted"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
