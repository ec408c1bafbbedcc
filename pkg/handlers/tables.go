package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/rowgate-io/rowgate/pkg/access"
	"github.com/rowgate-io/rowgate/pkg/apperrors"
	"github.com/rowgate-io/rowgate/pkg/auth"
	"github.com/rowgate-io/rowgate/pkg/catalog"
	"github.com/rowgate-io/rowgate/pkg/database"
)

// TablesHandler serves table and column metadata for building filters.
type TablesHandler struct {
	gate     access.Gate
	registry *database.Registry
	logger   *zap.Logger
}

// NewTablesHandler creates a new TablesHandler.
func NewTablesHandler(gate access.Gate, registry *database.Registry, logger *zap.Logger) *TablesHandler {
	return &TablesHandler{gate: gate, registry: registry, logger: logger.Named("tables-handler")}
}

// RegisterRoutes registers the handler's routes on the given mux.
func (h *TablesHandler) RegisterRoutes(mux *http.ServeMux, requireAuth func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("GET /api/tables", requireAuth(h.Tables))
	mux.HandleFunc("GET /api/columns", requireAuth(h.Columns))
}

// Tables handles GET /api/tables?database=. The listing is filtered
// through the access gate, so each role sees exactly the tables it could
// browse.
func (h *TablesHandler) Tables(w http.ResponseWriter, r *http.Request) {
	user, err := auth.RequireUser(r.Context())
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	db := r.URL.Query().Get("database")
	if db == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "database is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	pool, err := h.registry.Get(r.Context(), db)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	all, err := catalog.NewInspector(pool).Tables(r.Context())
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	visible := make([]catalog.Table, 0, len(all))
	for _, t := range all {
		err := h.gate.Authorize(r.Context(), user, db, t.Name, access.Options{})
		if errors.Is(err, apperrors.ErrAccessDenied) {
			continue
		}
		if err != nil {
			WriteServiceError(w, h.logger, err)
			return
		}
		visible = append(visible, t)
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: visible}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Columns handles GET /api/columns?database=&table=.
func (h *TablesHandler) Columns(w http.ResponseWriter, r *http.Request) {
	user, err := auth.RequireUser(r.Context())
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	q := r.URL.Query()
	db := q.Get("database")
	table := q.Get("table")
	if db == "" || table == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "database and table are required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.gate.Authorize(r.Context(), user, db, table, access.Options{}); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	pool, err := h.registry.Get(r.Context(), db)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	columns, err := catalog.NewInspector(pool).Columns(r.Context(), q.Get("schema"), table)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: columns}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
