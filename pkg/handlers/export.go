package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/rowgate-io/rowgate/pkg/apperrors"
	"github.com/rowgate-io/rowgate/pkg/auth"
	"github.com/rowgate-io/rowgate/pkg/query"
	"github.com/rowgate-io/rowgate/pkg/services"
)

// ExportHandler serves export pre-flight checks and CSV downloads.
type ExportHandler struct {
	export services.ExportService
	logger *zap.Logger
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(export services.ExportService, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{export: export, logger: logger.Named("export-handler")}
}

// RegisterRoutes registers the handler's routes on the given mux.
func (h *ExportHandler) RegisterRoutes(mux *http.ServeMux, requireAuth func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("POST /api/export/check", requireAuth(h.Check))
	mux.HandleFunc("GET /api/export", requireAuth(h.Export))
}

// Check handles POST /api/export/check.
func (h *ExportHandler) Check(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.export.Check(r.Context(), user, &req)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Export handles GET /api/export. The request is carried in query
// parameters so the download works as a plain browser navigation;
// filters and join arrive JSON-encoded.
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	user, err := auth.RequireUser(r.Context())
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	req, err := exportRequestFromQuery(r)
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	// Headers must go out before the first CSV byte. If the ceiling
	// check fails the engine returns before writing, and the error path
	// below can still replace them.
	filename := fmt.Sprintf("%s_%s_%s.csv", req.Database, req.Table, time.Now().UTC().Format("20060102T150405Z"))

	written, err := h.export.Stream(r.Context(), user, req, &headerOnFirstWrite{w: w, filename: filename})
	if err != nil {
		if written == 0 && !headersSent(w) {
			WriteServiceError(w, h.logger, err)
			return
		}
		// Bytes already went out; the truncated file is the client's
		// signal. Nothing useful can be appended to a CSV stream.
		h.logger.Warn("Export stream aborted",
			zap.String("database", req.Database),
			zap.String("table", req.Table),
			zap.Int("rows_written", written),
			zap.Error(err))
		return
	}
}

// exportRequestFromQuery decodes the GET form of a browse request.
func exportRequestFromQuery(r *http.Request) (*services.BrowseRequest, error) {
	q := r.URL.Query()
	req := &services.BrowseRequest{
		Database: q.Get("database"),
		Schema:   q.Get("schema"),
		Table:    q.Get("table"),
	}
	if req.Database == "" || req.Table == "" {
		return nil, errors.New("database and table are required")
	}
	// The download endpoint only serves full exports; paged reads go
	// through the browse endpoint.
	if q.Get("exportAll") != "true" {
		return nil, errors.New("exportAll=true is required")
	}

	if raw := q.Get("filters"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Filters); err != nil {
			return nil, fmt.Errorf("%w: filters parameter: %v", apperrors.ErrInvalidValue, err)
		}
	}
	if raw := q.Get("join"); raw != "" {
		var join query.JoinSpec
		if err := json.Unmarshal([]byte(raw), &join); err != nil {
			return nil, fmt.Errorf("%w: join parameter: %v", apperrors.ErrInvalidJoin, err)
		}
		req.Join = &join
	}
	if sortBy := q.Get("sortBy"); sortBy != "" {
		req.Sort = &query.Sort{Column: sortBy, Descending: q.Get("sortDesc") == "true"}
	}
	return req, nil
}

// headerOnFirstWrite defers the CSV response headers until the export
// engine commits to streaming, so refusals can still answer with JSON.
type headerOnFirstWrite struct {
	w        http.ResponseWriter
	filename string
	started  bool
}

func (hw *headerOnFirstWrite) Write(p []byte) (int, error) {
	if !hw.started {
		hw.started = true
		hw.w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		hw.w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", hw.filename))
	}
	return hw.w.Write(p)
}

func headersSent(w http.ResponseWriter) bool {
	return w.Header().Get("Content-Type") == "text/csv; charset=utf-8"
}
