package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rowgate-io/rowgate/pkg/apperrors"
	"github.com/rowgate-io/rowgate/pkg/models"
	"github.com/rowgate-io/rowgate/pkg/repositories"
	safesql "github.com/rowgate-io/rowgate/pkg/sql"
)

// AdminHandler manages users, table grants and visibility flags. All
// routes require the admin role.
type AdminHandler struct {
	users      repositories.UserRepository
	grants     repositories.GrantRepository
	visibility repositories.VisibilityRepository
	logger     *zap.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(users repositories.UserRepository, grants repositories.GrantRepository, visibility repositories.VisibilityRepository, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{users: users, grants: grants, visibility: visibility, logger: logger.Named("admin-handler")}
}

// RegisterRoutes registers the handler's routes on the given mux.
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux, requireAdmin func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("GET /api/admin/users", requireAdmin(h.ListUsers))
	mux.HandleFunc("POST /api/admin/users", requireAdmin(h.CreateUser))
	mux.HandleFunc("PUT /api/admin/users/{id}/role", requireAdmin(h.UpdateUserRole))
	mux.HandleFunc("DELETE /api/admin/users/{id}", requireAdmin(h.DeactivateUser))
	mux.HandleFunc("GET /api/admin/users/{id}/grants", requireAdmin(h.ListGrants))
	mux.HandleFunc("POST /api/admin/users/{id}/grants", requireAdmin(h.CreateGrant))
	mux.HandleFunc("DELETE /api/admin/users/{id}/grants", requireAdmin(h.RevokeGrant))
	mux.HandleFunc("GET /api/admin/visibility", requireAdmin(h.ListVisibility))
	mux.HandleFunc("PUT /api/admin/visibility", requireAdmin(h.SetVisibility))
}

// CreateUserRequest is the payload for creating a user.
type CreateUserRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// GrantRequest names one (database, table) pair in a grant operation.
type GrantRequest struct {
	Database  string `json:"database"`
	TableName string `json:"table_name"`
}

func (req *GrantRequest) validate() error {
	if req.Database == "" {
		return fmt.Errorf("%w: database is required", apperrors.ErrInvalidValue)
	}
	return safesql.ValidateIdentifier(req.TableName, safesql.KindTable)
}

// VisibilityRequest is the payload for setting a table's visibility flag.
type VisibilityRequest struct {
	Database  string `json:"database"`
	TableName string `json:"table_name"`
	IsVisible bool   `json:"is_visible"`
}

// ListUsers handles GET /api/admin/users.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: users}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// CreateUser handles POST /api/admin/users.
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if req.Email == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "email is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if req.Role == "" {
		req.Role = models.RoleRestricted
	}

	user := &models.User{
		ID:       uuid.New(),
		Email:    req.Email,
		Role:     req.Role,
		IsActive: true,
	}
	if err := h.users.Create(r.Context(), user); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("User created",
		zap.String("user_id", user.ID.String()),
		zap.String("role", user.Role))

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: user}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// UpdateUserRole handles PUT /api/admin/users/{id}/role.
func (h *AdminHandler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.users.UpdateRole(r.Context(), id, req.Role); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("User role updated",
		zap.String("user_id", id.String()),
		zap.String("role", req.Role))

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "Role updated"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// DeactivateUser handles DELETE /api/admin/users/{id}.
func (h *AdminHandler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.users.Deactivate(r.Context(), id); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("User deactivated", zap.String("user_id", id.String()))

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "User deactivated"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListGrants handles GET /api/admin/users/{id}/grants.
func (h *AdminHandler) ListGrants(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	grants, err := h.grants.ListForUser(r.Context(), id)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: grants}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// CreateGrant handles POST /api/admin/users/{id}/grants.
func (h *AdminHandler) CreateGrant(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req GrantRequest
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

	if err := h.grants.Grant(r.Context(), id, req.Database, req.TableName); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Table grant created",
		zap.String("user_id", id.String()),
		zap.String("database", req.Database),
		zap.String("table", req.TableName))

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Message: "Grant created"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// RevokeGrant handles DELETE /api/admin/users/{id}/grants.
func (h *AdminHandler) RevokeGrant(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req GrantRequest
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

	if err := h.grants.Revoke(r.Context(), id, req.Database, req.TableName); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "Grant revoked"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListVisibility handles GET /api/admin/visibility?database=.
func (h *AdminHandler) ListVisibility(w http.ResponseWriter, r *http.Request) {
	db := r.URL.Query().Get("database")
	if db == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "database is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	entries, err := h.visibility.List(r.Context(), db)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: entries}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// SetVisibility handles PUT /api/admin/visibility.
func (h *AdminHandler) SetVisibility(w http.ResponseWriter, r *http.Request) {
	var req VisibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if req.Database == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "database is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if err := safesql.ValidateIdentifier(req.TableName, safesql.KindTable); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := h.visibility.Set(r.Context(), req.Database, req.TableName, req.IsVisible); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Table visibility updated",
		zap.String("database", req.Database),
		zap.String("table", req.TableName),
		zap.Bool("visible", req.IsVisible))

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "Visibility updated"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *AdminHandler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid user id"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return uuid.Nil, false
	}
	return id, true
}
