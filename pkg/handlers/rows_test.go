package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rowgate-io/rowgate/pkg/apperrors"
	"github.com/rowgate-io/rowgate/pkg/auth"
	"github.com/rowgate-io/rowgate/pkg/models"
	"github.com/rowgate-io/rowgate/pkg/services"
)

type mockBrowseService struct {
	result  *services.BrowseResult
	err     error
	lastReq *services.BrowseRequest
}

func (m *mockBrowseService) Browse(ctx context.Context, user *models.User, req *services.BrowseRequest) (*services.BrowseResult, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func testUser(role string) *models.User {
	return &models.User{ID: uuid.New(), Email: "user@example.com", Role: role, IsActive: true}
}

func withUser(req *http.Request, user *models.User) *http.Request {
	return req.WithContext(auth.SetUser(req.Context(), user))
}

func TestRowsHandler_Rows(t *testing.T) {
	svc := &mockBrowseService{result: &services.BrowseResult{
		Columns:    []string{"id", "status"},
		Rows:       []map[string]any{{"id": 1, "status": "open"}},
		TotalCount: 120,
		Page:       2,
		PageSize:   50,
		TotalPages: 3,
	}}
	handler := NewRowsHandler(svc, zap.NewNop())

	body := `{"database":"crm","table":"customers","page":2,"filters":[{"column":"status","operator":"eq","value":"open"}]}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/rows", strings.NewReader(body)), testUser(models.RoleMember))
	rec := httptest.NewRecorder()

	handler.Rows(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeApiResponse(t, rec)
	assert.True(t, resp.Success)

	require.NotNil(t, svc.lastReq)
	assert.Equal(t, "crm", svc.lastReq.Database)
	assert.Equal(t, "customers", svc.lastReq.Table)
	assert.Equal(t, 2, svc.lastReq.Page)
	require.Len(t, svc.lastReq.Filters, 1)
	assert.Equal(t, "status", svc.lastReq.Filters[0].Column)

	assert.Contains(t, rec.Body.String(), `"totalCount":120`)
	assert.Contains(t, rec.Body.String(), `"totalPages":3`)
}

func TestRowsHandler_Rows_InvalidBody(t *testing.T) {
	handler := NewRowsHandler(&mockBrowseService{}, zap.NewNop())

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/rows", bytes.NewReader([]byte("{not json"))), testUser(models.RoleMember))
	rec := httptest.NewRecorder()

	handler.Rows(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRowsHandler_Rows_NoUser(t *testing.T) {
	handler := NewRowsHandler(&mockBrowseService{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/rows", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	handler.Rows(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRowsHandler_Rows_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"access denied", fmt.Errorf("gate: %w", apperrors.ErrAccessDenied), http.StatusForbidden},
		{"unknown table", fmt.Errorf("catalog: %w", apperrors.ErrNotFound), http.StatusNotFound},
		{"bad column", fmt.Errorf("%w: nope", apperrors.ErrInvalidColumn), http.StatusBadRequest},
		{"bad join", fmt.Errorf("%w: depth", apperrors.ErrInvalidJoin), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewRowsHandler(&mockBrowseService{err: tt.err}, zap.NewNop())

			body := `{"database":"crm","table":"customers"}`
			req := withUser(httptest.NewRequest(http.MethodPost, "/api/rows", strings.NewReader(body)), testUser(models.RoleRestricted))
			rec := httptest.NewRecorder()

			handler.Rows(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
