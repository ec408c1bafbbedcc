package handlers

import (
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
	"github.com/rowgate-io/rowgate/pkg/models"
)

type mockFilterRepo struct {
	defs    map[uuid.UUID]*models.FilterDefinition
	listErr error
}

func newMockFilterRepo() *mockFilterRepo {
	return &mockFilterRepo{defs: make(map[uuid.UUID]*models.FilterDefinition)}
}

func (m *mockFilterRepo) Create(ctx context.Context, def *models.FilterDefinition) error {
	m.defs[def.ID] = def
	return nil
}

func (m *mockFilterRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.FilterDefinition, error) {
	def, ok := m.defs[id]
	if !ok {
		return nil, fmt.Errorf("filter definition %s: %w", id, apperrors.ErrNotFound)
	}
	return def, nil
}

func (m *mockFilterRepo) ListForTable(ctx context.Context, db, table string) ([]*models.FilterDefinition, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*models.FilterDefinition
	for _, def := range m.defs {
		if def.Database == db && def.TableName == table {
			out = append(out, def)
		}
	}
	return out, nil
}

func (m *mockFilterRepo) Update(ctx context.Context, def *models.FilterDefinition) error {
	if _, ok := m.defs[def.ID]; !ok {
		return fmt.Errorf("filter definition %s: %w", def.ID, apperrors.ErrNotFound)
	}
	m.defs[def.ID] = def
	return nil
}

func (m *mockFilterRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.defs[id]; !ok {
		return fmt.Errorf("filter definition %s: %w", id, apperrors.ErrNotFound)
	}
	delete(m.defs, id)
	return nil
}

func TestFiltersHandler_Create(t *testing.T) {
	repo := newMockFilterRepo()
	handler := NewFiltersHandler(repo, zap.NewNop())

	body := `{"database":"crm","table_name":"customers","name":"Open this month","column":"status","operator":"eq","value":"open"}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/filters", strings.NewReader(body)), testUser(models.RoleAdmin))
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, repo.defs, 1)
	for _, def := range repo.defs {
		assert.Equal(t, "crm", def.Database)
		assert.Equal(t, "customers", def.TableName)
		assert.Equal(t, "status", def.Column)
		assert.Equal(t, "eq", def.Operator)
		assert.NotEqual(t, uuid.Nil, def.CreatedBy)
	}
}

func TestFiltersHandler_Create_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing database", `{"table_name":"customers","name":"x","column":"status","operator":"eq"}`},
		{"missing name", `{"database":"crm","table_name":"customers","column":"status","operator":"eq"}`},
		{"hostile column", `{"database":"crm","table_name":"customers","name":"x","column":"status; DROP TABLE x","operator":"eq"}`},
		{"unknown operator", `{"database":"crm","table_name":"customers","name":"x","column":"status","operator":"regex"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockFilterRepo()
			handler := NewFiltersHandler(repo, zap.NewNop())

			req := withUser(httptest.NewRequest(http.MethodPost, "/api/filters", strings.NewReader(tt.body)), testUser(models.RoleAdmin))
			rec := httptest.NewRecorder()

			handler.Create(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, repo.defs)
		})
	}
}

func TestFiltersHandler_List(t *testing.T) {
	repo := newMockFilterRepo()
	def := &models.FilterDefinition{
		ID:        uuid.New(),
		Database:  "crm",
		TableName: "customers",
		Name:      "Open",
		Column:    "status",
		Operator:  "eq",
		Value:     "open",
	}
	repo.defs[def.ID] = def
	handler := NewFiltersHandler(repo, zap.NewNop())

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/filters?database=crm&table=customers", nil), testUser(models.RoleMember))
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Open"`)
}

func TestFiltersHandler_List_MissingParams(t *testing.T) {
	handler := NewFiltersHandler(newMockFilterRepo(), zap.NewNop())

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/filters?database=crm", nil), testUser(models.RoleMember))
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFiltersHandler_Update(t *testing.T) {
	repo := newMockFilterRepo()
	def := &models.FilterDefinition{
		ID:        uuid.New(),
		Database:  "crm",
		TableName: "customers",
		Name:      "Open",
		Column:    "status",
		Operator:  "eq",
		Value:     "open",
	}
	repo.defs[def.ID] = def
	handler := NewFiltersHandler(repo, zap.NewNop())

	mux := http.NewServeMux()
	mux.HandleFunc("PUT /api/filters/{id}", handler.Update)

	body := `{"database":"crm","table_name":"customers","name":"Closed","column":"status","operator":"eq","value":"closed"}`
	req := withUser(httptest.NewRequest(http.MethodPut, "/api/filters/"+def.ID.String(), strings.NewReader(body)), testUser(models.RoleAdmin))
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Closed", repo.defs[def.ID].Name)
	assert.Equal(t, "closed", repo.defs[def.ID].Value)
}

func TestFiltersHandler_Delete(t *testing.T) {
	repo := newMockFilterRepo()
	def := &models.FilterDefinition{ID: uuid.New(), Database: "crm", TableName: "customers", Name: "Open", Column: "status", Operator: "eq"}
	repo.defs[def.ID] = def
	handler := NewFiltersHandler(repo, zap.NewNop())

	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /api/filters/{id}", handler.Delete)

	req := withUser(httptest.NewRequest(http.MethodDelete, "/api/filters/"+def.ID.String(), nil), testUser(models.RoleAdmin))
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, repo.defs)
}

func TestFiltersHandler_Delete_UnknownID(t *testing.T) {
	handler := NewFiltersHandler(newMockFilterRepo(), zap.NewNop())

	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /api/filters/{id}", handler.Delete)

	req := withUser(httptest.NewRequest(http.MethodDelete, "/api/filters/"+uuid.NewString(), nil), testUser(models.RoleAdmin))
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFiltersHandler_Delete_MalformedID(t *testing.T) {
	handler := NewFiltersHandler(newMockFilterRepo(), zap.NewNop())

	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /api/filters/{id}", handler.Delete)

	req := withUser(httptest.NewRequest(http.MethodDelete, "/api/filters/not-a-uuid", nil), testUser(models.RoleAdmin))
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
