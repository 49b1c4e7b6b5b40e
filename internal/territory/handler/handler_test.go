package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"territory_backend/internal/territory/domain"
	"territory_backend/internal/territory/repository"
	"territory_backend/internal/territory/service"
	"territory_backend/internal/territory/transport"
	"territory_backend/platform/httpkit"
	"territory_backend/platform/logger"
	"territory_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	store  *repository.MemoryStore
	engine *gin.Engine
	admin  uuid.UUID
}

// newTestEnv wires the handler behind a stub auth middleware that trusts the
// X-Test-User and X-Test-Role headers.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := repository.NewMemoryStore()
	svc := service.New(store, nil, logger.NewWithWriter("production", io.Discard), service.Options{})
	h := New(svc, validator.New())

	engine := gin.New()
	auth := func(c *gin.Context) {
		id, err := uuid.Parse(c.GetHeader("X-Test-User"))
		if err != nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Set(httpkit.ContextUserIDKey, id)
		c.Set(httpkit.ContextRolesKey, []string{c.GetHeader("X-Test-Role")})
		c.Next()
	}
	v1 := engine.Group("/api/v1", auth)
	h.RegisterRoutes(v1)
	h.RegisterAdminRoutes(v1.Group("/admin", httpkit.RequireRole(httpkit.RoleAdmin)))

	return &testEnv{store: store, engine: engine, admin: uuid.New()}
}

func (e *testEnv) do(t *testing.T, method, path string, user uuid.UUID, role string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", user.String())
	req.Header.Set("X-Test-Role", role)
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) seed(t *testing.T) (territoryID, agentID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	territoryID = domain.NewID()
	agentID = domain.NewID()
	require.NoError(t, e.store.InsertTerritory(ctx, domain.Territory{ID: territoryID, Name: "West"}))
	require.NoError(t, e.store.InsertAgent(ctx, domain.Agent{ID: agentID, Name: "asha", Role: domain.RoleAgent, IsActive: true}))
	return territoryID, agentID
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestAssignmentAndVisitFlow(t *testing.T) {
	env := newTestEnv(t)
	territoryID, agentID := env.seed(t)

	rec := env.do(t, http.MethodPost, "/api/v1/admin/assignments", env.admin, httpkit.RoleAdmin,
		transport.CreateAssignmentRequest{TerritoryID: territoryID, AgentID: agentID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assignment := decode[transport.AssignmentResponse](t, rec)
	assert.True(t, assignment.IsCurrent)
	assert.Equal(t, "West", assignment.TerritoryName)

	rec = env.do(t, http.MethodPost, "/api/v1/targets", agentID, httpkit.RoleAgent, transport.UpsertTargetRequest{
		Name:    "Dr. Rao",
		Address: &transport.AddressRequest{TerritoryID: &territoryID},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	target := decode[transport.TargetResponse](t, rec)
	assert.Equal(t, string(domain.StatusAssigned), target.Status)

	rec = env.do(t, http.MethodGet, "/api/v1/targets/visible", agentID, httpkit.RoleAgent, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[transport.TargetListResponse](t, rec).Total)

	rec = env.do(t, http.MethodPost, "/api/v1/sessions", agentID, httpkit.RoleAgent, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	session := decode[transport.SessionResponse](t, rec)

	rec = env.do(t, http.MethodPost, "/api/v1/targets/"+target.ID.String()+"/visit", agentID, httpkit.RoleAgent,
		transport.MarkVisitedRequest{SessionID: session.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	visit := decode[transport.MarkVisitedResponse](t, rec)
	assert.False(t, visit.Visited)
	assert.NotEmpty(t, visit.MissingFields)

	rec = env.do(t, http.MethodPost, "/api/v1/targets/"+target.ID.String()+"/visit", uuid.New(), httpkit.RoleAgent,
		transport.MarkVisitedRequest{SessionID: session.ID})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/sessions/"+session.ID.String()+"/end", agentID, httpkit.RoleAgent, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/targets/"+target.ID.String()+"/visit", agentID, httpkit.RoleAgent,
		transport.MarkVisitedRequest{SessionID: session.ID})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/v1/admin/assignments/"+assignment.ID.String(), env.admin, httpkit.RoleAdmin, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/admin/agents/"+agentID.String()+"/visible-targets", env.admin, httpkit.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[transport.TargetListResponse](t, rec).Total)
}

func TestRequestValidation(t *testing.T) {
	env := newTestEnv(t)
	_, agentID := env.seed(t)

	tests := []struct {
		name   string
		method string
		path   string
		role   string
		body   any
		want   int
	}{
		{name: "agent cannot reach admin routes", method: http.MethodPost, path: "/api/v1/admin/audit", role: httpkit.RoleAgent, want: http.StatusForbidden},
		{name: "malformed id", method: http.MethodDelete, path: "/api/v1/admin/assignments/not-a-uuid", role: httpkit.RoleAdmin, want: http.StatusBadRequest},
		{name: "missing agent id", method: http.MethodPost, path: "/api/v1/admin/assignments", role: httpkit.RoleAdmin, body: map[string]string{"territoryId": uuid.NewString()}, want: http.StatusBadRequest},
		{name: "unknown assignment", method: http.MethodGet, path: "/api/v1/admin/assignments/" + uuid.NewString(), role: httpkit.RoleAdmin, want: http.StatusNotFound},
		{name: "blank target name", method: http.MethodPost, path: "/api/v1/targets", role: httpkit.RoleAgent, body: map[string]string{"name": "   "}, want: http.StatusBadRequest},
		{name: "bad filter", method: http.MethodGet, path: "/api/v1/admin/assignments?agentId=nope", role: httpkit.RoleAdmin, want: http.StatusBadRequest},
		{name: "no audit cached", method: http.MethodGet, path: "/api/v1/admin/audit/latest", role: httpkit.RoleAdmin, want: http.StatusNotFound},
		{name: "no ongoing session", method: http.MethodGet, path: "/api/v1/sessions/current", role: httpkit.RoleAgent, want: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, agentID, tt.role, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestRunAuditEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/v1/admin/audit", env.admin, httpkit.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[domain.AuditReport](t, rec)
	assert.Len(t, report.Checks, len(domain.Checks))
	assert.Equal(t, service.AuditTriggerManual, report.Trigger)
}
