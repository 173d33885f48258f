package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"nciso/server/internal/api"
	"nciso/server/internal/auth"
	"nciso/server/internal/broker"
	"nciso/server/internal/db/dbtest"
	ops "nciso/server/internal/isms"
	"nciso/server/internal/middleware"
	"nciso/server/internal/modules"
	"nciso/server/internal/modules/isms"
)

const (
	secret  = "test-secret"
	tenantA = "11111111-1111-1111-1111-111111111111"
	tenantB = "22222222-2222-2222-2222-222222222222"
	userID  = "33333333-3333-3333-3333-333333333333"
)

type response struct {
	Success bool               `json:"success"`
	Data    json.RawMessage    `json:"data"`
	Count   *int               `json:"count"`
	Error   string             `json:"error"`
	Code    string             `json:"code"`
	Details []ops.FieldProblem `json:"details"`
}

func newServer(t *testing.T, gdb *gorm.DB) *httptest.Server {
	t.Helper()
	svc := ops.New(gdb)
	modules.RegisterModule(isms.New(svc))

	verifier, err := auth.NewVerifier(auth.VerifierConfig{Secret: secret})
	require.NoError(t, err)
	authorizer := middleware.NewAuthorizer(verifier, broker.NewMembershipBroker(gdb, time.Minute))
	limiter := middleware.NewRateLimiter(1000, middleware.NewMemoryWindowStore())

	mux := http.NewServeMux()
	api.Register(mux, svc, authorizer, limiter)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func token(t *testing.T, role, tenantID string) string {
	t.Helper()
	tok, err := auth.IssueToken(secret, auth.Identity{UserID: userID, TenantID: tenantID, Role: role}, "", time.Hour)
	require.NoError(t, err)
	return tok
}

func do(t *testing.T, srv *httptest.Server, method, path, tok string, body any) (int, response) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestMissingToken(t *testing.T) {
	srv := newServer(t, dbtest.Open(t))
	status, out := do(t, srv, http.MethodGet, "/api/v1/isms/policies", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "MISSING_TOKEN", out.Code)
}

func TestPolicyRoundTrip(t *testing.T) {
	srv := newServer(t, dbtest.Open(t))
	manager := token(t, middleware.RoleManager, tenantA)

	status, out := do(t, srv, http.MethodPost, "/api/v1/isms/policies", manager, map[string]any{"title": "Política de acesso"})
	require.Equal(t, http.StatusCreated, status, out.Error)
	var created struct {
		ID       string `json:"id"`
		TenantID string `json:"tenant_id"`
		Status   string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(out.Data, &created))
	assert.Equal(t, tenantA, created.TenantID)
	assert.Equal(t, "draft", created.Status)

	status, out = do(t, srv, http.MethodGet, "/api/v1/isms/policies/"+created.ID, manager, nil)
	require.Equal(t, http.StatusOK, status, out.Error)

	status, out = do(t, srv, http.MethodPut, "/api/v1/isms/policies/"+created.ID, manager, map[string]any{"status": "active"})
	require.Equal(t, http.StatusOK, status, out.Error)
	assert.Contains(t, string(out.Data), `"active"`)

	status, out = do(t, srv, http.MethodGet, "/api/v1/isms/policies?limit=10", manager, nil)
	require.Equal(t, http.StatusOK, status, out.Error)
	require.NotNil(t, out.Count)
	assert.Equal(t, 1, *out.Count)

	// Another tenant sees nothing.
	status, out = do(t, srv, http.MethodGet, "/api/v1/isms/policies", token(t, middleware.RoleManager, tenantB), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, *out.Count)
}

func TestViewerCannotCreate(t *testing.T) {
	srv := newServer(t, dbtest.Open(t))
	status, out := do(t, srv, http.MethodPost, "/api/v1/isms/policies", token(t, middleware.RoleViewer, tenantA), map[string]any{"title": "x"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "PERMISSION_DENIED", out.Code)
}

func TestTenantMismatchRejected(t *testing.T) {
	srv := newServer(t, dbtest.Open(t))
	manager := token(t, middleware.RoleManager, tenantA)

	status, out := do(t, srv, http.MethodGet, "/api/v1/isms/policies?tenant_id="+tenantB, manager, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "TENANT_MISMATCH", out.Code)

	status, _ = do(t, srv, http.MethodPost, "/api/v1/isms/policies", manager, map[string]any{"tenant_id": tenantB, "title": "x"})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = do(t, srv, http.MethodGet, "/api/v1/isms/policies?tenant_id="+tenantA, manager, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestValidationDetails(t *testing.T) {
	srv := newServer(t, dbtest.Open(t))
	manager := token(t, middleware.RoleManager, tenantA)

	status, out := do(t, srv, http.MethodPost, "/api/v1/isms/policies", manager, map[string]any{"status": "draft"})
	require.Equal(t, http.StatusBadRequest, status)
	assert.False(t, out.Success)
	require.Len(t, out.Details, 1)
	assert.Equal(t, "title", out.Details[0].Field)

	status, out = do(t, srv, http.MethodGet, "/api/v1/isms/policies?limit=abc", manager, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, out.Error, "limit")

	status, _ = do(t, srv, http.MethodGet, "/api/v1/isms/policies?limit=9999", manager, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestNotFound(t *testing.T) {
	srv := newServer(t, dbtest.Open(t))
	manager := token(t, middleware.RoleManager, tenantA)

	status, out := do(t, srv, http.MethodGet, "/api/v1/isms/policies/44444444-4444-4444-4444-444444444444", manager, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, out.Error, "Registro não encontrado")

	status, _ = do(t, srv, http.MethodGet, "/api/v1/isms/frameworks/44444444-4444-4444-4444-444444444444/gap-report", manager, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAuditLogsRequireAuditor(t *testing.T) {
	srv := newServer(t, dbtest.Open(t))

	status, _ := do(t, srv, http.MethodGet, "/api/v1/isms/audit-logs", token(t, middleware.RoleAnalyst, tenantA), nil)
	assert.Equal(t, http.StatusForbidden, status)

	_, _ = do(t, srv, http.MethodPost, "/api/v1/isms/domains", token(t, middleware.RoleManager, tenantA), map[string]any{"name": "Acesso"})
	status, out := do(t, srv, http.MethodGet, "/api/v1/isms/audit-logs", token(t, middleware.RoleAuditor, tenantA), nil)
	require.Equal(t, http.StatusOK, status, out.Error)
}

func TestReportsOnEmptyTenant(t *testing.T) {
	srv := newServer(t, dbtest.Open(t))
	viewer := token(t, middleware.RoleViewer, tenantA)

	status, out := do(t, srv, http.MethodGet, "/api/v1/isms/reports/effectiveness", viewer, nil)
	require.Equal(t, http.StatusOK, status, out.Error)
	assert.True(t, out.Success)

	status, out = do(t, srv, http.MethodGet, "/api/v1/isms/reports/coverage", viewer, nil)
	require.Equal(t, http.StatusOK, status, out.Error)

	status, out = do(t, srv, http.MethodGet, "/api/controls/effectiveness/stats", viewer, nil)
	require.Equal(t, http.StatusOK, status, out.Error)
}

func TestUnconfiguredStore(t *testing.T) {
	srv := newServer(t, nil)
	status, out := do(t, srv, http.MethodGet, "/api/v1/isms/policies", token(t, middleware.RoleViewer, tenantA), nil)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, modules.UnconfiguredMessage, out.Error)
	assert.JSONEq(t, `[]`, string(out.Data))
}
