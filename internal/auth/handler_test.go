package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/receiving/internal/platform/httpx"
	"github.com/odyssey-erp/receiving/internal/rbac"
	"github.com/odyssey-erp/receiving/internal/shared"
)

func newTestRouter(t *testing.T) (http.Handler, *Service) {
	t.Helper()
	svc, _ := newTestService(t)
	h := NewHandler(nil, svc, httpx.Responder{}, rbac.Middleware{})
	r := chi.NewRouter()
	r.Route("/api/auth", func(ar chi.Router) {
		h.MountRoutes(ar, NewAuthenticator(svc.tokens, httpx.Responder{}))
	})
	return r, svc
}

func do(h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestLoginEndpoint(t *testing.T) {
	h, svc := newTestRouter(t)
	_, err := svc.Register(context.Background(), RegisterRequest{Name: "Ops", Email: "ops@example.com", Password: "secret1"})
	require.NoError(t, err)

	rr := do(h, http.MethodPost, "/api/auth/login", `{"email":"ops@example.com","password":"secret1"}`, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var session Session
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &session))
	assert.NotEmpty(t, session.Token)

	rr = do(h, http.MethodPost, "/api/auth/login", `{"email":"ops@example.com","password":"nope"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(h, http.MethodPost, "/api/auth/login", `{"email":"not-an-email"}`, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRegisterEndpointRequiresAdmin(t *testing.T) {
	h, svc := newTestRouter(t)
	body := `{"name":"New","email":"new@example.com","password":"secret1"}`

	rr := do(h, http.MethodPost, "/api/auth/register", body, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	userToken, _, err := svc.tokens.Issue(User{ID: 5, Email: "u@example.com", Role: shared.RoleUser})
	require.NoError(t, err)
	rr = do(h, http.MethodPost, "/api/auth/register", body, userToken)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	adminToken, _, err := svc.tokens.Issue(User{ID: 1, Email: "admin@example.com", Role: shared.RoleAdmin})
	require.NoError(t, err)
	rr = do(h, http.MethodPost, "/api/auth/register", body, adminToken)
	assert.Equal(t, http.StatusCreated, rr.Code)

	rr = do(h, http.MethodPost, "/api/auth/register", body, adminToken)
	assert.Equal(t, http.StatusConflict, rr.Code)
}
