package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/odyssey-erp/receiving/internal/shared"
)

func serve(t *testing.T, mw func(http.Handler) http.Handler, p *shared.Principal) int {
	t.Helper()
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodDelete, "/api/arrivals", nil)
	if p != nil {
		req = req.WithContext(shared.ContextWithPrincipal(req.Context(), *p))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr.Code
}

func TestRequireAny(t *testing.T) {
	mw := Middleware{}.RequireAny(" Admin ")

	assert.Equal(t, http.StatusUnauthorized, serve(t, mw, nil))
	assert.Equal(t, http.StatusForbidden, serve(t, mw, &shared.Principal{UserID: 2, Role: shared.RoleUser}))
	assert.Equal(t, http.StatusNoContent, serve(t, mw, &shared.Principal{UserID: 1, Role: shared.RoleAdmin}))
}

func TestRequireAnyWithoutRolesPassesThrough(t *testing.T) {
	assert.Equal(t, http.StatusNoContent, serve(t, Middleware{}.RequireAny(), nil))
}

func TestNormalizeRoles(t *testing.T) {
	assert.Equal(t, []string{"admin", "user"}, normalizeRoles([]string{"ADMIN", "", "user", "admin"}))
}
