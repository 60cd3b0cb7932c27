// Package rbac gates HTTP routes by the caller's role.
package rbac

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-erp/receiving/internal/platform/httpx"
	"github.com/odyssey-erp/receiving/internal/shared"
)

var (
	// ErrMissingPrincipal is returned when no authenticated caller is present.
	ErrMissingPrincipal = fmt.Errorf("%w: authentication required", httpx.ErrUnauthorized)
	// ErrInsufficientRole is returned when the caller lacks every allowed role.
	ErrInsufficientRole = fmt.Errorf("%w: insufficient role", httpx.ErrForbidden)
)

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Logger    *slog.Logger
	Responder httpx.Responder
}

// RequireAny ensures the current user holds at least one of the roles.
func (m Middleware) RequireAny(roles ...string) func(http.Handler) http.Handler {
	normalized := normalizeRoles(roles)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			principal, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				m.Responder.Respond(w, r, ErrMissingPrincipal)
				return
			}
			if HasAnyRole(principal, normalized...) {
				next.ServeHTTP(w, r)
				return
			}
			if m.Logger != nil {
				m.Logger.Warn("rbac denied",
					slog.Int64("user_id", principal.UserID),
					slog.String("role", principal.Role),
					slog.String("path", r.URL.Path),
				)
			}
			m.Responder.Respond(w, r, ErrInsufficientRole)
		})
	}
}

// HasAnyRole reports whether p holds one of roles.
func HasAnyRole(p shared.Principal, roles ...string) bool {
	role := strings.ToLower(strings.TrimSpace(p.Role))
	for _, candidate := range roles {
		if role == candidate {
			return true
		}
	}
	return false
}

func normalizeRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	seen := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		role = strings.ToLower(strings.TrimSpace(role))
		if role == "" {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	return out
}
