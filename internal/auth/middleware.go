package auth

import (
	"net/http"
	"strings"

	"github.com/odyssey-erp/receiving/internal/platform/httpx"
	"github.com/odyssey-erp/receiving/internal/shared"
)

// Authenticator resolves the bearer token into a shared.Principal.
type Authenticator struct {
	tokens    *TokenManager
	responder httpx.Responder
}

// NewAuthenticator constructs the authentication middleware.
func NewAuthenticator(tokens *TokenManager, responder httpx.Responder) *Authenticator {
	return &Authenticator{tokens: tokens, responder: responder}
}

// Handler rejects requests without a valid bearer token.
func (a *Authenticator) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			a.responder.Respond(w, r, ErrInvalidToken)
			return
		}
		principal, err := a.tokens.Parse(raw)
		if err != nil {
			a.responder.Respond(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), principal)))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
