package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/rustchat/chatd/internal/apperr"
	"github.com/rustchat/chatd/internal/auth"
	"github.com/rustchat/chatd/internal/types"
)

type ctxKey int

const claimsCtxKey ctxKey = iota

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, prefix))
}

// requireAuth verifies the bearer access token and stores its claims in the
// request context before calling next, otherwise responds 401.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			fail(w, apperr.New(apperr.InvalidToken, "missing bearer token"))
			return
		}
		claims, err := s.auth.VerifyAccessToken(token)
		if err != nil {
			fail(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), claimsCtxKey, claims)
		next(w, r.WithContext(ctx))
	}
}

func claimsFrom(r *http.Request) *auth.Claims {
	c, _ := r.Context().Value(claimsCtxKey).(*auth.Claims)
	return c
}

// accountIDFrom extracts the authenticated account id from an authenticated
// request (panics never happen: requireAuth always ran first).
func accountIDFrom(r *http.Request) (types.AccountId, error) {
	return claimsFrom(r).AccountIDOf()
}
