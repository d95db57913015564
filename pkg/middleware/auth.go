package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/developlogy/sitebuilder/pkg/auth"
	"github.com/developlogy/sitebuilder/pkg/response"
)

// SessionCookie is the cookie that may carry the session token instead of
// the Authorization header.
const SessionCookie = "sitebuilder_session"

// RevocationList reports whether a session token id has been signed out.
type RevocationList interface {
	IsRevoked(ctx context.Context, jti string) bool
}

// Auth rejects requests without a valid, unrevoked session token and stores
// the verified claims on the request context. revoked may be nil.
func Auth(revoked RevocationList) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				response.Unauthorized(w)
				return
			}

			claims, err := auth.ValidateToken(token, auth.PurposeSession, time.Now())
			if err != nil {
				response.Error(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			if revoked != nil && revoked.IsRevoked(r.Context(), claims.ID) {
				response.Error(w, http.StatusUnauthorized, "Session has been signed out")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}
