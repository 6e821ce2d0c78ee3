package auth

import (
	"net/http"
	"strings"

	"github.com/feedforward/feedforward/pkg/cookie"
	"github.com/feedforward/feedforward/pkg/respond"
)

// Gate returns middleware that rejects requests without a valid session.
// The bearer token is read from the auth cookie first, then from the
// Authorization header. On success the user and raw token are attached to
// the request context.
func Gate(svc *Service, cookies *cookie.Manager, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := extractToken(r, cookies, cookieName)
			if tok == "" {
				respond.Fail(w, http.StatusUnauthorized, "Authentication required.")
				return
			}

			user, err := svc.Authenticate(r.Context(), tok)
			if err != nil {
				respond.Fail(w, http.StatusUnauthorized, "Invalid or expired session.")
				return
			}

			ctx := WithUser(r.Context(), user)
			ctx = WithToken(ctx, tok)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractToken(r *http.Request, cookies *cookie.Manager, cookieName string) string {
	if tok, err := cookies.Get(r, cookieName); err == nil && tok != "" {
		return tok
	}

	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
