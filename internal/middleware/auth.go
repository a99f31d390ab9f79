package middleware

import (
	"net/http"
	"strings"

	"github.com/josh-kwaku/civitas/internal/auth"
	"github.com/josh-kwaku/civitas/internal/handler"
	"github.com/josh-kwaku/civitas/internal/logging"
)

// Auth resolves the bearer token into the acting email. Requests reaching
// next always carry that email in their context and logger.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			switch {
			case r.Header.Get("Authorization") == "":
				w.Header().Set("WWW-Authenticate", `Bearer realm="civitas"`)
				handler.RespondAppError(w, handler.ErrMissingToken, nil)
				return
			case !found || token == "":
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_request"`)
				handler.RespondAppError(w, handler.ErrInvalidToken, nil)
				return
			}

			claims, err := auth.ValidateToken(token, secret)
			if err != nil {
				logging.FromContext(r.Context()).Warn("bearer token rejected", "error", err)
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				handler.RespondAppError(w, handler.ErrInvalidToken, nil)
				return
			}

			ctx := auth.ContextWithEmail(r.Context(), claims.Email)
			ctx = logging.WithAttrs(ctx, "email", claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
