package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/josh-kwaku/civitas/internal/handler"
	"github.com/josh-kwaku/civitas/internal/logging"
	"github.com/josh-kwaku/civitas/internal/metrics"
)

func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				metrics.Panics.WithLabelValues("http").Inc()
				logging.FromContext(r.Context()).Error("panic recovered",
					"error", err,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				handler.RespondAppError(w, handler.ErrInternalError, nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
