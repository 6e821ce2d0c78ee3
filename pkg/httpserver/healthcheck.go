package httpserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/feedforward/feedforward/pkg/logger"
)

// HealthCheckHandler returns an HTTP handler for liveness and readiness
// probes. With no dependency functions it reports 200 "ALIVE"; with
// dependency functions it runs each one and reports 200 "READY" only when
// all succeed.
func HealthCheckHandler(log *slog.Logger, funcs ...func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if len(funcs) == 0 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ALIVE"))
			return
		}

		for _, f := range funcs {
			if err := f(ctx); err != nil {
				log.ErrorContext(ctx, "readiness check failed", logger.Error(err))
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte("NOT_READY"))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("READY"))
	}
}
