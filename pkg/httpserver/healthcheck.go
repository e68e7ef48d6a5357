package httpserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/apexconsultoria/checkout/pkg/logger"
)

// HealthCheckHandler returns a handler usable for liveness and readiness
// probes. With no dependency checks it answers 200 "ALIVE"; with checks it
// runs each one and answers 200 "READY" or 500 "NOT_READY".
func HealthCheckHandler(log *slog.Logger, checks ...func(context.Context) error) http.HandlerFunc {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if len(checks) == 0 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ALIVE"))
			return
		}

		for _, check := range checks {
			if err := check(r.Context()); err != nil {
				log.ErrorContext(r.Context(), "readiness check failed", logger.Error(err))
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte("NOT_READY"))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("READY"))
	}
}
