package billing

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// maxWebhookBody caps webhook payload reads at 1 MiB. Provider payloads
// are a few kilobytes; anything larger is not a legitimate delivery.
const maxWebhookBody = 1 << 20

// Router mounts one webhook endpoint per provider, e.g. POST /paddle and
// POST /stripe when mounted at /webhooks.
func Router(reconciler *Reconciler, log *slog.Logger, providers ...Provider) chi.Router {
	r := chi.NewRouter()
	for _, p := range providers {
		r.Post("/"+p.Name(), WebhookHandler(p, reconciler, log))
	}
	return r
}

// WebhookHandler verifies, normalizes, and reconciles one provider's
// webhook deliveries.
//
// Status codes drive the provider's retry behavior: 400 rejects forged or
// malformed deliveries permanently, 200 acknowledges everything that must
// not be redelivered (including event types we deliberately ignore), and
// 5xx asks for a retry after a transient store failure.
func WebhookHandler(provider Provider, reconciler *Reconciler, log *slog.Logger) http.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}

	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
			return
		}

		signature := r.Header.Get(provider.SignatureHeader())
		event, err := provider.ParseWebhook(r.Context(), payload, signature)
		switch {
		case errors.Is(err, ErrInvalidSignature):
			log.WarnContext(r.Context(), "rejected webhook with invalid signature",
				slog.String("provider", provider.Name()))
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid signature"})
			return
		case errors.Is(err, ErrMalformedPayload):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed payload"})
			return
		case errors.Is(err, ErrUnknownEvent):
			// Acknowledge event types we do not handle so the provider
			// stops redelivering them.
			log.InfoContext(r.Context(), "ignoring unhandled webhook event",
				slog.String("provider", provider.Name()),
				slog.Any("error", err))
			writeJSON(w, http.StatusOK, map[string]bool{"received": true})
			return
		case err != nil:
			log.ErrorContext(r.Context(), "failed to parse webhook",
				slog.String("provider", provider.Name()),
				slog.Any("error", err))
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			return
		}

		if err := reconciler.ProcessEvent(r.Context(), event); err != nil {
			log.ErrorContext(r.Context(), "failed to reconcile webhook event",
				slog.String("provider", provider.Name()),
				slog.String("event_id", event.EventID),
				slog.String("kind", string(event.Kind)),
				slog.Any("error", err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "reconciliation failed"})
			return
		}

		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
