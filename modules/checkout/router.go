package checkout

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ScopeHeader carries the opaque client-generated checkout scope token,
// the server-side analog of per-browser storage scoping.
const ScopeHeader = "X-Checkout-Scope"

type confirmPayload struct {
	PlanID       string `json:"plan_id"`
	Installments int    `json:"installments"`
	PaymentType  string `json:"payment_type"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	FullName     string `json:"full_name"`
	TaxID        string `json:"tax_id"`
	Password     string `json:"password,omitempty"`
}

// Router mounts the checkout endpoints:
//
//	POST   /          confirm plan + arrangement
//	DELETE /          abandon the in-flight attempt
//	GET    /recovery  recovery-on-entry payload for ?plan=<id>
//	POST   /success   return/success completion
func Router(controller *Controller, success *SuccessHandler, log *slog.Logger) chi.Router {
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()
	r.Post("/", confirmHandler(controller, log))
	r.Delete("/", abandonHandler(controller, log))
	r.Get("/recovery", recoveryHandler(controller, log))
	r.Post("/success", successHandler(success, log))
	return r
}

func abandonHandler(controller *Controller, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope := r.Header.Get(ScopeHeader)
		if scope == "" {
			respondError(w, http.StatusBadRequest, ErrInvalidScope)
			return
		}

		if err := controller.Abandon(r.Context(), scope); err != nil {
			log.ErrorContext(r.Context(), "checkout abandon failed", slog.Any("error", err))
			respondError(w, http.StatusInternalServerError, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]bool{"cleared": true})
	}
}

func confirmHandler(controller *Controller, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope := r.Header.Get(ScopeHeader)
		if scope == "" {
			respondError(w, http.StatusBadRequest, ErrInvalidScope)
			return
		}

		var payload confirmPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			respondError(w, http.StatusBadRequest, errors.New("invalid request body"))
			return
		}

		paymentType := PaymentType(payload.PaymentType)
		if !paymentType.Valid() {
			respondError(w, http.StatusBadRequest, errors.New("unknown payment type"))
			return
		}

		result, err := controller.Confirm(r.Context(), ConfirmRequest{
			Scope:        scope,
			PlanID:       payload.PlanID,
			Installments: payload.Installments,
			PaymentType:  paymentType,
			FormData: FormData{
				Email:    payload.Email,
				Phone:    payload.Phone,
				FullName: payload.FullName,
				TaxID:    payload.TaxID,
				Password: payload.Password,
			},
		})
		if err != nil {
			status := http.StatusBadGateway
			switch {
			case errors.Is(err, ErrPlanNotFound), errors.Is(err, ErrIncompleteRegistration):
				status = http.StatusUnprocessableEntity
			case errors.Is(err, ErrInvalidScope):
				status = http.StatusBadRequest
			}
			log.ErrorContext(r.Context(), "checkout confirmation failed",
				slog.String("plan_id", payload.PlanID),
				slog.Any("error", err))
			respondError(w, status, err)
			return
		}

		body := map[string]any{
			"url":         result.URL,
			"custom_plan": result.CustomPlan,
			"process_id":  result.ProcessID,
		}
		if result.QRCode != "" {
			body["qr_code"] = result.QRCode
		}
		respondJSON(w, http.StatusOK, body)
	}
}

func recoveryHandler(controller *Controller, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope := r.Header.Get(ScopeHeader)
		if scope == "" {
			respondError(w, http.StatusBadRequest, ErrInvalidScope)
			return
		}

		planID := r.URL.Query().Get("plan")
		if planID == "" {
			// Mirrors the "no plan selected" redirect-home behavior.
			respondError(w, http.StatusBadRequest, ErrPlanNotFound)
			return
		}

		result, err := controller.Resume(r.Context(), scope, planID)
		if err != nil {
			log.ErrorContext(r.Context(), "checkout recovery failed",
				slog.String("plan_id", planID),
				slog.Any("error", err))
			respondError(w, http.StatusInternalServerError, err)
			return
		}

		body := map[string]any{
			"found":        result.Found,
			"offer_resume": result.OfferResume,
		}
		if result.Found {
			body["installments"] = result.Installments
			body["payment_type"] = string(result.PaymentType)
			body["form_data"] = map[string]string{
				"email":     result.FormData.Email,
				"phone":     result.FormData.Phone,
				"full_name": result.FormData.FullName,
				"tax_id":    result.FormData.TaxID,
			}
		}
		if result.OfferResume {
			body["payment_link"] = result.PaymentLink
		}
		respondJSON(w, http.StatusOK, body)
	}
}

func successHandler(success *SuccessHandler, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope := r.Header.Get(ScopeHeader)
		if scope == "" {
			respondError(w, http.StatusBadRequest, ErrInvalidScope)
			return
		}

		result, err := success.Complete(r.Context(), scope)
		if err != nil {
			log.ErrorContext(r.Context(), "checkout completion failed",
				slog.Any("error", err))
			respondError(w, http.StatusInternalServerError, err)
			return
		}

		respondJSON(w, http.StatusOK, map[string]any{
			"status":            result.Status,
			"already_completed": result.AlreadyCompleted,
		})
	}
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// respondError emits only the friendly localized text; the raw error
// stays in the logs.
func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"error": FriendlyMessage(err)})
}
