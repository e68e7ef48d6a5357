package checkout

import (
	"errors"
	"strings"
)

var (
	// ErrPlanNotFound is returned for unknown plan ids. Callers redirect
	// to plan selection instead of proceeding.
	ErrPlanNotFound = errors.New("plan not found")

	// ErrIncompleteRegistration is returned when required registration
	// fields are missing or invalid. The provider is never called.
	ErrIncompleteRegistration = errors.New("incomplete registration data")

	// ErrStateNotFound is returned when no recovery state exists for a
	// scope, or the stored blob is unreadable.
	ErrStateNotFound = errors.New("recovery state not found")

	// ErrInvalidScope is returned when the checkout scope token is
	// missing or malformed.
	ErrInvalidScope = errors.New("invalid checkout scope")

	// ErrPaymentProvider wraps failures from the payment provider. Not
	// retried automatically; the user retries manually.
	ErrPaymentProvider = errors.New("payment provider error")

	// ErrInvalidPlanConfiguration is returned when the catalog source
	// yields internally inconsistent plans.
	ErrInvalidPlanConfiguration = errors.New("invalid plan configuration")
)

// friendlyFallback is shown when no mapping entry matches.
const friendlyFallback = "Não foi possível processar seu pagamento. Tente novamente em alguns instantes."

// friendlyMessages maps raw error substrings to localized user-facing
// text. Matched in order; first hit wins.
var friendlyMessages = []struct {
	substr  string
	message string
}{
	{"plan not found", "Plano não encontrado. Escolha um plano para continuar."},
	{"incomplete registration", "Preencha todos os dados de cadastro para continuar."},
	{"invalid checkout scope", "Sua sessão de compra expirou. Recarregue a página e tente novamente."},
	{"declined", "Pagamento recusado pela operadora. Tente outro método de pagamento."},
	{"card", "Não foi possível validar seu cartão. Verifique os dados e tente novamente."},
	{"timeout", "O provedor de pagamento demorou para responder. Tente novamente."},
	{"deadline exceeded", "O provedor de pagamento demorou para responder. Tente novamente."},
	{"connection refused", "Não foi possível conectar ao provedor de pagamento. Tente novamente."},
	{"payment provider", "Falha na comunicação com o provedor de pagamento. Tente novamente."},
}

// FriendlyMessage maps an error to localized user-facing text. The raw
// error never reaches the user; it is logged with the process id instead.
func FriendlyMessage(err error) string {
	if err == nil {
		return ""
	}

	raw := strings.ToLower(err.Error())
	for _, entry := range friendlyMessages {
		if strings.Contains(raw, entry.substr) {
			return entry.message
		}
	}
	return friendlyFallback
}
