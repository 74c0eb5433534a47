package submission

import (
	"time"

	"github.com/rgpulse/landing-leads/internal/leads"
)

// Kind classifies a submission attempt.
type Kind string

const (
	KindSuccess         Kind = "success"
	KindDuplicateEmail  Kind = "duplicate_email"
	KindValidationError Kind = "validation_error"
	KindNetworkError    Kind = "network_error"
	KindTimeout         Kind = "timeout"
)

// Messages shown next to the form.
const (
	MsgSuccess        = "Dados salvos com sucesso! Redirecionando para a oferta..."
	MsgDuplicateEmail = "Este e-mail já está cadastrado."
	MsgValidation     = "Verifique os campos destacados."
	MsgConnection     = "Erro de conexão com o servidor. Verifique sua conexão com a internet."
	MsgTimeout        = "A requisição demorou muito. Por favor, tente novamente."
)

// Outcome is the result of one submission attempt.
type Outcome struct {
	Kind        Kind
	Ack         map[string]any
	FieldErrors leads.FieldErrors
	Message     string
	Cause       error

	// Redirect instructions, set on success and duplicate.
	Celebrate     bool
	RedirectURL   string
	RedirectAfter time.Duration
}

// SoftSuccess reports whether the flow should proceed to checkout. A
// duplicate email counts because the visitor is already known.
func (o Outcome) SoftSuccess() bool {
	return o.Kind == KindSuccess || o.Kind == KindDuplicateEmail
}

// Retryable reports whether resubmitting the same values could succeed.
func (o Outcome) Retryable() bool {
	return o.Kind == KindNetworkError || o.Kind == KindTimeout
}
