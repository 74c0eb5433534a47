package leads

import "errors"

// User-facing validation messages.
const (
	MsgNameRequired  = "Por favor, informe seu nome"
	MsgNameTooShort  = "O nome deve ter pelo menos 3 caracteres"
	MsgPhoneRequired = "Por favor, informe seu WhatsApp"
	MsgPhoneInvalid  = "Informe um WhatsApp com DDD (10 ou 11 dígitos)"
	MsgEmailRequired = "Por favor, informe seu email"
	MsgEmailInvalid  = "Por favor, informe um email válido"
)

var (
	// ErrUnknownField is returned when a form update names a field that does not exist.
	ErrUnknownField = errors.New("leads: unknown form field")

	// ErrMissingDraftKey is returned when a draft has no session key.
	ErrMissingDraftKey = errors.New("leads: draft key is required")

	// ErrEmptyDraft is returned when a draft carries no values at all.
	ErrEmptyDraft = errors.New("leads: draft has no values")
)
