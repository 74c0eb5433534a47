package leads

import (
	"sort"
	"strings"
)

// Field identifies one of the three lead form inputs.
type Field string

const (
	FieldName  Field = "name"
	FieldPhone Field = "phone"
	FieldEmail Field = "email"
)

// Fields lists the form inputs in display order.
var Fields = []Field{FieldName, FieldPhone, FieldEmail}

// ParseField accepts the canonical names plus the webhook aliases used by the
// landing pages (first_name, whatsapp).
func ParseField(raw string) (Field, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "name", "first_name":
		return FieldName, true
	case "phone", "whatsapp":
		return FieldPhone, true
	case "email":
		return FieldEmail, true
	}
	return "", false
}

// Submission is the lead a visitor sends once the form is complete.
type Submission struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Normalized returns a copy with the name sanitized, the phone reduced to
// digits and the email trimmed and lowercased.
func (s Submission) Normalized() Submission {
	return Submission{
		Name:  SanitizeName(s.Name),
		Phone: NormalizePhone(s.Phone),
		Email: strings.ToLower(strings.TrimSpace(s.Email)),
	}
}

// FieldErrors maps each failing field to a user-facing message.
type FieldErrors map[Field]string

// Has reports whether f failed validation.
func (e FieldErrors) Has(f Field) bool {
	_, ok := e[f]
	return ok
}

// Fields returns the failing fields sorted by name.
func (e FieldErrors) Fields() []Field {
	out := make([]Field, 0, len(e))
	for f := range e {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Error joins the messages so FieldErrors can travel as an error.
func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, f := range e.Fields() {
		parts = append(parts, string(f)+": "+e[f])
	}
	return "leads: invalid submission: " + strings.Join(parts, "; ")
}

// AsMap converts the errors into JSON-friendly string keys.
func (e FieldErrors) AsMap() map[string]string {
	out := make(map[string]string, len(e))
	for f, msg := range e {
		out[string(f)] = msg
	}
	return out
}
