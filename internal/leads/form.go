package leads

import "sync"

// Form tracks the values a visitor has typed so far.
type Form struct {
	mu     sync.RWMutex
	values map[Field]string
}

// NewForm creates an empty form.
func NewForm() *Form {
	return &Form{values: make(map[Field]string, len(Fields))}
}

// FormFromSubmission seeds a form with every field of s.
func FormFromSubmission(s Submission) *Form {
	f := NewForm()
	f.values[FieldName] = s.Name
	f.values[FieldPhone] = s.Phone
	f.values[FieldEmail] = s.Email
	return f
}

// Set stores a raw field value. Phone input is re-rendered with the mask so
// callers can echo it back to the visitor.
func (f *Form) Set(field Field, value string) (string, error) {
	switch field {
	case FieldName, FieldEmail:
	case FieldPhone:
		value = FormatPhoneMask(value)
	default:
		return "", ErrUnknownField
	}
	f.mu.Lock()
	f.values[field] = value
	f.mu.Unlock()
	return value, nil
}

// Value returns the stored value for field.
func (f *Form) Value(field Field) string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.values[field]
}

// Values returns the current field values as a submission.
func (f *Form) Values() Submission {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return Submission{
		Name:  f.values[FieldName],
		Phone: f.values[FieldPhone],
		Email: f.values[FieldEmail],
	}
}

// Errors validates only the fields that have been touched.
func (f *Form) Errors() FieldErrors {
	f.mu.RLock()
	defer f.mu.RUnlock()
	errs := FieldErrors{}
	for field, value := range f.values {
		if msg := ValidateField(field, value); msg != "" {
			errs[field] = msg
		}
	}
	return errs
}

// CompletedFields lists the fields whose current value passes validation.
func (f *Form) CompletedFields() []Field {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []Field
	for _, field := range Fields {
		if v, ok := f.values[field]; ok && ValidateField(field, v) == "" {
			out = append(out, field)
		}
	}
	return out
}

// IsComplete is true only when all three fields validate.
func (f *Form) IsComplete() bool {
	return len(f.CompletedFields()) == len(Fields)
}
