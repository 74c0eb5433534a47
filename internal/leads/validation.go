package leads

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

const (
	minNameLength  = 3
	minPhoneDigits = 10
	maxPhoneDigits = 11
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	spaceRun     = regexp.MustCompile(`\s+`)
	namePolicy   = bluemonday.StrictPolicy()
)

// Validate checks every field and reports all failures at once.
func Validate(s Submission) FieldErrors {
	errs := FieldErrors{}
	if msg := validateName(s.Name); msg != "" {
		errs[FieldName] = msg
	}
	if msg := validatePhone(s.Phone); msg != "" {
		errs[FieldPhone] = msg
	}
	if msg := validateEmail(s.Email); msg != "" {
		errs[FieldEmail] = msg
	}
	return errs
}

// ValidateField checks a single field.
func ValidateField(f Field, value string) string {
	switch f {
	case FieldName:
		return validateName(value)
	case FieldPhone:
		return validatePhone(value)
	case FieldEmail:
		return validateEmail(value)
	}
	return ""
}

func validateName(raw string) string {
	name := SanitizeName(raw)
	if name == "" {
		return MsgNameRequired
	}
	if utf8.RuneCountInString(name) < minNameLength {
		return MsgNameTooShort
	}
	return ""
}

func validatePhone(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return MsgPhoneRequired
	}
	n := len(NormalizePhone(raw))
	if n < minPhoneDigits || n > maxPhoneDigits {
		return MsgPhoneInvalid
	}
	return ""
}

func validateEmail(raw string) string {
	email := strings.TrimSpace(raw)
	if email == "" {
		return MsgEmailRequired
	}
	if !emailPattern.MatchString(email) {
		return MsgEmailInvalid
	}
	return ""
}

// SanitizeName strips markup and collapses whitespace.
func SanitizeName(raw string) string {
	clean := html.UnescapeString(namePolicy.Sanitize(raw))
	return strings.TrimSpace(spaceRun.ReplaceAllString(clean, " "))
}

// NormalizePhone keeps only the ASCII digits of raw.
func NormalizePhone(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// E164 prefixes the digits of raw with the country calling code. Numbers that
// already carry the code (12 or 13 digits starting with it) are not prefixed
// again.
func E164(raw, countryCode string) string {
	digits := NormalizePhone(raw)
	if digits == "" {
		return ""
	}
	code := NormalizePhone(countryCode)
	if code == "" {
		return "+" + digits
	}
	if strings.HasPrefix(digits, code) {
		n := len(digits) - len(code)
		if n >= minPhoneDigits && n <= maxPhoneDigits {
			return "+" + digits
		}
	}
	return "+" + code + digits
}

// FormatPhoneMask renders partial input with the (XX) XXXXX-XXXX mask shown
// while the visitor types. Ten digit landlines render as (XX) XXXX-XXXX.
// Digits past the eleventh are dropped.
func FormatPhoneMask(raw string) string {
	digits := NormalizePhone(raw)
	if len(digits) > maxPhoneDigits {
		digits = digits[:maxPhoneDigits]
	}
	n := len(digits)
	switch {
	case n == 0:
		return ""
	case n <= 2:
		return "(" + digits
	case n <= 6:
		return "(" + digits[:2] + ") " + digits[2:]
	case n <= 10:
		return "(" + digits[:2] + ") " + digits[2:6] + "-" + digits[6:]
	default:
		return "(" + digits[:2] + ") " + digits[2:7] + "-" + digits[7:]
	}
}
