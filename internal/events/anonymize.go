package events

import "strings"

// Anonymize masks identity values before they reach the analytics queue.
// Emails keep the first three characters of the local part, phone numbers
// keep the first four and last three characters.
func Anonymize(field, value string) string {
	if field == "" || value == "" {
		return ""
	}
	f := strings.ToLower(field)
	switch {
	case strings.Contains(f, "email") && strings.Contains(value, "@"):
		at := strings.LastIndex(value, "@")
		user, domain := value[:at], value[at+1:]
		if r := []rune(user); len(r) > 3 {
			user = string(r[:3])
		}
		return user + "***@" + domain
	case strings.Contains(f, "phone") || strings.Contains(f, "whatsapp"):
		r := []rune(value)
		if len(r) <= 7 {
			return strings.Repeat("*", len(r))
		}
		return string(r[:4]) + "****" + string(r[len(r)-3:])
	}
	return value
}
