package checkout

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rgpulse/landing-leads/internal/acquisition"
)

// ErrInvalidURL is returned when the configured checkout URL cannot be parsed.
var ErrInvalidURL = errors.New("checkout: invalid checkout url")

// Prefill carries identity values appended when pre-filling is enabled.
type Prefill struct {
	Name  string
	Email string
}

// Builder composes the external checkout URL for a page session.
type Builder struct {
	base    *url.URL
	prefill bool
}

// NewBuilder parses checkoutURL once. When prefill is true, URL appends the
// lead's name and email.
func NewBuilder(checkoutURL string, prefill bool) (*Builder, error) {
	raw := strings.TrimSpace(checkoutURL)
	if raw == "" {
		return nil, ErrInvalidURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, ErrInvalidURL
	}
	return &Builder{base: u, prefill: prefill}, nil
}

// URL returns the checkout URL with the URL-derived acquisition params
// appended. Params already present in the checkout URL are overwritten by
// the visitor's values. Output keys are sorted by url.Values.Encode.
func (b *Builder) URL(acq acquisition.Context, prefill *Prefill) string {
	u := *b.base
	q := u.Query()
	for k, v := range acq.URLParams() {
		q.Set(k, v)
	}
	if b.prefill && prefill != nil {
		if name := strings.TrimSpace(prefill.Name); name != "" {
			q.Set("name", name)
		}
		if email := strings.TrimSpace(prefill.Email); email != "" {
			q.Set("email", email)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Base returns the configured checkout URL without session params.
func (b *Builder) Base() string {
	return b.base.String()
}
