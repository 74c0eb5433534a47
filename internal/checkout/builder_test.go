package checkout

import (
	"net/url"
	"testing"

	"github.com/rgpulse/landing-leads/internal/acquisition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBuilderRejectsBadURLs(t *testing.T) {
	for _, raw := range []string{"", "not a url", "/relative", "://x"} {
		_, err := NewBuilder(raw, false)
		assert.ErrorIs(t, err, ErrInvalidURL, raw)
	}
}

func TestURLAppendsAcquisitionParams(t *testing.T) {
	b, err := NewBuilder("https://pay.example.com/checkout?product=42", false)
	require.NoError(t, err)

	acq := acquisition.Capture("https://lp.example/?utm_source=fb&utm_campaign=launch&fbclid=abc",
		"https://instagram.com/", "Mozilla/5.0")
	got := b.URL(acq, &Prefill{Name: "Ana Silva", Email: "ana@example.com"})

	u, err := url.Parse(got)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "pay.example.com", u.Host)
	assert.Equal(t, "42", q.Get("product"))
	assert.Equal(t, "fb", q.Get("utm_source"))
	assert.Equal(t, "launch", q.Get("utm_campaign"))
	assert.Equal(t, "abc", q.Get("fbclid"))
	assert.Empty(t, q.Get("referrer"))
	assert.Empty(t, q.Get("user_agent"))
	assert.Empty(t, q.Get("name"), "prefill disabled")
}

func TestURLIsDeterministic(t *testing.T) {
	b, err := NewBuilder("https://pay.example.com/c", false)
	require.NoError(t, err)
	acq := acquisition.Capture("?utm_term=x&gclid=g&utm_source=s", "", "")
	assert.Equal(t, "https://pay.example.com/c?gclid=g&utm_source=s&utm_term=x", b.URL(acq, nil))
	assert.Equal(t, b.URL(acq, nil), b.URL(acq, nil))
}

func TestURLWithoutParamsKeepsBase(t *testing.T) {
	b, err := NewBuilder("https://pay.example.com/c", false)
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/c", b.URL(acquisition.Context{}, nil))
	assert.Equal(t, "https://pay.example.com/c", b.Base())
}

func TestURLPrefill(t *testing.T) {
	b, err := NewBuilder("https://pay.example.com/c", true)
	require.NoError(t, err)
	got := b.URL(acquisition.Context{}, &Prefill{Name: " Ana ", Email: "ana@example.com"})
	assert.Equal(t, "https://pay.example.com/c?email=ana%40example.com&name=Ana", got)
}
