package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rgpulse/landing-leads/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(Config{URL: srv.URL, Logger: logging.Discard()})
	require.NoError(t, err)
	return c
}

func TestNewRequiresURL(t *testing.T) {
	_, err := New(Config{URL: "  "})
	assert.ErrorIs(t, err, ErrMissingURL)
}

func TestPostSendsJSON(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"lead-1"}`))
	})

	resp, err := c.Post(context.Background(), map[string]any{"first_name": "Ana", "utm_source": "fb"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "lead-1", resp.Ack["id"])
	assert.Equal(t, "Ana", got["first_name"])
	assert.Equal(t, "fb", got["utm_source"])
}

func TestPostWrapsNonJSONAck(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("Accepted"))
	})
	resp, err := c.Post(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "Accepted", resp.Ack["raw"])
}

func TestPostStatusErrors(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"json message", http.StatusInternalServerError, `{"message":"internal error"}`, "internal error"},
		{"json error", http.StatusBadRequest, `{"error":"duplicate key value violates unique constraint"}`, "duplicate key value violates unique constraint"},
		{"plain text", http.StatusBadGateway, "upstream down", "upstream down"},
		{"empty", http.StatusServiceUnavailable, "", "webhook returned status 503"},
		{"json without message", http.StatusInternalServerError, `{"code":42}`, "webhook returned status 500"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := c.Post(context.Background(), map[string]any{})
			var statusErr *StatusError
			require.True(t, errors.As(err, &statusErr))
			assert.Equal(t, tc.status, statusErr.StatusCode)
			assert.Equal(t, tc.message, statusErr.Error())
		})
	}
}

func TestPostHonorsHTTPTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c, err := New(Config{URL: srv.URL, Timeout: 20 * time.Millisecond, Logger: logging.Discard()})
	require.NoError(t, err)
	_, err = c.Post(context.Background(), map[string]any{})
	require.Error(t, err)
	var statusErr *StatusError
	assert.False(t, errors.As(err, &statusErr))
}
