package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rgpulse/landing-leads/internal/acquisition"
	"github.com/rgpulse/landing-leads/pkg/logging"
)

// SessionHeader lets pages that cannot use cookies pass the session id.
const SessionHeader = "X-Session-Id"

const maxBodyBytes = 64 << 10

var errEmptyBody = errors.New("request body is empty")

// CookieConfig controls the page session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

func (c CookieConfig) name() string {
	if c.Name == "" {
		return "lp_session"
	}
	return c.Name
}

// Ad click-id cookies read by the Google and Meta tags on the page.
const (
	googleClickCookie = "_gcl_aw"
	metaClickCookie   = "_fbp"
	clickCookieMaxAge = 2 * 365 * 24 * time.Hour
)

// setClickIDCookies mirrors gclid and fbclid into the first-party cookies the
// ad tags expect. They stay readable by page scripts.
func (c CookieConfig) setClickIDCookies(w http.ResponseWriter, acq acquisition.Context, now time.Time) {
	set := func(name, value string) {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    value,
			Path:     "/",
			MaxAge:   int(clickCookieMaxAge.Seconds()),
			Secure:   c.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	params := acq.URLParams()
	if gclid := params["gclid"]; gclid != "" {
		set(googleClickCookie, gclid)
	}
	if fbclid := params["fbclid"]; fbclid != "" {
		set(metaClickCookie, fmt.Sprintf("fb.1.%d.%s", now.UnixMilli(), fbclid))
	}
}

func (c CookieConfig) set(w http.ResponseWriter, sessionID string) {
	maxAge := c.MaxAge
	if maxAge <= 0 {
		maxAge = 30 * 24 * time.Hour
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// sessionFromRequest reads the session id from the header or cookie. Ids not
// issued by acquisition.NewSessionID are ignored.
func sessionFromRequest(r *http.Request, cookieName string) string {
	if id := strings.TrimSpace(r.Header.Get(SessionHeader)); acquisition.ValidSessionID(id) {
		return id
	}
	if cookieName == "" {
		cookieName = "lp_session"
	}
	if c, err := r.Cookie(cookieName); err == nil && acquisition.ValidSessionID(c.Value) {
		return c.Value
	}
	return ""
}

// loadAcquisition returns the stored context for sessionID. Missing sessions
// and store errors yield an empty context so tracking never blocks a lead.
func loadAcquisition(ctx context.Context, store acquisition.Store, sessionID string, logger *logging.Logger) acquisition.Context {
	if store == nil || sessionID == "" {
		return acquisition.Context{}
	}
	acq, ok, err := store.Load(ctx, sessionID)
	if err != nil {
		logger.Warn("failed to load acquisition context", "session_id", sessionID, "error", err)
		return acquisition.Context{}
	}
	if !ok {
		return acquisition.Context{}
	}
	return acq
}

func decodeJSON(r *http.Request, dst any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

func remarshal(src, dst any) error {
	data, err := json.Marshal(src)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
