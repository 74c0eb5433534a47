package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rgpulse/landing-leads/internal/acquisition"
	"github.com/rgpulse/landing-leads/internal/events"
	"github.com/rgpulse/landing-leads/pkg/logging"
)

// SessionHandler captures acquisition parameters when a landing page loads.
type SessionHandler struct {
	store    acquisition.Store
	notifier *events.Notifier
	cookie   CookieConfig
	logger   *logging.Logger
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(store acquisition.Store, notifier *events.Notifier, cookie CookieConfig, logger *logging.Logger) *SessionHandler {
	if store == nil {
		panic("handlers: acquisition store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SessionHandler{store: store, notifier: notifier, cookie: cookie, logger: logger}
}

type captureRequest struct {
	PageURL   string `json:"page_url"`
	Referrer  string `json:"referrer"`
	UserAgent string `json:"user_agent"`
	Path      string `json:"page_path"`
	Title     string `json:"page_title"`
}

type sessionResponse struct {
	SessionID   string              `json:"session_id"`
	Acquisition acquisition.Context `json:"acquisition"`
	Fresh       bool                `json:"fresh"`
}

// Capture handles POST /api/sessions. The page URL's allow-listed params are
// stored for the session. A load without params keeps what an earlier page
// in the same session captured, so navigating within the site does not wipe
// attribution.
func (h *SessionHandler) Capture(w http.ResponseWriter, r *http.Request) {
	var req captureRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.UserAgent == "" {
		req.UserAgent = r.UserAgent()
	}

	sessionID := sessionFromRequest(r, h.cookie.name())
	if sessionID == "" {
		sessionID = acquisition.NewSessionID()
	}

	acq := acquisition.Capture(req.PageURL, req.Referrer, req.UserAgent)
	fresh := len(acq.URLParams()) > 0
	if !fresh {
		if stored := loadAcquisition(r.Context(), h.store, sessionID, h.logger); !stored.IsEmpty() {
			acq = stored
		}
	}
	if !acq.IsEmpty() {
		if err := h.store.Save(r.Context(), sessionID, acq); err != nil {
			h.logger.Error("failed to save acquisition context", "session_id", sessionID, "error", err)
		}
	}

	scope := h.notifier.ForSession(sessionID, acq)
	scope.PageView(r.Context(), events.PageInfo{URL: req.PageURL, Path: req.Path, Title: req.Title})
	if fresh {
		scope.TrackingParamsUpdated(r.Context())
		h.cookie.setClickIDCookies(w, acq, time.Now())
	}

	h.cookie.set(w, sessionID)
	writeJSON(w, http.StatusOK, sessionResponse{SessionID: sessionID, Acquisition: acq, Fresh: fresh})
}

// Get handles GET /api/sessions/{sessionID}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if !acquisition.ValidSessionID(sessionID) {
		jsonError(w, "invalid session id", http.StatusBadRequest)
		return
	}
	acq, ok, err := h.store.Load(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("failed to load acquisition context", "session_id", sessionID, "error", err)
		jsonError(w, "failed to load session", http.StatusInternalServerError)
		return
	}
	if !ok {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{SessionID: sessionID, Acquisition: acq})
}
