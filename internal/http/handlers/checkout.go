package handlers

import (
	"net/http"

	"github.com/rgpulse/landing-leads/internal/acquisition"
	"github.com/rgpulse/landing-leads/internal/checkout"
	"github.com/rgpulse/landing-leads/internal/events"
	"github.com/rgpulse/landing-leads/pkg/logging"
)

// CheckoutHandler sends the visitor to the external checkout page.
type CheckoutHandler struct {
	builder  *checkout.Builder
	store    acquisition.Store
	notifier *events.Notifier
	cookie   CookieConfig
	logger   *logging.Logger
}

// NewCheckoutHandler creates a checkout redirect handler.
func NewCheckoutHandler(builder *checkout.Builder, store acquisition.Store, notifier *events.Notifier, cookie CookieConfig, logger *logging.Logger) *CheckoutHandler {
	if builder == nil {
		panic("handlers: checkout builder cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CheckoutHandler{builder: builder, store: store, notifier: notifier, cookie: cookie, logger: logger}
}

// Redirect handles GET /checkout with a 302 to the checkout URL carrying the
// session's acquisition params. Optional name and email query values are
// forwarded when pre-fill is enabled.
func (h *CheckoutHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionFromRequest(r, h.cookie.name())
	if sessionID == "" {
		sessionID = r.URL.Query().Get("session_id")
		if !acquisition.ValidSessionID(sessionID) {
			sessionID = ""
		}
	}
	acq := loadAcquisition(r.Context(), h.store, sessionID, h.logger)
	q := r.URL.Query()
	target := h.builder.URL(acq, &checkout.Prefill{Name: q.Get("name"), Email: q.Get("email")})

	h.notifier.ForSession(sessionID, acq).CheckoutRedirect(r.Context(), target)
	http.Redirect(w, r, target, http.StatusFound)
}
