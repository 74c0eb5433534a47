package handlers

import (
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rgpulse/landing-leads/internal/acquisition"
	"github.com/rgpulse/landing-leads/internal/events"
	"github.com/rgpulse/landing-leads/pkg/logging"
)

// Browser-reported signals that are not forwarded verbatim but turned into
// milestone events.
const (
	signalScroll    = "scroll"
	signalHeartbeat = "heartbeat"
)

var customEventName = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

// EventsHandler accepts tracking signals from landing pages.
type EventsHandler struct {
	store    acquisition.Store
	notifier *events.Notifier
	trackers *events.TrackerRegistry
	cookie   CookieConfig
	logger   *logging.Logger
}

// NewEventsHandler creates an events handler. trackers deduplicates scroll
// and time milestones per session.
func NewEventsHandler(store acquisition.Store, notifier *events.Notifier, trackers *events.TrackerRegistry, cookie CookieConfig, logger *logging.Logger) *EventsHandler {
	if trackers == nil {
		trackers = events.NewTrackerRegistry(30 * time.Minute)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &EventsHandler{store: store, notifier: notifier, trackers: trackers, cookie: cookie, logger: logger}
}

type eventRequest struct {
	Event string `json:"event"`

	PageURL   string `json:"page_url"`
	PagePath  string `json:"page_path"`
	PageTitle string `json:"page_title"`

	Section        string  `json:"section"`
	ScrollDepth    float64 `json:"scroll_depth"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`

	FormSource      string   `json:"form_source"`
	Step            string   `json:"step"`
	Field           string   `json:"field"`
	Value           string   `json:"value"`
	Fields          []string `json:"fields"`
	FieldsCompleted int      `json:"fields_completed"`
	TotalFields     int      `json:"total_fields"`

	Payload map[string]any `json:"payload"`
}

type eventsResponse struct {
	Accepted []string `json:"accepted"`
	Rejected []string `json:"rejected,omitempty"`
}

// Collect handles POST /api/events. It accepts a single signal object or an
// array of them and answers 202 with the names of the events emitted.
// Unsupported signals are listed as rejected; a batch with nothing usable
// is a 400.
func (h *EventsHandler) Collect(w http.ResponseWriter, r *http.Request) {
	batch, err := decodeEventBatch(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	sessionID := sessionFromRequest(r, h.cookie.name())
	acq := loadAcquisition(r.Context(), h.store, sessionID, h.logger)
	scope := h.notifier.ForSession(sessionID, acq)

	resp := eventsResponse{Accepted: make([]string, 0, len(batch))}
	for _, req := range batch {
		names, ok := h.dispatch(r, scope, sessionID, req)
		if !ok {
			resp.Rejected = append(resp.Rejected, req.Event)
			continue
		}
		resp.Accepted = append(resp.Accepted, names...)
	}
	if len(resp.Rejected) == len(batch) {
		jsonError(w, "unsupported event: "+strings.Join(resp.Rejected, ", "), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func decodeEventBatch(r *http.Request) ([]eventRequest, error) {
	var raw any
	if err := decodeJSON(r, &raw); err != nil {
		return nil, err
	}
	var batch []eventRequest
	switch raw.(type) {
	case []any:
		if err := remarshal(raw, &batch); err != nil {
			return nil, err
		}
	case map[string]any:
		var one eventRequest
		if err := remarshal(raw, &one); err != nil {
			return nil, err
		}
		batch = []eventRequest{one}
	default:
		return nil, errEmptyBody
	}
	if len(batch) == 0 {
		return nil, errEmptyBody
	}
	return batch, nil
}

// dispatch maps one signal onto catalogue events. It returns the names of
// the events emitted and false when the signal is not recognized.
func (h *EventsHandler) dispatch(r *http.Request, scope *events.Scope, sessionID string, req eventRequest) ([]string, bool) {
	ctx := r.Context()
	name := strings.TrimSpace(req.Event)
	page := req.PagePath
	if page == "" {
		page = req.PageURL
	}

	switch name {
	case events.NamePageView:
		scope.PageView(ctx, events.PageInfo{URL: req.PageURL, Path: req.PagePath, Title: req.PageTitle})
		return []string{name}, true
	case events.NameCTAClick:
		scope.CTAClick(ctx, req.Section, page, req.ScrollDepth)
		return []string{name}, true
	case events.NameFormStart:
		scope.FormStart(ctx, req.FormSource)
		return []string{name}, true
	case events.NameFormStep:
		scope.FormStep(ctx, req.Step, req.Field, req.Value)
		return []string{name}, true
	case events.NameFieldComplete:
		scope.FieldComplete(ctx, req.Fields)
		return []string{name}, true
	case events.NameFormAbandon:
		scope.FormAbandon(ctx, req.FormSource, req.FieldsCompleted, req.TotalFields)
		return []string{name}, true
	case signalScroll, events.NameScrollMilestone:
		tracker := h.trackers.Get(trackerKey(sessionID, r))
		var out []string
		for _, m := range tracker.ObserveScroll(req.ScrollDepth) {
			scope.ScrollMilestone(ctx, m, page, int64(req.ElapsedSeconds))
			out = append(out, events.NameScrollMilestone)
		}
		return out, true
	case signalHeartbeat, events.NameTimeOnPage:
		tracker := h.trackers.Get(trackerKey(sessionID, r))
		elapsed := time.Duration(req.ElapsedSeconds * float64(time.Second))
		var out []string
		for _, m := range tracker.ObserveElapsed(elapsed) {
			scope.TimeOnPage(ctx, int64(m/time.Second), page, tracker.MaxProgress())
			out = append(out, events.NameTimeOnPage)
		}
		return out, true
	case events.NameLeadCaptured, events.NameLeadConversion, events.NameConversion,
		events.NameFormError, events.NameCheckoutRedirect, events.NameTrackingParamsUpdated,
		events.NameFormSubmission, events.NameFacebookLead:
		// Raised by the server only.
		return nil, false
	}

	if !customEventName.MatchString(name) {
		return nil, false
	}
	scope.Emit(ctx, name, req.Payload)
	return []string{name}, true
}

// trackerKey falls back to the client host for visitors without a session
// so milestones still fire once across connections.
func trackerKey(sessionID string, r *http.Request) string {
	if sessionID != "" {
		return sessionID
	}
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return "anon:" + host
}
