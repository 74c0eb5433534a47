package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/rgpulse/landing-leads/internal/acquisition"
	"github.com/rgpulse/landing-leads/internal/events"
	"github.com/rgpulse/landing-leads/internal/leads"
	"github.com/rgpulse/landing-leads/internal/submission"
	"github.com/rgpulse/landing-leads/pkg/logging"
)

// Submitter runs one lead submission. *submission.Coordinator satisfies it.
type Submitter interface {
	SubmitWith(ctx context.Context, sub leads.Submission, acq acquisition.Context, meta submission.Meta) submission.Outcome
}

// LeadsHandler serves lead submission, live validation and partial saves.
type LeadsHandler struct {
	submitter Submitter
	store     acquisition.Store
	drafts    *leads.DraftSaver
	cookie    CookieConfig
	logger    *logging.Logger
}

// NewLeadsHandler creates a leads handler. drafts may be nil, which turns
// the draft endpoint off.
func NewLeadsHandler(submitter Submitter, store acquisition.Store, drafts *leads.DraftSaver, cookie CookieConfig, logger *logging.Logger) *LeadsHandler {
	if submitter == nil {
		panic("handlers: submitter cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &LeadsHandler{submitter: submitter, store: store, drafts: drafts, cookie: cookie, logger: logger}
}

// leadRequest accepts both the form field names and the webhook names.
type leadRequest struct {
	Name       string `json:"name"`
	FirstName  string `json:"first_name"`
	Phone      string `json:"phone"`
	WhatsApp   string `json:"whatsapp"`
	Email      string `json:"email"`
	FormSource string `json:"form_source"`
	PagePath   string `json:"page_path"`
}

func (r leadRequest) submission() leads.Submission {
	return leads.Submission{
		Name:  firstNonEmpty(r.Name, r.FirstName),
		Phone: firstNonEmpty(r.Phone, r.WhatsApp),
		Email: r.Email,
	}
}

type submitResponse struct {
	Outcome         submission.Kind   `json:"outcome"`
	Message         string            `json:"message,omitempty"`
	FieldErrors     map[string]string `json:"field_errors,omitempty"`
	Ack             map[string]any    `json:"ack,omitempty"`
	Celebrate       bool              `json:"celebrate"`
	RedirectURL     string            `json:"redirect_url,omitempty"`
	RedirectAfterMS int64             `json:"redirect_after_ms,omitempty"`
	Retryable       bool              `json:"retryable"`
}

// Submit handles POST /api/leads.
func (h *LeadsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req leadRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	sessionID := sessionFromRequest(r, h.cookie.name())
	acq := loadAcquisition(r.Context(), h.store, sessionID, h.logger)

	out := h.submitter.SubmitWith(r.Context(), req.submission(), acq, submission.Meta{
		SessionID:  sessionID,
		FormSource: req.FormSource,
		Page:       req.PagePath,
	})

	if out.SoftSuccess() && sessionID != "" {
		h.drafts.Forget(sessionID)
	}

	resp := submitResponse{
		Outcome:     out.Kind,
		Message:     out.Message,
		Ack:         out.Ack,
		Celebrate:   out.Celebrate,
		RedirectURL: out.RedirectURL,
		Retryable:   out.Retryable(),
	}
	if len(out.FieldErrors) > 0 {
		resp.FieldErrors = out.FieldErrors.AsMap()
	}
	if out.RedirectAfter > 0 {
		resp.RedirectAfterMS = out.RedirectAfter.Milliseconds()
	}
	writeJSON(w, statusForOutcome(out.Kind), resp)
}

func statusForOutcome(kind submission.Kind) int {
	switch kind {
	case submission.KindSuccess, submission.KindDuplicateEmail:
		return http.StatusOK
	case submission.KindValidationError:
		return http.StatusUnprocessableEntity
	case submission.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

type validateResponse struct {
	Valid           bool              `json:"valid"`
	IsComplete      bool              `json:"is_complete"`
	FieldErrors     map[string]string `json:"field_errors,omitempty"`
	PhoneMask       string            `json:"phone_mask,omitempty"`
	CompletedFields []leads.Field     `json:"completed_fields"`
}

// Validate handles POST /api/leads/validate. Only the fields present in the
// body are checked so the page can validate as the visitor types.
func (h *LeadsHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var raw map[string]string
	if err := decodeJSON(r, &raw); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	form := leads.NewForm()
	resp := validateResponse{CompletedFields: []leads.Field{}}
	for key, value := range raw {
		field, ok := leads.ParseField(key)
		if !ok {
			continue
		}
		stored, err := form.Set(field, value)
		if err != nil {
			continue
		}
		if field == leads.FieldPhone {
			resp.PhoneMask = stored
		}
	}
	errs := form.Errors()
	resp.Valid = len(errs) == 0
	resp.IsComplete = form.IsComplete()
	if len(errs) > 0 {
		resp.FieldErrors = errs.AsMap()
	}
	if completed := form.CompletedFields(); len(completed) > 0 {
		resp.CompletedFields = completed
	}
	writeJSON(w, http.StatusOK, resp)
}

// Draft handles POST /api/leads/draft. Saves are debounced and best effort;
// the response only says the update was queued.
func (h *LeadsHandler) Draft(w http.ResponseWriter, r *http.Request) {
	if h.drafts == nil {
		jsonError(w, "draft saving is disabled", http.StatusNotFound)
		return
	}
	var req leadRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	sessionID := sessionFromRequest(r, h.cookie.name())
	if sessionID == "" {
		jsonError(w, leads.ErrMissingDraftKey.Error(), http.StatusBadRequest)
		return
	}
	values := req.submission()
	values.Email = strings.TrimSpace(values.Email)
	if values == (leads.Submission{}) {
		jsonError(w, leads.ErrEmptyDraft.Error(), http.StatusBadRequest)
		return
	}
	if err := h.drafts.Schedule(sessionID, values); err != nil {
		h.logger.Warn("draft not scheduled", "session_id", sessionID, "error", err)
		jsonError(w, "draft not accepted", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

type draftMetrics interface {
	ObserveDraft(status string)
}

// DraftEvents returns a draft observer that emits field_complete after each
// save and form_complete the first time a draft passes validation.
func DraftEvents(store acquisition.Store, notifier *events.Notifier, metrics draftMetrics, logger *logging.Logger) func(leads.DraftSaved, error) {
	if logger == nil {
		logger = logging.Default()
	}
	return func(saved leads.DraftSaved, err error) {
		if err != nil {
			if metrics != nil {
				metrics.ObserveDraft("error")
			}
			return
		}
		if metrics != nil {
			metrics.ObserveDraft("ok")
		}
		ctx := context.Background()
		key := saved.Draft.Key
		scope := notifier.ForSession(key, loadAcquisition(ctx, store, key, logger))

		names := make([]string, len(saved.Fields))
		for i, f := range saved.Fields {
			names[i] = string(f)
		}
		scope.FieldComplete(ctx, names)
		if saved.Complete {
			v := saved.Draft.Values.Normalized()
			scope.FormComplete(ctx, events.LeadInfo{
				Name:     v.Name,
				HasName:  v.Name != "",
				HasPhone: v.Phone != "",
				HasEmail: v.Email != "",
			})
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
