package submission

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/rgpulse/landing-leads/internal/acquisition"
	"github.com/rgpulse/landing-leads/internal/checkout"
	"github.com/rgpulse/landing-leads/internal/events"
	"github.com/rgpulse/landing-leads/internal/leads"
	"github.com/rgpulse/landing-leads/internal/webhook"
	"github.com/rgpulse/landing-leads/pkg/logging"
)

var tracer = otel.Tracer("landing.internal.submission")

// Payload keys sent to the webhook.
const (
	KeyFirstName = "first_name"
	KeyWhatsApp  = "whatsapp"
	KeyEmail     = "email"
)

const defaultFormSource = "lead_form"

// LeadPoster delivers a lead payload. *webhook.Client satisfies it.
type LeadPoster interface {
	Post(ctx context.Context, payload map[string]any) (*webhook.Response, error)
}

// URLBuilder composes the checkout redirect. *checkout.Builder satisfies it.
type URLBuilder interface {
	URL(acq acquisition.Context, prefill *checkout.Prefill) string
}

type outcomeObserver interface {
	ObserveSubmission(outcome string)
	ObserveWebhookLatency(outcome string, seconds float64)
}

// Config tunes the coordinator.
type Config struct {
	Timeout         time.Duration
	CountryCode     string
	Currency        string
	GoogleAdsSendTo string
	FacebookPixelID string
	RedirectDelay   time.Duration
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithMetrics records outcomes and webhook latency.
func WithMetrics(obs outcomeObserver) Option {
	return func(c *Coordinator) {
		c.metrics = obs
	}
}

// Meta identifies where a submission came from.
type Meta struct {
	SessionID  string
	FormSource string
	// Page is the path the form was submitted from.
	Page string
}

// Coordinator runs one submission attempt end to end: validation, payload
// assembly, the webhook call raced against a timeout, classification and the
// resulting tracking events.
type Coordinator struct {
	poster   LeadPoster
	redirect URLBuilder
	notifier *events.Notifier
	cfg      Config
	logger   *logging.Logger
	metrics  outcomeObserver
}

// NewCoordinator wires a coordinator. poster and redirect are required.
func NewCoordinator(poster LeadPoster, redirect URLBuilder, notifier *events.Notifier, cfg Config, logger *logging.Logger, opts ...Option) *Coordinator {
	if poster == nil {
		panic("submission: lead poster cannot be nil")
	}
	if redirect == nil {
		panic("submission: url builder cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.CountryCode == "" {
		cfg.CountryCode = "55"
	}
	if cfg.Currency == "" {
		cfg.Currency = "BRL"
	}
	if cfg.RedirectDelay <= 0 {
		cfg.RedirectDelay = 1500 * time.Millisecond
	}
	c := &Coordinator{
		poster:   poster,
		redirect: redirect,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit runs a submission without session metadata.
func (c *Coordinator) Submit(ctx context.Context, sub leads.Submission, acq acquisition.Context) Outcome {
	return c.SubmitWith(ctx, sub, acq, Meta{})
}

// SubmitWith runs a single attempt. It never retries and never panics; every
// failure is returned as an Outcome.
func (c *Coordinator) SubmitWith(ctx context.Context, sub leads.Submission, acq acquisition.Context, meta Meta) (out Outcome) {
	if meta.FormSource == "" {
		meta.FormSource = defaultFormSource
	}
	ctx, span := tracer.Start(ctx, "submission.submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("landing.session_id", meta.SessionID),
		attribute.String("landing.form_source", meta.FormSource),
	)

	scope := c.notifier.ForSession(meta.SessionID, acq)
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("submission panicked", "panic", r, "session_id", meta.SessionID)
			out = Outcome{Kind: KindNetworkError, Message: MsgConnection, Cause: fmt.Errorf("submission: panic: %v", r)}
		}
		span.SetAttributes(attribute.String("landing.outcome", string(out.Kind)))
		if !out.SoftSuccess() {
			span.SetStatus(codes.Error, string(out.Kind))
		}
		if c.metrics != nil {
			c.metrics.ObserveSubmission(string(out.Kind))
		}
		c.report(ctx, scope, meta, sub, out)
	}()

	if errs := leads.Validate(sub); len(errs) > 0 {
		return Outcome{Kind: KindValidationError, FieldErrors: errs, Message: MsgValidation, Cause: errs}
	}

	payload := BuildPayload(sub, acq, c.cfg.CountryCode)
	start := time.Now()
	out = c.race(ctx, payload)
	if c.metrics != nil {
		c.metrics.ObserveWebhookLatency(string(out.Kind), time.Since(start).Seconds())
	}

	if out.SoftSuccess() {
		norm := sub.Normalized()
		out.Celebrate = true
		out.RedirectURL = c.redirect.URL(acq, &checkout.Prefill{Name: norm.Name, Email: norm.Email})
		out.RedirectAfter = c.cfg.RedirectDelay
	}
	return out
}

type postResult struct {
	resp *webhook.Response
	err  error
}

// race sends the payload and waits for the first of the reply, the submit
// timeout, or the caller going away. A call that loses the race keeps
// running on a detached context and its result is dropped.
func (c *Coordinator) race(ctx context.Context, payload map[string]any) Outcome {
	done := make(chan postResult, 1)
	callCtx := context.WithoutCancel(ctx)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- postResult{err: fmt.Errorf("submission: webhook panic: %v", r)}
			}
		}()
		resp, err := c.poster.Post(callCtx, payload)
		done <- postResult{resp: resp, err: err}
	}()

	timer := time.NewTimer(c.cfg.Timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		return Classify(res.resp, res.err)
	case <-timer.C:
		return Outcome{
			Kind:    KindTimeout,
			Message: MsgTimeout,
			Cause:   fmt.Errorf("submission: webhook did not answer within %s", c.cfg.Timeout),
		}
	case <-ctx.Done():
		return Outcome{Kind: KindTimeout, Message: MsgTimeout, Cause: ctx.Err()}
	}
}

// BuildPayload merges the lead fields with the acquisition context. Lead
// keys win over acquisition keys of the same name.
func BuildPayload(sub leads.Submission, acq acquisition.Context, countryCode string) map[string]any {
	norm := sub.Normalized()
	fields := acq.Fields()
	payload := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		payload[k] = v
	}
	payload[KeyFirstName] = norm.Name
	payload[KeyWhatsApp] = leads.E164(norm.Phone, countryCode)
	payload[KeyEmail] = norm.Email
	return payload
}

// Classify maps a webhook reply or error onto an Outcome.
func Classify(resp *webhook.Response, err error) Outcome {
	if err == nil {
		out := Outcome{Kind: KindSuccess, Message: MsgSuccess}
		if resp != nil {
			out.Ack = resp.Ack
		}
		if out.Ack == nil {
			out.Ack = map[string]any{}
		}
		return out
	}

	var statusErr *webhook.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode == http.StatusConflict || IsDuplicate(statusErr.Message) {
			return Outcome{Kind: KindDuplicateEmail, Message: MsgDuplicateEmail, Cause: err}
		}
		return Outcome{Kind: KindNetworkError, Message: statusErr.Error(), Cause: err}
	}
	if IsDuplicate(err.Error()) {
		return Outcome{Kind: KindDuplicateEmail, Message: MsgDuplicateEmail, Cause: err}
	}
	return Outcome{Kind: KindNetworkError, Message: MsgConnection, Cause: err}
}

var duplicateMarkers = []string{"duplicate key", "duplicate", "already exists"}

// IsDuplicate reports whether a server message says the lead already exists.
func IsDuplicate(message string) bool {
	msg := strings.ToLower(message)
	for _, marker := range duplicateMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func (c *Coordinator) report(ctx context.Context, scope *events.Scope, meta Meta, sub leads.Submission, out Outcome) {
	norm := sub.Normalized()
	info := events.LeadInfo{
		Name:     norm.Name,
		HasName:  norm.Name != "",
		HasPhone: norm.Phone != "",
		HasEmail: norm.Email != "",
	}
	switch out.Kind {
	case KindSuccess, KindDuplicateEmail:
		c.logger.Info("lead captured", "session_id", meta.SessionID, "form_source", meta.FormSource, "outcome", out.Kind)
		scope.LeadCaptured(ctx, meta.FormSource, info, out.Kind == KindDuplicateEmail)
		scope.FormSubmission(ctx, meta.Page, meta.FormSource)
		scope.LeadConversion(ctx, meta.FormSource, c.cfg.Currency, events.ConversionTargets{
			GoogleAdsSendTo: c.cfg.GoogleAdsSendTo,
			FacebookPixelID: c.cfg.FacebookPixelID,
		})
	case KindValidationError:
		c.logger.Info("lead rejected by validation", "session_id", meta.SessionID, "fields", out.FieldErrors.Fields())
		scope.FormError(ctx, meta.FormSource, "validation", out.Message)
	default:
		c.logger.Warn("lead submission failed", "session_id", meta.SessionID, "outcome", out.Kind, "error", out.Cause)
		scope.FormError(ctx, meta.FormSource, string(out.Kind), out.Message)
	}
}
