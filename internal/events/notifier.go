package events

import (
	"context"
	"fmt"
	"time"

	"github.com/rgpulse/landing-leads/internal/acquisition"
	"github.com/rgpulse/landing-leads/pkg/logging"
)

// SessionKey is the payload key carrying the page session id.
const SessionKey = "session_id"

type eventObserver interface {
	ObserveEvent(name, status string)
}

// NotifierOption customizes a Notifier.
type NotifierOption func(*Notifier)

// WithSinkTimeout bounds each sink call.
func WithSinkTimeout(d time.Duration) NotifierOption {
	return func(n *Notifier) {
		if d > 0 {
			n.timeout = d
		}
	}
}

// WithEventObserver records emit outcomes, typically in prometheus.
func WithEventObserver(obs eventObserver) NotifierOption {
	return func(n *Notifier) {
		n.observer = obs
	}
}

// Notifier pushes events to a sink. Emit never fails the caller: sink errors
// and panics are logged and swallowed.
type Notifier struct {
	sink     Sink
	logger   *logging.Logger
	timeout  time.Duration
	observer eventObserver
}

// NewNotifier creates a notifier. A nil sink falls back to a LogSink.
func NewNotifier(sink Sink, logger *logging.Logger, opts ...NotifierOption) *Notifier {
	if logger == nil {
		logger = logging.Default()
	}
	if sink == nil {
		sink = NewLogSink(logger)
	}
	n := &Notifier{
		sink:    sink,
		logger:  logger,
		timeout: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Emit builds and pushes an event synchronously.
func (n *Notifier) Emit(ctx context.Context, name string, payload map[string]any) {
	if n == nil {
		return
	}
	n.Push(ctx, New(name, payload))
}

// Push delivers a prepared event.
func (n *Notifier) Push(ctx context.Context, evt Event) {
	if n == nil {
		return
	}
	status := "ok"
	defer func() {
		if r := recover(); r != nil {
			status = "panic"
			n.logger.Error("event sink panicked", "event", evt.Name, "panic", fmt.Sprint(r))
		}
		if n.observer != nil {
			n.observer.ObserveEvent(MetricLabel(evt.Name), status)
		}
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	// Sinks must not be cut short because the request that triggered the
	// event has already finished.
	sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	if err := n.sink.Emit(sinkCtx, evt); err != nil {
		status = "error"
		n.logger.Warn("failed to emit tracking event", "event", evt.Name, "event_id", evt.ID, "error", err)
	}
}

// ForSession returns a notifier that enriches every event with the session
// id and acquisition parameters.
func (n *Notifier) ForSession(sessionID string, acq acquisition.Context) *Scope {
	return &Scope{notifier: n, sessionID: sessionID, acq: acq}
}

// Scope is a Notifier bound to one page session.
type Scope struct {
	notifier  *Notifier
	sessionID string
	acq       acquisition.Context
}

// SessionID returns the bound session id.
func (s *Scope) SessionID() string {
	return s.sessionID
}

// Acquisition returns the bound acquisition context.
func (s *Scope) Acquisition() acquisition.Context {
	return s.acq
}

// Emit enriches payload and pushes it. Payload keys win over acquisition keys.
func (s *Scope) Emit(ctx context.Context, name string, payload map[string]any) {
	if s == nil {
		return
	}
	s.notifier.Emit(ctx, name, Enrich(payload, s.sessionID, s.acq))
}

// Enrich returns a copy of payload with the session id and every acquisition
// field added where the payload does not already set the key.
func Enrich(payload map[string]any, sessionID string, acq acquisition.Context) map[string]any {
	out := make(map[string]any, len(payload)+8)
	for k, v := range acq.Fields() {
		out[k] = v
	}
	if sessionID != "" {
		out[SessionKey] = sessionID
	}
	for k, v := range payload {
		out[k] = v
	}
	return out
}
