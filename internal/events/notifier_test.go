package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rgpulse/landing-leads/internal/acquisition"
	"github.com/rgpulse/landing-leads/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingObserver struct {
	mu     sync.Mutex
	counts map[string]int
}

func (o *countingObserver) ObserveEvent(name, status string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.counts == nil {
		o.counts = map[string]int{}
	}
	o.counts[name+":"+status]++
}

func TestNotifierRecordsInOrder(t *testing.T) {
	rec := NewRecorder()
	n := NewNotifier(rec, logging.Discard())

	n.Emit(context.Background(), NamePageView, map[string]any{"page_path": "/"})
	n.Emit(context.Background(), NameCTAClick, nil)

	assert.Equal(t, []string{NamePageView, NameCTAClick}, rec.Names())
	evt := rec.Events()[0]
	assert.NotEmpty(t, evt.ID)
	assert.False(t, evt.Timestamp.IsZero())
	assert.Equal(t, "/", evt.Payload["page_path"])
}

func TestNotifierSwallowsSinkErrorsAndPanics(t *testing.T) {
	obs := &countingObserver{}
	failing := SinkFunc(func(context.Context, Event) error { return errors.New("gtm not loaded") })
	panicking := SinkFunc(func(context.Context, Event) error { panic("boom") })

	assert.NotPanics(t, func() {
		NewNotifier(failing, logging.Discard(), WithEventObserver(obs)).Emit(context.Background(), NamePageView, nil)
		NewNotifier(panicking, logging.Discard(), WithEventObserver(obs)).Emit(context.Background(), NamePageView, nil)
	})
	assert.Equal(t, 1, obs.counts["page_view:error"])
	assert.Equal(t, 1, obs.counts["page_view:panic"])
}

func TestNotifierDetachesFromCanceledCaller(t *testing.T) {
	var sinkErr error
	sink := SinkFunc(func(ctx context.Context, _ Event) error {
		sinkErr = ctx.Err()
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	NewNotifier(sink, logging.Discard(), WithSinkTimeout(time.Second)).Emit(ctx, NamePageView, nil)
	assert.NoError(t, sinkErr)
}

func TestNilNotifierIsNoop(t *testing.T) {
	var n *Notifier
	assert.NotPanics(t, func() { n.Emit(context.Background(), NamePageView, nil) })
	var s *Scope
	assert.NotPanics(t, func() { s.Emit(context.Background(), NamePageView, nil) })
}

func TestScopeEnrichesWithAcquisition(t *testing.T) {
	rec := NewRecorder()
	acq := acquisition.Capture("?utm_source=fb&utm_campaign=launch", "https://ref.example/", "UA")
	scope := NewNotifier(rec, logging.Discard()).ForSession("sess-1", acq)

	scope.Emit(context.Background(), NameLeadCaptured, map[string]any{"utm_source": "override"})

	evt, ok := rec.Find(NameLeadCaptured)
	require.True(t, ok)
	assert.Equal(t, "override", evt.Payload["utm_source"])
	assert.Equal(t, "launch", evt.Payload["utm_campaign"])
	assert.Equal(t, "https://ref.example/", evt.Payload["referrer"])
	assert.Equal(t, "sess-1", evt.Payload[SessionKey])
}

func TestCatalogueHelpers(t *testing.T) {
	rec := NewRecorder()
	scope := NewNotifier(rec, logging.Discard()).ForSession("s", acquisition.Capture("?utm_source=google", "", ""))
	ctx := context.Background()

	scope.TrackingParamsUpdated(ctx)
	scope.PageView(ctx, PageInfo{URL: "https://lp.example/?utm_source=google", Path: "/", Title: "Oferta"})
	scope.FormStep(ctx, "email", "email", "ana.silva@example.com")
	scope.FormSubmission(ctx, "/", "lead_form")
	scope.LeadConversion(ctx, "hero", "BRL", ConversionTargets{GoogleAdsSendTo: "AW-1/label"})
	scope.FormError(ctx, "hero", "timeout", "tente novamente")

	assert.Equal(t, []string{
		NameTrackingParamsUpdated, NamePageView, NameFormStep, NameFormSubmission,
		NameLeadConversion, NameConversion, NameFormError,
	}, rec.Names())

	sub, _ := rec.Find(NameFormSubmission)
	assert.Equal(t, "lead_form", sub.Payload["form_id"])
	assert.Equal(t, "/", sub.Payload["page"])

	step, _ := rec.Find(NameFormStep)
	assert.Equal(t, "ana***@example.com", step.Payload["value"])

	conv, _ := rec.Find(NameConversion)
	assert.Equal(t, "AW-1/label", conv.Payload["send_to"])
}

func TestLeadConversionFacebookPixel(t *testing.T) {
	rec := NewRecorder()
	scope := NewNotifier(rec, logging.Discard()).ForSession("s", acquisition.Context{})

	scope.LeadConversion(context.Background(), "hero", "BRL", ConversionTargets{FacebookPixelID: "1234567890"})

	assert.Equal(t, []string{NameLeadConversion, NameFacebookLead}, rec.Names())
	lead, _ := rec.Find(NameFacebookLead)
	assert.Equal(t, true, lead.Payload["facebook_pixel"])
	assert.Equal(t, "1234567890", lead.Payload["pixel_id"])
	assert.Equal(t, 1, lead.Payload["value"])
	assert.Equal(t, "BRL", lead.Payload["currency"])
}

func TestObserverLabelsCustomEventsTogether(t *testing.T) {
	obs := &countingObserver{}
	n := NewNotifier(NewRecorder(), logging.Discard(), WithEventObserver(obs))
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		n.Emit(ctx, fmt.Sprintf("x%d", i), nil)
	}
	n.Emit(ctx, NamePageView, nil)

	assert.Equal(t, map[string]int{"custom:ok": 50, "page_view:ok": 1}, obs.counts)
}

func TestMetricLabel(t *testing.T) {
	assert.Equal(t, NameLeadCaptured, MetricLabel(NameLeadCaptured))
	assert.Equal(t, NameFacebookLead, MetricLabel("Lead"))
	assert.Equal(t, CustomLabel, MetricLabel("video_play"))
	assert.False(t, InCatalogue("video_play"))
}

func TestTrackingParamsSkippedWhenEmpty(t *testing.T) {
	rec := NewRecorder()
	NewNotifier(rec, logging.Discard()).ForSession("s", acquisition.Capture("", "", "")).TrackingParamsUpdated(context.Background())
	assert.Empty(t, rec.Names())
}

func TestEventJSONShape(t *testing.T) {
	evt := New(NameCTAClick, map[string]any{
		"cta_section": "hero",
		"event":       "spoofed",
		"nested":      map[string]any{"a": 1},
		"skip":        nil,
		"elapsed":     1500 * time.Millisecond,
	})
	data, err := json.Marshal(evt)
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(data, &flat))
	assert.Equal(t, NameCTAClick, flat["event"])
	assert.Equal(t, "hero", flat["cta_section"])
	assert.Equal(t, `{"a":1}`, flat["nested"])
	assert.Equal(t, float64(1500), flat["elapsed"])
	assert.NotContains(t, flat, "skip")
	assert.Contains(t, flat, "timestamp")

	var back Event
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, evt.ID, back.ID)
	assert.Equal(t, NameCTAClick, back.Name)

	assert.Error(t, json.Unmarshal([]byte(`{"cta_section":"x"}`), &back))
}

func TestMultiSinkJoinsErrors(t *testing.T) {
	rec := NewRecorder()
	multi := MultiSink{rec, nil, SinkFunc(func(context.Context, Event) error { return errors.New("down") })}
	err := multi.Emit(context.Background(), New(NamePageView, nil))
	assert.Error(t, err)
	assert.Len(t, rec.Events(), 1)
}

func TestAnonymize(t *testing.T) {
	assert.Equal(t, "ana***@example.com", Anonymize("email", "ana.silva@example.com"))
	assert.Equal(t, "jo***@x.io", Anonymize("Email", "jo@x.io"))
	assert.Equal(t, "1199****888", Anonymize("whatsapp", "11999998888"))
	assert.Equal(t, "*****", Anonymize("phone", "11999"))
	assert.Equal(t, "Ana", Anonymize("name", "Ana"))
	assert.Equal(t, "", Anonymize("", "value"))
}

func TestAnonymizeKeepsUTF8(t *testing.T) {
	got := Anonymize("email", "joão@exemplo.com")
	assert.Equal(t, "joã***@exemplo.com", got)
	assert.True(t, utf8.ValidString(got))

	got = Anonymize("phone", "☎☎☎☎99998888")
	assert.Equal(t, "☎☎☎☎****888", got)
	assert.True(t, utf8.ValidString(got))
}
