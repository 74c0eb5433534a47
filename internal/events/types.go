package events

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Event names pushed to the tag-manager queue.
const (
	NamePageView              = "page_view"
	NameTrackingParamsUpdated = "tracking_params_updated"
	NameCTAClick              = "cta_click"
	NameFormStart             = "form_start"
	NameFormStep              = "form_step"
	NameFieldComplete         = "field_complete"
	NameFormComplete          = "form_complete"
	NameFormAbandon           = "form_abandon"
	NameScrollMilestone       = "scroll_milestone"
	NameTimeOnPage            = "time_on_page"
	NameLeadCaptured          = "lead_captured"
	NameLeadConversion        = "lead_conversion"
	NameConversion            = "conversion"
	NameFormError             = "form_error"
	NameCheckoutRedirect      = "checkout_redirect"
	NameFormSubmission        = "form_submission"
	NameFacebookLead          = "Lead"
)

// CustomLabel is the metric label shared by every event name outside the
// catalogue, so browser-chosen names cannot grow the series count.
const CustomLabel = "custom"

var catalogue = map[string]struct{}{
	NamePageView:              {},
	NameTrackingParamsUpdated: {},
	NameCTAClick:              {},
	NameFormStart:             {},
	NameFormStep:              {},
	NameFieldComplete:         {},
	NameFormComplete:          {},
	NameFormAbandon:           {},
	NameScrollMilestone:       {},
	NameTimeOnPage:            {},
	NameLeadCaptured:          {},
	NameLeadConversion:        {},
	NameConversion:            {},
	NameFormError:             {},
	NameCheckoutRedirect:      {},
	NameFormSubmission:        {},
	NameFacebookLead:          {},
}

// InCatalogue reports whether name is one of the predefined events.
func InCatalogue(name string) bool {
	_, ok := catalogue[name]
	return ok
}

// MetricLabel returns name for catalogue events and CustomLabel otherwise.
func MetricLabel(name string) string {
	if InCatalogue(name) {
		return name
	}
	return CustomLabel
}

// reservedKeys are set by the notifier and cannot be overridden by payloads.
var reservedKeys = map[string]struct{}{
	"event":     {},
	"event_id":  {},
	"timestamp": {},
}

// Event is one entry of the shared tracking queue.
type Event struct {
	ID        string
	Name      string
	Payload   map[string]any
	Timestamp time.Time
}

// New builds an event with a fresh id and timestamp.
func New(name string, payload map[string]any) Event {
	return Event{
		ID:        uuid.NewString(),
		Name:      name,
		Payload:   Scalarize(payload),
		Timestamp: time.Now().UTC(),
	}
}

// MarshalJSON renders the flat dataLayer shape:
// {"event": name, ...payload, "event_id": id, "timestamp": RFC3339}.
func (e Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Payload)+3)
	for k, v := range e.Payload {
		if _, reserved := reservedKeys[k]; reserved {
			continue
		}
		out[k] = v
	}
	out["event"] = e.Name
	if e.ID != "" {
		out["event_id"] = e.ID
	}
	out["timestamp"] = e.Timestamp.UTC().Format(time.RFC3339Nano)
	return json.Marshal(out)
}

// UnmarshalJSON reads the flat shape back. Used by queue consumers and tests.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	name, _ := raw["event"].(string)
	if name == "" {
		return fmt.Errorf("events: entry has no event name")
	}
	e.Name = name
	e.ID, _ = raw["event_id"].(string)
	if ts, ok := raw["timestamp"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			e.Timestamp = parsed
		}
	}
	e.Payload = make(map[string]any, len(raw))
	for k, v := range raw {
		if _, reserved := reservedKeys[k]; reserved {
			continue
		}
		e.Payload[k] = v
	}
	return nil
}

// Keys returns the payload keys sorted.
func (e Event) Keys() []string {
	keys := make([]string, 0, len(e.Payload))
	for k := range e.Payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Scalarize copies payload keeping only scalar values. Nested maps and slices
// are JSON encoded into strings and nil values are dropped.
func Scalarize(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		if k == "" || v == nil {
			continue
		}
		switch val := v.(type) {
		case string, bool,
			int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64,
			float32, float64:
			out[k] = val
		case json.Number:
			out[k] = val.String()
		case time.Time:
			out[k] = val.UTC().Format(time.RFC3339Nano)
		case time.Duration:
			out[k] = val.Milliseconds()
		case fmt.Stringer:
			out[k] = val.String()
		default:
			data, err := json.Marshal(val)
			if err != nil {
				out[k] = fmt.Sprintf("%v", val)
				continue
			}
			out[k] = string(data)
		}
	}
	return out
}
