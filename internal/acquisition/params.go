package acquisition

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Field names used when an acquisition context is flattened into a payload.
const (
	FieldReferrer  = "referrer"
	FieldUserAgent = "user_agent"
)

// allowedParams lists the query keys kept besides the utm_ prefix.
var allowedParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"fbclid":       {},
	"gclid":        {},
	"gclsrc":       {},
	"gbraid":       {},
	"wbraid":       {},
	"ref":          {},
	"source":       {},
	"referrer":     {},
}

// Context holds the marketing attribution captured when a page loads.
type Context struct {
	Params     map[string]string `json:"params"`
	Referrer   string            `json:"referrer,omitempty"`
	UserAgent  string            `json:"user_agent,omitempty"`
	CapturedAt time.Time         `json:"captured_at"`
}

// IsAllowed reports whether a query key is retained by Capture.
func IsAllowed(key string) bool {
	if strings.HasPrefix(key, "utm_") {
		return true
	}
	_, ok := allowedParams[key]
	return ok
}

// Capture extracts allow-listed attribution parameters from pageURL. The
// value may be a full URL or a bare query string. Repeated keys keep the
// last value. Anything unparseable yields an empty context.
func Capture(pageURL, referrer, userAgent string) Context {
	ctx := Context{
		Params:     map[string]string{},
		Referrer:   strings.TrimSpace(referrer),
		UserAgent:  strings.TrimSpace(userAgent),
		CapturedAt: time.Now().UTC(),
	}

	query, ok := rawQuery(pageURL)
	if !ok {
		return ctx
	}
	// ParseQuery keeps every pair it could decode even when it reports an error.
	values, _ := url.ParseQuery(query)
	for key, vals := range values {
		if !IsAllowed(key) || len(vals) == 0 {
			continue
		}
		value := strings.TrimSpace(vals[len(vals)-1])
		if value == "" {
			continue
		}
		ctx.Params[key] = value
	}
	return ctx
}

func rawQuery(pageURL string) (string, bool) {
	pageURL = strings.TrimSpace(pageURL)
	if pageURL == "" {
		return "", false
	}
	if strings.HasPrefix(pageURL, "?") {
		return pageURL[1:], true
	}
	if !strings.Contains(pageURL, "://") && !strings.HasPrefix(pageURL, "/") && strings.Contains(pageURL, "=") {
		return pageURL, true
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", false
	}
	return u.RawQuery, true
}

// Get returns a single value from the context, looking at URL params first.
func (c Context) Get(key string) (string, bool) {
	if v, ok := c.Params[key]; ok && v != "" {
		return v, true
	}
	switch key {
	case FieldReferrer:
		return c.Referrer, c.Referrer != ""
	case FieldUserAgent:
		return c.UserAgent, c.UserAgent != ""
	}
	return "", false
}

// URLParams returns a copy of the parameters that came from the page URL.
func (c Context) URLParams() map[string]string {
	out := make(map[string]string, len(c.Params))
	for k, v := range c.Params {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// Fields flattens the context into payload keys, omitting empty values. A
// document referrer overrides a referrer query parameter.
func (c Context) Fields() map[string]string {
	out := c.URLParams()
	if c.Referrer != "" {
		out[FieldReferrer] = c.Referrer
	}
	if c.UserAgent != "" {
		out[FieldUserAgent] = c.UserAgent
	}
	return out
}

// Keys returns the sorted payload keys present in the context.
func (c Context) Keys() []string {
	fields := c.Fields()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsEmpty reports whether nothing was captured.
func (c Context) IsEmpty() bool {
	return len(c.Fields()) == 0
}

// NewSessionID issues an identifier for a page session.
func NewSessionID() string {
	return uuid.NewString()
}

// ValidSessionID reports whether id looks like one issued by NewSessionID.
func ValidSessionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
