package events

import (
	"context"
	"math"
	"strings"
)

// PageInfo describes the page an event was raised on.
type PageInfo struct {
	URL   string `json:"page_url"`
	Path  string `json:"page_path"`
	Title string `json:"page_title"`
}

func (p PageInfo) fields(out map[string]any) map[string]any {
	if out == nil {
		out = map[string]any{}
	}
	if p.URL != "" {
		out["page_location"] = p.URL
		out["page_url"] = p.URL
	}
	if p.Path != "" {
		out["page_path"] = p.Path
	}
	if p.Title != "" {
		out["page_title"] = p.Title
	}
	return out
}

// PageView records a page load or a client-side route change.
func (s *Scope) PageView(ctx context.Context, page PageInfo) {
	s.Emit(ctx, NamePageView, page.fields(nil))
}

// TrackingParamsUpdated announces freshly captured acquisition parameters.
func (s *Scope) TrackingParamsUpdated(ctx context.Context) {
	if s.acq.IsEmpty() {
		return
	}
	s.Emit(ctx, NameTrackingParamsUpdated, nil)
}

// CTAClick records a call-to-action click with the scroll depth at the time.
func (s *Scope) CTAClick(ctx context.Context, section, page string, scrollDepth float64) {
	s.Emit(ctx, NameCTAClick, map[string]any{
		"cta_section":      section,
		"page":             page,
		"scroll_position":  roundPercent(scrollDepth),
		"reading_progress": roundPercent(scrollDepth),
	})
}

// FormStart records the first interaction with the lead form.
func (s *Scope) FormStart(ctx context.Context, formSource string) {
	s.Emit(ctx, NameFormStart, map[string]any{"form_source": formSource})
}

// FormStep records progress through the form. Values are anonymized.
func (s *Scope) FormStep(ctx context.Context, step, field, value string) {
	payload := map[string]any{
		"form_type": "lead_form",
		"step":      step,
	}
	if field != "" {
		payload["field"] = field
	}
	if value != "" {
		payload["value"] = Anonymize(field, value)
	}
	s.Emit(ctx, NameFormStep, payload)
}

// FieldComplete records which fields were saved by a partial save.
func (s *Scope) FieldComplete(ctx context.Context, fields []string) {
	s.Emit(ctx, NameFieldComplete, map[string]any{
		"field_name":            strings.Join(fields, "_"),
		"field_values_complete": len(fields) > 0,
	})
}

// LeadInfo flags which identity fields a visitor supplied.
type LeadInfo struct {
	Name     string
	HasName  bool
	HasPhone bool
	HasEmail bool
}

func (l LeadInfo) fields(out map[string]any) map[string]any {
	out["has_name"] = l.HasName
	out["has_whatsapp"] = l.HasPhone
	out["has_email"] = l.HasEmail
	if l.Name != "" {
		out["lead_name"] = l.Name
	}
	return out
}

// FormComplete records that every field passed validation.
func (s *Scope) FormComplete(ctx context.Context, info LeadInfo) {
	s.Emit(ctx, NameFormComplete, info.fields(map[string]any{}))
}

// FormAbandon records how far a visitor got before leaving the form.
func (s *Scope) FormAbandon(ctx context.Context, formSource string, completed, total int) {
	rate := 0.0
	if total > 0 {
		rate = float64(completed) / float64(total) * 100
	}
	s.Emit(ctx, NameFormAbandon, map[string]any{
		"form_source":      formSource,
		"fields_completed": completed,
		"total_fields":     total,
		"completion_rate":  rate,
	})
}

// ScrollMilestone records a crossed scroll-depth milestone.
func (s *Scope) ScrollMilestone(ctx context.Context, milestone int, page string, timeOnPageSeconds int64) {
	s.Emit(ctx, NameScrollMilestone, map[string]any{
		"milestone":    milestone,
		"page":         page,
		"time_on_page": timeOnPageSeconds,
	})
}

// TimeOnPage records a crossed time-on-page milestone.
func (s *Scope) TimeOnPage(ctx context.Context, seconds int64, page string, scrollProgress float64) {
	s.Emit(ctx, NameTimeOnPage, map[string]any{
		"duration":        seconds,
		"page":            page,
		"scroll_progress": roundPercent(scrollProgress),
	})
}

// LeadCaptured records an accepted lead. duplicate marks the soft-success
// path where the webhook already knew the email.
func (s *Scope) LeadCaptured(ctx context.Context, formSource string, info LeadInfo, duplicate bool) {
	payload := info.fields(map[string]any{
		"form_source": formSource,
		"duplicate":   duplicate,
	})
	s.Emit(ctx, NameLeadCaptured, payload)
}

// ConversionTargets names the ad platforms a lead conversion is reported to.
// Empty fields are skipped.
type ConversionTargets struct {
	GoogleAdsSendTo string
	FacebookPixelID string
}

// LeadConversion records the conversion value for ad platforms. A Google Ads
// conversion and a Facebook Pixel Lead event follow for each configured
// target.
func (s *Scope) LeadConversion(ctx context.Context, formSource, currency string, targets ConversionTargets) {
	s.Emit(ctx, NameLeadConversion, map[string]any{
		"conversion_type": "lead_capture",
		"form_source":     formSource,
		"value":           1,
		"currency":        currency,
	})
	if targets.GoogleAdsSendTo != "" {
		s.Emit(ctx, NameConversion, map[string]any{
			"google_ads": true,
			"send_to":    targets.GoogleAdsSendTo,
			"value":      1,
			"currency":   currency,
		})
	}
	if targets.FacebookPixelID != "" {
		s.Emit(ctx, NameFacebookLead, map[string]any{
			"facebook_pixel": true,
			"pixel_id":       targets.FacebookPixelID,
			"value":          1,
			"currency":       currency,
		})
	}
}

// FormSubmission records that a form was sent and accepted.
func (s *Scope) FormSubmission(ctx context.Context, page, formID string) {
	s.Emit(ctx, NameFormSubmission, map[string]any{
		"form_id": formID,
		"page":    page,
	})
}

// FormError records a failed submission.
func (s *Scope) FormError(ctx context.Context, formSource, errorType, message string) {
	s.Emit(ctx, NameFormError, map[string]any{
		"form_source":   formSource,
		"error_type":    errorType,
		"error_message": message,
	})
}

// CheckoutRedirect records the navigation to checkout.
func (s *Scope) CheckoutRedirect(ctx context.Context, checkoutURL string) {
	s.Emit(ctx, NameCheckoutRedirect, map[string]any{
		"form_completion": true,
		"checkout_url":    checkoutURL,
	})
}

func roundPercent(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}
