package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("SUBMIT_TIMEOUT", "")
	t.Setenv("COUNTRY_CODE", "")
	t.Setenv("DRAFT_SAVE_ENABLED", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.SubmitTimeout != 10*time.Second {
		t.Fatalf("expected 10s submit timeout, got %s", cfg.SubmitTimeout)
	}
	if cfg.RedirectDelay != 1500*time.Millisecond {
		t.Fatalf("expected 1.5s redirect delay, got %s", cfg.RedirectDelay)
	}
	if cfg.CountryCode != "55" {
		t.Fatalf("expected default country code 55, got %s", cfg.CountryCode)
	}
	if cfg.DraftSaveEnabled {
		t.Fatalf("expected draft saving disabled by default")
	}
	if cfg.DraftDebounce != 800*time.Millisecond {
		t.Fatalf("expected 800ms draft debounce, got %s", cfg.DraftDebounce)
	}
	if cfg.EventQueueKey != "datalayer" {
		t.Fatalf("expected datalayer queue key, got %s", cfg.EventQueueKey)
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Fatalf("expected no CORS origins, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("WEBHOOK_URL", " https://hooks.example.com/persona ")
	t.Setenv("CHECKOUT_URL", "https://pay.example.com/offer")
	t.Setenv("SUBMIT_TIMEOUT", "3s")
	t.Setenv("COUNTRY_CODE", "+1")
	t.Setenv("CHECKOUT_PREFILL", "true")
	t.Setenv("DRAFT_SAVE_ENABLED", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("LEADS_RATE_LIMIT", "2.5")
	t.Setenv("LEADS_RATE_BURST", "10")
	t.Setenv("FACEBOOK_PIXEL_ID", " 1234567890 ")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.WebhookURL != "https://hooks.example.com/persona" {
		t.Fatalf("expected trimmed webhook url, got %q", cfg.WebhookURL)
	}
	if cfg.SubmitTimeout != 3*time.Second {
		t.Fatalf("expected submit timeout override, got %s", cfg.SubmitTimeout)
	}
	if cfg.CountryCode != "1" {
		t.Fatalf("expected country code without plus, got %s", cfg.CountryCode)
	}
	if !cfg.CheckoutPrefill || !cfg.DraftSaveEnabled {
		t.Fatalf("expected bool overrides to apply")
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected CORS origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.LeadsRateLimit != 2.5 || cfg.LeadsRateBurst != 10 {
		t.Fatalf("unexpected rate limit %v/%d", cfg.LeadsRateLimit, cfg.LeadsRateBurst)
	}
	if cfg.FacebookPixelID != "1234567890" {
		t.Fatalf("expected trimmed pixel id, got %q", cfg.FacebookPixelID)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("SUBMIT_TIMEOUT", "soon")
	cfg := Load()
	if cfg.SubmitTimeout != 10*time.Second {
		t.Fatalf("expected fallback timeout, got %s", cfg.SubmitTimeout)
	}
}

func TestValidateRequiresEndpoints(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	if !errors.Is(err, ErrMissingWebhookURL) || !errors.Is(err, ErrMissingCheckoutURL) {
		t.Fatalf("expected both missing url errors, got %v", err)
	}
}
