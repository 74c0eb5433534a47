package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Lead submission
	WebhookURL         string
	SubmitTimeout      time.Duration
	WebhookHTTPTimeout time.Duration
	CountryCode        string
	ConversionCurrency string
	GoogleAdsSendTo    string
	FacebookPixelID    string

	// Checkout redirect
	CheckoutURL     string
	CheckoutPrefill bool
	RedirectDelay   time.Duration

	// Partial saves while the visitor types
	DraftSaveEnabled bool
	DraftDebounce    time.Duration
	DraftTTL         time.Duration

	// Acquisition sessions
	AcquisitionTTL      time.Duration
	SessionCookieName   string
	SessionCookieSecure bool

	// Redis backs the acquisition store, draft store and event list
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Event queue sinks
	EventQueueKey    string
	EventSinkTimeout time.Duration
	EventSQSQueueURL string
	NATSURL          string
	NATSSubject      string

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// HTTP
	CORSAllowedOrigins []string
	LeadsRateLimit     float64
	LeadsRateBurst     int
}

var (
	// ErrMissingWebhookURL is returned when WEBHOOK_URL is not configured.
	ErrMissingWebhookURL = errors.New("config: WEBHOOK_URL is required")
	// ErrMissingCheckoutURL is returned when CHECKOUT_URL is not configured.
	ErrMissingCheckoutURL = errors.New("config: CHECKOUT_URL is required")
)

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		WebhookURL:         strings.TrimSpace(getEnv("WEBHOOK_URL", "")),
		SubmitTimeout:      getEnvAsDuration("SUBMIT_TIMEOUT", 10*time.Second),
		WebhookHTTPTimeout: getEnvAsDuration("WEBHOOK_HTTP_TIMEOUT", 30*time.Second),
		CountryCode:        strings.TrimPrefix(strings.TrimSpace(getEnv("COUNTRY_CODE", "55")), "+"),
		ConversionCurrency: getEnv("CONVERSION_CURRENCY", "BRL"),
		GoogleAdsSendTo:    getEnv("GOOGLE_ADS_SEND_TO", ""),
		FacebookPixelID:    strings.TrimSpace(getEnv("FACEBOOK_PIXEL_ID", "")),

		CheckoutURL:     strings.TrimSpace(getEnv("CHECKOUT_URL", "")),
		CheckoutPrefill: getEnvAsBool("CHECKOUT_PREFILL", false),
		RedirectDelay:   getEnvAsDuration("REDIRECT_DELAY", 1500*time.Millisecond),

		DraftSaveEnabled: getEnvAsBool("DRAFT_SAVE_ENABLED", false),
		DraftDebounce:    getEnvAsDuration("DRAFT_DEBOUNCE", 800*time.Millisecond),
		DraftTTL:         getEnvAsDuration("DRAFT_TTL", 7*24*time.Hour),

		AcquisitionTTL:      getEnvAsDuration("ACQUISITION_TTL", 30*24*time.Hour),
		SessionCookieName:   getEnv("SESSION_COOKIE_NAME", "lp_session"),
		SessionCookieSecure: getEnvAsBool("SESSION_COOKIE_SECURE", true),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		EventQueueKey:    getEnv("EVENT_QUEUE_KEY", "datalayer"),
		EventSinkTimeout: getEnvAsDuration("EVENT_SINK_TIMEOUT", 2*time.Second),
		EventSQSQueueURL: getEnv("EVENT_SQS_QUEUE_URL", ""),
		NATSURL:          getEnv("NATS_URL", ""),
		NATSSubject:      getEnv("NATS_SUBJECT", "landing.events"),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
		LeadsRateLimit:     getEnvAsFloat("LEADS_RATE_LIMIT", 1),
		LeadsRateBurst:     getEnvAsInt("LEADS_RATE_BURST", 5),
	}
}

// Validate reports configuration that would leave the pipeline unusable.
func (c *Config) Validate() error {
	var errs []error
	if c.WebhookURL == "" {
		errs = append(errs, ErrMissingWebhookURL)
	}
	if c.CheckoutURL == "" {
		errs = append(errs, ErrMissingCheckoutURL)
	}
	return errors.Join(errs...)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil && value > 0 {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
