package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/rgpulse/landing-leads/cmd/mainconfig"
	"github.com/rgpulse/landing-leads/internal/api/router"
	"github.com/rgpulse/landing-leads/internal/app/bootstrap"
	"github.com/rgpulse/landing-leads/internal/checkout"
	appconfig "github.com/rgpulse/landing-leads/internal/config"
	"github.com/rgpulse/landing-leads/internal/events"
	"github.com/rgpulse/landing-leads/internal/http/handlers"
	httpmiddleware "github.com/rgpulse/landing-leads/internal/http/middleware"
	"github.com/rgpulse/landing-leads/internal/leads"
	"github.com/rgpulse/landing-leads/internal/observability/metrics"
	"github.com/rgpulse/landing-leads/internal/submission"
	"github.com/rgpulse/landing-leads/internal/webhook"
	"github.com/rgpulse/landing-leads/pkg/logging"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger.Info("starting landing-leads API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := buildApp(ctx, cfg, logger, prometheus.DefaultRegisterer, promhttp.Handler())
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      application.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.SubmitTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	application.Close()

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// app is the wired HTTP handler plus everything that must be released on
// shutdown.
type app struct {
	handler http.Handler
	closers []func()
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func buildApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, reg prometheus.Registerer, metricsHandler http.Handler) (*app, error) {
	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		a.closers = append(a.closers, func() { _ = redisClient.Close() })
	}
	natsConn := bootstrap.BuildNATSConn(cfg, logger)
	if natsConn != nil {
		a.closers = append(a.closers, func() { _ = natsConn.Drain() })
	}
	sqsClient, err := setupEventSQS(ctx, cfg)
	if err != nil {
		return nil, err
	}

	leadMetrics := metrics.NewLeadMetrics(reg)
	notifier := setupNotifier(cfg, redisClient, sqsClient, natsConn, leadMetrics, logger)

	store := bootstrap.BuildAcquisitionStore(redisClient, cfg)
	cookie := handlers.CookieConfig{
		Name:   cfg.SessionCookieName,
		Secure: cfg.SessionCookieSecure,
		MaxAge: cfg.AcquisitionTTL,
	}

	drafts := bootstrap.BuildDraftSaver(redisClient, cfg, logger,
		leads.WithDraftObserver(handlers.DraftEvents(store, notifier, leadMetrics, logger)),
	)
	if drafts != nil {
		a.closers = append(a.closers, drafts.Close)
	}

	poster, err := webhook.New(webhook.Config{
		URL:     cfg.WebhookURL,
		Timeout: cfg.WebhookHTTPTimeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("webhook client: %w", err)
	}
	builder, err := checkout.NewBuilder(cfg.CheckoutURL, cfg.CheckoutPrefill)
	if err != nil {
		return nil, fmt.Errorf("checkout builder: %w", err)
	}
	coordinator := submission.NewCoordinator(poster, builder, notifier, submission.Config{
		Timeout:         cfg.SubmitTimeout,
		CountryCode:     cfg.CountryCode,
		Currency:        cfg.ConversionCurrency,
		GoogleAdsSendTo: cfg.GoogleAdsSendTo,
		FacebookPixelID: cfg.FacebookPixelID,
		RedirectDelay:   cfg.RedirectDelay,
	}, logger, submission.WithMetrics(leadMetrics))

	trackers := events.NewTrackerRegistry(cfg.AcquisitionTTL)
	stopTrackers := make(chan struct{})
	go trackers.Run(time.Minute, stopTrackers)
	a.closers = append(a.closers, func() { close(stopTrackers) })

	var limiter *httpmiddleware.RateLimiter
	if cfg.LeadsRateLimit > 0 {
		limiter = httpmiddleware.NewRateLimiter(cfg.LeadsRateLimit, cfg.LeadsRateBurst)
		a.closers = append(a.closers, limiter.Close)
	}

	a.handler = router.New(&router.Config{
		Logger:             logger,
		Sessions:           handlers.NewSessionHandler(store, notifier, cookie, logger),
		Events:             handlers.NewEventsHandler(store, notifier, trackers, cookie, logger),
		Leads:              handlers.NewLeadsHandler(coordinator, store, drafts, cookie, logger),
		Checkout:           handlers.NewCheckoutHandler(builder, store, notifier, cookie, logger),
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		LeadsLimiter:       limiter,
	})
	ok = true
	return a, nil
}

// setupEventSQS returns nil when no queue URL is configured.
func setupEventSQS(ctx context.Context, cfg *appconfig.Config) (events.SQSSender, error) {
	if cfg.EventSQSQueueURL == "" {
		return nil, nil
	}
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return sqs.NewFromConfig(awsCfg), nil
}

func setupNotifier(cfg *appconfig.Config, redisClient *redis.Client, sqsClient events.SQSSender, natsConn *nats.Conn, leadMetrics *metrics.LeadMetrics, logger *logging.Logger) *events.Notifier {
	sink := bootstrap.BuildEventSink(cfg, bootstrap.EventSinkDeps{
		Redis: redisClient,
		SQS:   sqsClient,
		NATS:  natsConn,
	}, logger)
	return events.NewNotifier(sink, logger,
		events.WithSinkTimeout(cfg.EventSinkTimeout),
		events.WithEventObserver(leadMetrics),
	)
}
