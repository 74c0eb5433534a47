package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/rgpulse/landing-leads/internal/acquisition"
	appconfig "github.com/rgpulse/landing-leads/internal/config"
	"github.com/rgpulse/landing-leads/internal/leads"
	"github.com/rgpulse/landing-leads/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildNATSConn connects to NATS_URL or returns nil when it is unset. A
// failed connection is logged and treated as disabled.
func BuildNATSConn(cfg *appconfig.Config, logger *logging.Logger) *nats.Conn {
	if cfg == nil || strings.TrimSpace(cfg.NATSURL) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	nc, err := nats.Connect(cfg.NATSURL,
		nats.Name("landing-leads"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		logger.Warn("nats not available", "error", err)
		return nil
	}
	return nc
}

// BuildAcquisitionStore prefers Redis so sessions survive restarts and are
// shared between replicas.
func BuildAcquisitionStore(redisClient *redis.Client, cfg *appconfig.Config) acquisition.Store {
	if redisClient == nil {
		return acquisition.NewMemoryStore(cfg.AcquisitionTTL)
	}
	return acquisition.NewRedisStore(redisClient, cfg.AcquisitionTTL)
}

// BuildDraftSaver returns nil unless DRAFT_SAVE_ENABLED is set.
func BuildDraftSaver(redisClient *redis.Client, cfg *appconfig.Config, logger *logging.Logger, opts ...leads.DraftSaverOption) *leads.DraftSaver {
	if cfg == nil || !cfg.DraftSaveEnabled {
		return nil
	}
	var store leads.DraftStore = leads.NewMemoryDraftStore()
	if redisClient != nil {
		store = leads.NewRedisDraftStore(redisClient, cfg.DraftTTL)
	}
	opts = append([]leads.DraftSaverOption{leads.WithCompletionTTL(cfg.DraftTTL)}, opts...)
	return leads.NewDraftSaver(store, cfg.DraftDebounce, logger, opts...)
}
