package bootstrap

import (
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/rgpulse/landing-leads/internal/config"
	"github.com/rgpulse/landing-leads/internal/events"
	"github.com/rgpulse/landing-leads/pkg/logging"
)

// Default cap on the Redis event list so an absent consumer cannot grow it
// without bound.
const eventListMaxLen = 100_000

// EventSinkDeps carries the optional transports an event sink can use.
type EventSinkDeps struct {
	Redis *redis.Client
	SQS   events.SQSSender
	NATS  *nats.Conn
}

// BuildEventSink fans events out to every configured queue. With nothing
// configured, events are only logged.
func BuildEventSink(cfg *appconfig.Config, deps EventSinkDeps, logger *logging.Logger) events.Sink {
	if logger == nil {
		logger = logging.Default()
	}
	var sinks events.MultiSink
	var names []string
	if deps.Redis != nil {
		sinks = append(sinks, events.NewRedisListSink(deps.Redis, cfg.EventQueueKey, eventListMaxLen))
		names = append(names, "redis")
	}
	if deps.SQS != nil && cfg.EventSQSQueueURL != "" {
		sinks = append(sinks, events.NewSQSSink(deps.SQS, cfg.EventSQSQueueURL))
		names = append(names, "sqs")
	}
	if deps.NATS != nil {
		sinks = append(sinks, events.NewNATSSink(deps.NATS, cfg.NATSSubject))
		names = append(names, "nats")
	}
	switch len(sinks) {
	case 0:
		logger.Info("no event queue configured; logging events")
		return events.NewLogSink(logger)
	case 1:
		logger.Info("event sink configured", "sinks", names)
		return sinks[0]
	}
	logger.Info("event sinks configured", "sinks", names)
	return sinks
}
