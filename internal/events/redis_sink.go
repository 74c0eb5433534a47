package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisListSink appends events to a Redis list. The list is the shared
// ordered queue drained by the tag-manager forwarder.
type RedisListSink struct {
	client redis.Cmdable
	key    string
	maxLen int64
}

// NewRedisListSink creates a sink pushing onto key. A positive maxLen trims
// the oldest entries so an idle consumer cannot grow the list forever.
func NewRedisListSink(client redis.Cmdable, key string, maxLen int64) *RedisListSink {
	if client == nil {
		panic("events: redis client cannot be nil")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "datalayer"
	}
	return &RedisListSink{client: client, key: key, maxLen: maxLen}
}

func (s *RedisListSink) Emit(ctx context.Context, evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("events: marshal event: %w", err)
	}
	if s.maxLen <= 0 {
		if err := s.client.RPush(ctx, s.key, data).Err(); err != nil {
			return fmt.Errorf("events: push redis event: %w", err)
		}
		return nil
	}
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.key, data)
	pipe.LTrim(ctx, s.key, -s.maxLen, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("events: push redis event: %w", err)
	}
	return nil
}
