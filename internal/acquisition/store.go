package acquisition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrMissingSessionID is returned when a store call has no session id.
	ErrMissingSessionID = errors.New("acquisition: session id is required")
)

// Store mirrors captured contexts so they outlive a single page view.
type Store interface {
	Save(ctx context.Context, sessionID string, acq Context) error
	Load(ctx context.Context, sessionID string) (Context, bool, error)
}

// MemoryStore keeps contexts in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	acq       Context
	expiresAt time.Time
}

// NewMemoryStore creates an in-memory store. A zero ttl keeps entries forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Save(_ context.Context, sessionID string, acq Context) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrMissingSessionID
	}
	entry := memoryEntry{acq: acq}
	if s.ttl > 0 {
		entry.expiresAt = s.now().Add(s.ttl)
	}
	s.mu.Lock()
	s.entries[sessionID] = entry
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) (Context, bool, error) {
	if strings.TrimSpace(sessionID) == "" {
		return Context{}, false, ErrMissingSessionID
	}
	s.mu.RLock()
	entry, ok := s.entries[sessionID]
	s.mu.RUnlock()
	if !ok {
		return Context{}, false, nil
	}
	if !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, sessionID)
		s.mu.Unlock()
		return Context{}, false, nil
	}
	return entry.acq, true, nil
}

// RedisStore keeps contexts as JSON strings with a TTL.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("acquisition: redis client cannot be nil")
	}
	return &RedisStore{
		client: client,
		prefix: "acquisition:",
		ttl:    ttl,
	}
}

func (s *RedisStore) key(sessionID string) string {
	return s.prefix + sessionID
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, acq Context) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrMissingSessionID
	}
	data, err := json.Marshal(acq)
	if err != nil {
		return fmt.Errorf("acquisition: marshal context: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("acquisition: save context: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (Context, bool, error) {
	if strings.TrimSpace(sessionID) == "" {
		return Context{}, false, ErrMissingSessionID
	}
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Context{}, false, nil
	}
	if err != nil {
		return Context{}, false, fmt.Errorf("acquisition: load context: %w", err)
	}
	var acq Context
	if err := json.Unmarshal(data, &acq); err != nil {
		return Context{}, false, fmt.Errorf("acquisition: decode context: %w", err)
	}
	if acq.Params == nil {
		acq.Params = map[string]string{}
	}
	return acq, true, nil
}
