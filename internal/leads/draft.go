package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rgpulse/landing-leads/pkg/logging"
)

// Draft is a partially filled form saved while the visitor types.
type Draft struct {
	Key       string     `json:"key"`
	Values    Submission `json:"values"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Empty reports whether the draft carries no values.
func (d Draft) Empty() bool {
	return d.Values.Name == "" && d.Values.Phone == "" && d.Values.Email == ""
}

// DraftStore persists drafts. Upsert merges non-empty values into any
// existing draft for the same key.
type DraftStore interface {
	Upsert(ctx context.Context, draft Draft) error
	Get(ctx context.Context, key string) (Draft, bool, error)
}

// MemoryDraftStore keeps drafts in memory.
type MemoryDraftStore struct {
	mu     sync.RWMutex
	drafts map[string]Draft
}

// NewMemoryDraftStore creates an empty in-memory draft store.
func NewMemoryDraftStore() *MemoryDraftStore {
	return &MemoryDraftStore{drafts: make(map[string]Draft)}
}

func (s *MemoryDraftStore) Upsert(_ context.Context, draft Draft) error {
	if strings.TrimSpace(draft.Key) == "" {
		return ErrMissingDraftKey
	}
	if draft.Empty() {
		return ErrEmptyDraft
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.drafts[draft.Key]
	existing.Key = draft.Key
	existing.Values = mergeValues(existing.Values, draft.Values)
	existing.UpdatedAt = draft.UpdatedAt
	s.drafts[draft.Key] = existing
	return nil
}

func (s *MemoryDraftStore) Get(_ context.Context, key string) (Draft, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drafts[key]
	return d, ok, nil
}

// RedisDraftStore keeps each draft as a hash with a TTL.
type RedisDraftStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisDraftStore creates a Redis-backed draft store.
func NewRedisDraftStore(client redis.Cmdable, ttl time.Duration) *RedisDraftStore {
	if client == nil {
		panic("leads: redis client cannot be nil")
	}
	return &RedisDraftStore{client: client, prefix: "lead_draft:", ttl: ttl}
}

func (s *RedisDraftStore) Upsert(ctx context.Context, draft Draft) error {
	if strings.TrimSpace(draft.Key) == "" {
		return ErrMissingDraftKey
	}
	if draft.Empty() {
		return ErrEmptyDraft
	}
	fields := map[string]any{"updated_at": draft.UpdatedAt.UTC().Format(time.RFC3339Nano)}
	if draft.Values.Name != "" {
		fields["first_name"] = draft.Values.Name
	}
	if draft.Values.Phone != "" {
		fields["whatsapp"] = draft.Values.Phone
	}
	if draft.Values.Email != "" {
		fields["email"] = draft.Values.Email
	}
	key := s.prefix + draft.Key
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, fields)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("leads: upsert draft: %w", err)
	}
	return nil
}

func (s *RedisDraftStore) Get(ctx context.Context, key string) (Draft, bool, error) {
	values, err := s.client.HGetAll(ctx, s.prefix+key).Result()
	if err != nil {
		return Draft{}, false, fmt.Errorf("leads: get draft: %w", err)
	}
	if len(values) == 0 {
		return Draft{}, false, nil
	}
	d := Draft{
		Key: key,
		Values: Submission{
			Name:  values["first_name"],
			Phone: values["whatsapp"],
			Email: values["email"],
		},
	}
	if ts, err := time.Parse(time.RFC3339Nano, values["updated_at"]); err == nil {
		d.UpdatedAt = ts
	}
	return d, true, nil
}

func mergeValues(base, update Submission) Submission {
	if update.Name != "" {
		base.Name = update.Name
	}
	if update.Phone != "" {
		base.Phone = update.Phone
	}
	if update.Email != "" {
		base.Email = update.Email
	}
	return base
}

// DraftSaved is reported after each successful save. Complete is true the
// first time the saved draft passes full validation for that key.
type DraftSaved struct {
	Draft    Draft
	Fields   []Field
	Complete bool
}

// DraftSaverOption customizes a DraftSaver.
type DraftSaverOption func(*DraftSaver)

// WithDraftObserver registers a callback invoked after each save attempt.
// err is nil on success.
func WithDraftObserver(fn func(saved DraftSaved, err error)) DraftSaverOption {
	return func(s *DraftSaver) {
		s.observe = fn
	}
}

// WithCompletionTTL sets how long a key is remembered as completed. After
// that a completed draft reports Complete again.
func WithCompletionTTL(d time.Duration) DraftSaverOption {
	return func(s *DraftSaver) {
		if d > 0 {
			s.completionTTL = d
		}
	}
}

// WithDraftSaveTimeout bounds each store call.
func WithDraftSaveTimeout(d time.Duration) DraftSaverOption {
	return func(s *DraftSaver) {
		if d > 0 {
			s.saveTimeout = d
		}
	}
}

// DraftSaver debounces partial form updates per key and writes only the
// latest values once the visitor pauses typing. Saves are best effort.
type DraftSaver struct {
	store       DraftStore
	debounce    time.Duration
	saveTimeout time.Duration
	logger      *logging.Logger
	observe     func(DraftSaved, error)
	now         func() time.Time

	completionTTL time.Duration
	lastSweep     time.Time

	mu        sync.Mutex
	pending   map[string]*pendingDraft
	completed map[string]time.Time
	closed    bool
	wg        sync.WaitGroup
}

type pendingDraft struct {
	timer  *time.Timer
	values Submission
}

// NewDraftSaver creates a saver with the given debounce window.
func NewDraftSaver(store DraftStore, debounce time.Duration, logger *logging.Logger, opts ...DraftSaverOption) *DraftSaver {
	if store == nil {
		panic("leads: draft store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &DraftSaver{
		store:       store,
		debounce:    debounce,
		saveTimeout: 5 * time.Second,
		logger:      logger,
		now:         time.Now,
		pending:     make(map[string]*pendingDraft),
		completed:   make(map[string]time.Time),

		completionTTL: 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule merges values into the pending draft for key and restarts its
// debounce timer.
func (s *DraftSaver) Schedule(key string, values Submission) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrMissingDraftKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("leads: draft saver closed")
	}
	p, ok := s.pending[key]
	if ok {
		p.timer.Stop()
		p.values = mergeValues(p.values, values)
	} else {
		p = &pendingDraft{values: values}
		s.pending[key] = p
		s.wg.Add(1)
	}
	p.timer = time.AfterFunc(s.debounce, func() { s.fire(key) })
	return nil
}

// Pending reports how many keys are waiting for their debounce to elapse.
func (s *DraftSaver) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *DraftSaver) fire(key string) {
	s.mu.Lock()
	p, ok := s.pending[key]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.pending, key)
	s.mu.Unlock()
	defer s.wg.Done()

	s.save(key, p.values)
}

func (s *DraftSaver) save(key string, values Submission) {
	draft := Draft{Key: key, Values: values, UpdatedAt: time.Now().UTC()}
	ctx, cancel := context.WithTimeout(context.Background(), s.saveTimeout)
	defer cancel()

	err := s.store.Upsert(ctx, draft)
	saved := DraftSaved{Draft: draft}
	if err != nil {
		s.logger.Warn("draft save failed", "key", key, "error", err)
	} else {
		merged := draft
		if stored, ok, getErr := s.store.Get(ctx, key); getErr == nil && ok {
			merged = stored
		}
		form := FormFromSubmission(merged.Values)
		saved.Draft = merged
		saved.Fields = form.CompletedFields()
		if form.IsComplete() {
			s.mu.Lock()
			now := s.now()
			s.sweepCompletedLocked(now)
			if at, seen := s.completed[key]; !seen || now.Sub(at) >= s.completionTTL {
				s.completed[key] = now
				saved.Complete = true
			}
			s.mu.Unlock()
		}
		s.logger.Debug("draft saved", "key", key, "fields", len(saved.Fields))
	}
	if s.observe != nil {
		s.observe(saved, err)
	}
}

// Forget drops completion state for key, typically once the lead was
// submitted.
func (s *DraftSaver) Forget(key string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.completed, strings.TrimSpace(key))
}

// Completed reports how many keys are remembered as completed.
func (s *DraftSaver) Completed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.completed)
}

// sweepCompletedLocked drops expired completion entries at most once per
// completionTTL/4. s.mu must be held.
func (s *DraftSaver) sweepCompletedLocked(now time.Time) {
	if now.Sub(s.lastSweep) < s.completionTTL/4 {
		return
	}
	s.lastSweep = now
	for key, at := range s.completed {
		if now.Sub(at) >= s.completionTTL {
			delete(s.completed, key)
		}
	}
}

// Close flushes every pending draft immediately and waits for in-flight saves.
func (s *DraftSaver) Close() {
	s.mu.Lock()
	s.closed = true
	flush := make(map[string]Submission, len(s.pending))
	for key, p := range s.pending {
		if p.timer.Stop() {
			flush[key] = p.values
			delete(s.pending, key)
		}
	}
	s.mu.Unlock()

	for key, values := range flush {
		s.save(key, values)
		s.wg.Done()
	}
	s.wg.Wait()
}
