package events

import (
	"sync"
	"time"
)

// Milestones reported while a visitor reads a page.
var (
	ScrollMilestones = []int{25, 50, 75, 90}
	TimeMilestones   = []time.Duration{30 * time.Second, 60 * time.Second, 120 * time.Second, 300 * time.Second}
)

// PageTracker remembers which milestones a page session already reported.
type PageTracker struct {
	mu          sync.Mutex
	scrolled    map[int]struct{}
	timed       map[time.Duration]struct{}
	maxProgress float64
	lastSeen    time.Time
}

// NewPageTracker creates a tracker with nothing reported.
func NewPageTracker() *PageTracker {
	return &PageTracker{
		scrolled: make(map[int]struct{}),
		timed:    make(map[time.Duration]struct{}),
		lastSeen: time.Now(),
	}
}

// ObserveScroll returns the scroll milestones crossed for the first time by
// progress (0 to 100).
func (t *PageTracker) ObserveScroll(progress float64) []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSeen = time.Now()
	if progress > t.maxProgress {
		t.maxProgress = progress
	}
	var crossed []int
	for _, m := range ScrollMilestones {
		if progress < float64(m) {
			break
		}
		if _, done := t.scrolled[m]; done {
			continue
		}
		t.scrolled[m] = struct{}{}
		crossed = append(crossed, m)
	}
	return crossed
}

// ObserveElapsed returns the time milestones crossed for the first time.
func (t *PageTracker) ObserveElapsed(elapsed time.Duration) []time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSeen = time.Now()
	var crossed []time.Duration
	for _, m := range TimeMilestones {
		if elapsed < m {
			break
		}
		if _, done := t.timed[m]; done {
			continue
		}
		t.timed[m] = struct{}{}
		crossed = append(crossed, m)
	}
	return crossed
}

// MaxProgress is the deepest scroll progress observed.
func (t *PageTracker) MaxProgress() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.maxProgress
}

func (t *PageTracker) idleSince() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastSeen
}

// TrackerRegistry holds one PageTracker per session and evicts idle ones.
type TrackerRegistry struct {
	mu       sync.Mutex
	trackers map[string]*PageTracker
	idle     time.Duration
}

// NewTrackerRegistry creates a registry evicting trackers idle for longer
// than idle.
func NewTrackerRegistry(idle time.Duration) *TrackerRegistry {
	return &TrackerRegistry{
		trackers: make(map[string]*PageTracker),
		idle:     idle,
	}
}

// Get returns the tracker for sessionID, creating it on first use.
func (r *TrackerRegistry) Get(sessionID string) *PageTracker {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trackers[sessionID]
	if !ok {
		t = NewPageTracker()
		r.trackers[sessionID] = t
	}
	return t
}

// Len reports how many sessions are tracked.
func (r *TrackerRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trackers)
}

// Evict drops trackers idle since before now minus the idle window and
// returns how many were removed.
func (r *TrackerRegistry) Evict(now time.Time) int {
	cutoff := now.Add(-r.idle)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, t := range r.trackers {
		if t.idleSince().Before(cutoff) {
			delete(r.trackers, id)
			removed++
		}
	}
	return removed
}

// Run evicts idle trackers every interval until stop is closed.
func (r *TrackerRegistry) Run(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			r.Evict(now)
		}
	}
}
