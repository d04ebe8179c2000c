package notify

import (
	"sync"
	"time"
)

// Window is a sliding time-windowed dedup cache: a key marked within the
// window is reported as seen, and marking again slides the window forward.
// Stale entries are evicted lazily on access. State is process-lifetime only;
// a restart forgets everything, by design.
//
// Each instance is guarded by its own mutex so that insert and evict are
// individually atomic. Concurrent handlers racing between a Seen check and a
// Mark can still produce an occasional duplicate notification; SeenOrMark
// exists to close that gap where a single atomic test-and-set suffices.
type Window struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	seen map[string]time.Time
}

// NewWindow creates a dedup window with the given ttl. The now function is
// injectable for tests; pass time.Now in production.
func NewWindow(ttl time.Duration, now func() time.Time) *Window {
	if now == nil {
		now = time.Now
	}
	return &Window{
		ttl:  ttl,
		now:  now,
		seen: make(map[string]time.Time),
	}
}

// SeenOrMark atomically reports whether key is inside the window and, when it
// is not, marks it now. Returns true when the key was already present
// (caller should suppress).
func (w *Window) SeenOrMark(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.evictLocked(now)

	if ts, ok := w.seen[key]; ok && now.Sub(ts) < w.ttl {
		return true
	}
	w.seen[key] = now
	return false
}

// Mark records key at the current time, overwriting any earlier timestamp
// (sliding window, not fixed-origin).
func (w *Window) Mark(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.evictLocked(w.now())
	w.seen[key] = w.now()
}

// Seen reports whether key is inside the window without marking it.
func (w *Window) Seen(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.evictLocked(now)

	ts, ok := w.seen[key]
	return ok && now.Sub(ts) < w.ttl
}

// Len reports the number of live entries, evicting stale ones first.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.evictLocked(w.now())
	return len(w.seen)
}

func (w *Window) evictLocked(now time.Time) {
	for k, ts := range w.seen {
		if now.Sub(ts) >= w.ttl {
			delete(w.seen, k)
		}
	}
}
