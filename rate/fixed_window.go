package rate

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// FixedWindow is the in-memory limiter: one {count, resetAt} pair per key
// behind a mutex. Entries are created lazily on a key's first request and
// overwritten when their window lapses. Keys are never evicted, so the map
// grows with the number of distinct clients seen; bounding it is out of
// scope here.
type FixedWindow struct {
	cfg Config

	mu      sync.Mutex
	windows map[string]*window

	now func() time.Time
}

// NewFixedWindow creates an in-memory fixed-window limiter.
func NewFixedWindow(cfg Config) *FixedWindow {
	return &FixedWindow{
		cfg:     cfg,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow consumes one slot of key's current window. The window is reset
// lazily when the stored deadline has passed.
func (l *FixedWindow) Allow(_ context.Context, key string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &window{resetAt: now.Add(l.cfg.Window)}
		l.windows[key] = w
	}

	w.count++

	res := Result{
		Limit:   l.cfg.MaxRequests,
		ResetAt: w.resetAt,
	}

	if w.count > l.cfg.MaxRequests {
		res.Allowed = false
		res.Remaining = 0
		res.RetryAfter = w.resetAt.Sub(now)
		return res, nil
	}

	res.Allowed = true
	res.Remaining = l.cfg.MaxRequests - w.count
	return res, nil
}

// Reset forgets the window for key. Test helper.
func (l *FixedWindow) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// Clear forgets all windows.
func (l *FixedWindow) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.windows = make(map[string]*window)
}
