package filter

import (
	"sync"
	"time"
)

// errorDedup rate-limits a repeated log key to at most once per window.
// Entries are swept lazily on allow, so the cache never grows past the
// number of distinct keys seen within one window.
type errorDedup struct {
	window time.Duration

	mu   sync.Mutex
	seen map[string]time.Time
}

func newErrorDedup(window time.Duration) *errorDedup {
	return &errorDedup{
		window: window,
		seen:   make(map[string]time.Time),
	}
}

// allow reports whether a log for (monitor, signature) should fire now: the
// first call for a pair always allows; subsequent calls are suppressed
// until window has elapsed since the last allowed call.
func (d *errorDedup) allow(monitor, signature string) bool {
	key := monitor + "\x00" + signature
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if last, ok := d.seen[key]; ok && now.Sub(last) < d.window {
		return false
	}
	d.seen[key] = now
	d.sweepLocked(now)
	return true
}

// sweepLocked drops entries older than window so a long-running process
// doesn't accumulate one map entry per distinct signature forever.
func (d *errorDedup) sweepLocked(now time.Time) {
	for k, t := range d.seen {
		if now.Sub(t) >= d.window {
			delete(d.seen, k)
		}
	}
}
