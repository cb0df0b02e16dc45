package server

import (
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// sourceIdleTimeout is how long a source entry survives without
	// traffic before pruning may discard it.
	sourceIdleTimeout = time.Minute

	// maxTrackedSources bounds limiter memory under source-address floods.
	maxTrackedSources = 4096
)

// SourceLimiter enforces a per-source admission rate with one token
// bucket per sender address. It is checked before the global concurrency
// ceiling so one flooding source cannot monopolize admission slots.
type SourceLimiter struct {
	mu      sync.Mutex
	sources map[string]*sourceEntry
	limit   rate.Limit
	burst   int

	// now is swapped in tests.
	now func() time.Time
}

type sourceEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewSourceLimiter creates a limiter allowing packetsPerSecond sustained
// with the given burst per source.
func NewSourceLimiter(packetsPerSecond float64, burst int) *SourceLimiter {
	return &SourceLimiter{
		sources: make(map[string]*sourceEntry),
		limit:   rate.Limit(packetsPerSecond),
		burst:   burst,
		now:     time.Now,
	}
}

// Allow reports whether one more datagram from addr fits within its share.
func (sl *SourceLimiter) Allow(addr *net.UDPAddr) bool {
	key := addr.String()

	sl.mu.Lock()
	entry, ok := sl.sources[key]
	if !ok {
		if len(sl.sources) >= maxTrackedSources {
			sl.pruneLocked()
		}
		entry = &sourceEntry{limiter: rate.NewLimiter(sl.limit, sl.burst)}
		sl.sources[key] = entry
	}
	entry.lastSeen = sl.now()
	limiter := entry.limiter
	sl.mu.Unlock()

	return limiter.Allow()
}

// TrackedSources returns the number of sources currently tracked.
func (sl *SourceLimiter) TrackedSources() int {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return len(sl.sources)
}

// pruneLocked drops idle entries. When every entry is busy the map is
// cleared outright; a fresh bucket per source is the cheaper failure mode
// than unbounded growth.
func (sl *SourceLimiter) pruneLocked() {
	cutoff := sl.now().Add(-sourceIdleTimeout)
	for key, entry := range sl.sources {
		if entry.lastSeen.Before(cutoff) {
			delete(sl.sources, key)
		}
	}
	if len(sl.sources) >= maxTrackedSources {
		sl.sources = make(map[string]*sourceEntry)
	}
}
