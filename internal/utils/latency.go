package utils

import (
	"sort"
	"sync"
	"time"
)

// LatencyTracker keeps a bounded window of recent duration samples and
// computes percentiles over it. Used by the scoring service for periodic
// p95 log lines alongside the Prometheus histogram.
type LatencyTracker struct {
	mu      sync.RWMutex
	window  []time.Duration
	maxSize int
}

// NewLatencyTracker creates a tracker keeping up to maxSize samples.
func NewLatencyTracker(maxSize int) *LatencyTracker {
	if maxSize <= 0 {
		maxSize = 512
	}
	return &LatencyTracker{maxSize: maxSize}
}

// Observe records a new duration, evicting the oldest sample once full.
func (l *LatencyTracker) Observe(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.window = append(l.window, d)
	if len(l.window) > l.maxSize {
		copy(l.window, l.window[1:])
		l.window = l.window[:l.maxSize]
	}
}

// Count returns the number of samples currently held.
func (l *LatencyTracker) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.window)
}

// Percentile returns the p-th percentile (0-100) of the held samples,
// or zero when empty.
func (l *LatencyTracker) Percentile(p float64) time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := len(l.window)
	if n == 0 {
		return 0
	}

	sorted := append([]time.Duration(nil), l.window...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	switch {
	case p <= 0:
		return sorted[0]
	case p >= 100:
		return sorted[n-1]
	}

	idx := int((p / 100.0) * float64(n-1))
	return sorted[idx]
}
