package auth

import (
	"math"
	"sync"
	"time"
)

// FailureTracker counts consecutive login failures per tenant and enforces
// a cooldown once the threshold is reached. Counters and timestamps are
// always read and written together under the lock.
type FailureTracker struct {
	mu          sync.Mutex
	maxFailures int
	window      time.Duration
	entries     map[string]failureEntry
	now         func() time.Time
}

type failureEntry struct {
	count       int
	lastFailure time.Time
}

// NewFailureTracker creates a tracker allowing maxFailures inside window
func NewFailureTracker(maxFailures int, window time.Duration) *FailureTracker {
	return &FailureTracker{
		maxFailures: maxFailures,
		window:      window,
		entries:     make(map[string]failureEntry),
		now:         time.Now,
	}
}

// RecordFailure increments the failure counter for a tenant
func (t *FailureTracker) RecordFailure(tenantID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry := t.entries[tenantID]
	entry.count++
	entry.lastFailure = t.now()
	t.entries[tenantID] = entry
}

// Reset clears the failure counter for a tenant
func (t *FailureTracker) Reset(tenantID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.entries, tenantID)
}

// Blocked reports whether the tenant is in cooldown and, if so, the whole
// seconds remaining until the window expires. An expired window clears the
// counter on the spot.
func (t *FailureTracker) Blocked(tenantID string) (bool, int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, exists := t.entries[tenantID]
	if !exists || entry.count < t.maxFailures {
		return false, 0
	}

	elapsed := t.now().Sub(entry.lastFailure)
	if elapsed >= t.window {
		delete(t.entries, tenantID)
		return false, 0
	}

	remaining := int(math.Ceil((t.window - elapsed).Seconds()))
	return true, remaining
}

// Failures returns the current failure count for a tenant
func (t *FailureTracker) Failures(tenantID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.entries[tenantID].count
}
