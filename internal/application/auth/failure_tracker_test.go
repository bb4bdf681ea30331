package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestTracker(maxFailures int, window time.Duration) (*FailureTracker, *time.Time) {
	tracker := NewFailureTracker(maxFailures, window)
	current := time.Now()
	tracker.now = func() time.Time { return current }
	return tracker, &current
}

func TestFailureTracker_BlocksAfterThreshold(t *testing.T) {
	tracker, _ := newTestTracker(3, 300*time.Second)

	for i := 0; i < 2; i++ {
		tracker.RecordFailure("20123456789")
		blocked, _ := tracker.Blocked("20123456789")
		assert.False(t, blocked)
	}

	tracker.RecordFailure("20123456789")
	blocked, remaining := tracker.Blocked("20123456789")
	assert.True(t, blocked)
	assert.Equal(t, 300, remaining)
}

func TestFailureTracker_RemainingSecondsDecrease(t *testing.T) {
	tracker, current := newTestTracker(3, 300*time.Second)

	for i := 0; i < 3; i++ {
		tracker.RecordFailure("20123456789")
	}

	*current = current.Add(100 * time.Second)
	blocked, remaining := tracker.Blocked("20123456789")
	assert.True(t, blocked)
	assert.Equal(t, 200, remaining)
}

func TestFailureTracker_WindowExpiryClearsCounter(t *testing.T) {
	tracker, current := newTestTracker(3, 300*time.Second)

	for i := 0; i < 3; i++ {
		tracker.RecordFailure("20123456789")
	}

	*current = current.Add(301 * time.Second)
	blocked, remaining := tracker.Blocked("20123456789")
	assert.False(t, blocked)
	assert.Equal(t, 0, remaining)
	assert.Equal(t, 0, tracker.Failures("20123456789"))
}

func TestFailureTracker_ResetClearsCounter(t *testing.T) {
	tracker, _ := newTestTracker(3, 300*time.Second)

	for i := 0; i < 3; i++ {
		tracker.RecordFailure("20123456789")
	}
	tracker.Reset("20123456789")

	blocked, _ := tracker.Blocked("20123456789")
	assert.False(t, blocked)
	assert.Equal(t, 0, tracker.Failures("20123456789"))
}

func TestFailureTracker_TenantsAreIndependent(t *testing.T) {
	tracker, _ := newTestTracker(3, 300*time.Second)

	for i := 0; i < 3; i++ {
		tracker.RecordFailure("20123456789")
	}

	blocked, _ := tracker.Blocked("20987654321")
	assert.False(t, blocked)
}
