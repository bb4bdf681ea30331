package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsValid(t *testing.T) {
	now := time.Now()
	s := New("20123456789", "tok", "Bearer", "", "fp", now.Add(time.Hour))

	assert.True(t, s.IsValid(now))

	s.Status = StatusSuperseded
	assert.False(t, s.IsValid(now))

	s.Status = StatusActive
	assert.False(t, s.IsValid(now.Add(2*time.Hour)))
}

func TestRemainingSeconds_NeverNegative(t *testing.T) {
	now := time.Now()
	s := New("20123456789", "tok", "", "", "fp", now.Add(90*time.Second))

	assert.InDelta(t, 90, s.RemainingSeconds(now), 1)
	assert.Equal(t, 0, s.RemainingSeconds(now.Add(time.Hour)))
}

func TestNew_DefaultsTokenType(t *testing.T) {
	s := New("20123456789", "tok", "", "", "fp", time.Now())
	assert.Equal(t, "Bearer", s.TokenType)
}

func TestNew_CarriesRefreshToken(t *testing.T) {
	s := New("20123456789", "tok", "Bearer", "refresh-1", "fp", time.Now())
	assert.Equal(t, "refresh-1", s.RefreshToken)
	assert.Nil(t, s.LastUsedAt)
}

func TestFingerprint_StableAndDistinct(t *testing.T) {
	a := Fingerprint("20123456789", "USER1", "client-1")
	b := Fingerprint("20123456789", "USER1", "client-1")
	c := Fingerprint("20123456789", "USER2", "client-1")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
