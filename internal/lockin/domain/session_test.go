package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_Timing(t *testing.T) {
	start := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	s := NewSession("deep-work", NewBlockSet([]string{"x.com"}, nil), start, 90*time.Minute)

	assert.Equal(t, int64(5400), s.DurationSeconds)
	assert.Equal(t, 90*time.Minute, s.Duration())
	assert.Equal(t, start.Add(90*time.Minute), s.EndsAt())
	assert.Equal(t, 30*time.Minute, s.Elapsed(start.Add(30*time.Minute)))
	assert.Equal(t, -time.Hour, s.Elapsed(start.Add(-time.Hour)))
	assert.Equal(t, 60*time.Minute, s.Remaining(start.Add(30*time.Minute)))
	assert.Equal(t, time.Duration(0), s.Remaining(start.Add(3*time.Hour)))
}

func TestSession_JSONShape(t *testing.T) {
	start := time.Date(2026, 10, 17, 9, 0, 0, 123456789, time.UTC)
	s := NewSession("p", NewBlockSet([]string{"x.com"}, []string{"Steam"}), start, time.Hour)
	s.Signature = "abc"

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"profile", "resolved_domains", "resolved_apps", "start", "duration_seconds", "signature"} {
		assert.Contains(t, raw, key)
	}

	var back Session
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.Start.Equal(start))
	assert.Equal(t, start.UnixNano(), back.Start.UnixNano())
}

func TestSession_NewSessionCopiesSet(t *testing.T) {
	set := NewBlockSet([]string{"x.com"}, []string{"Steam"})
	s := NewSession("p", set, time.Now(), time.Minute)
	set.Domains[0] = "mutated.com"
	assert.Equal(t, "x.com", s.Domains[0])
}

func TestSession_HasValidDuration(t *testing.T) {
	tests := []struct {
		seconds int64
		want    bool
	}{
		{0, false},
		{-60, false},
		{1, true},
		{int64(MaxSessionDuration / time.Second), true},
		{int64(MaxSessionDuration/time.Second) + 1, false},
		{int64(1300000 * time.Hour / time.Second), false},
	}
	for _, tt := range tests {
		s := Session{DurationSeconds: tt.seconds}
		assert.Equal(t, tt.want, s.HasValidDuration(), "duration_seconds=%d", tt.seconds)
	}
}
