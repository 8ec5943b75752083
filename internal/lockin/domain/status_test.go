package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUptime_ElapsedFrom(t *testing.T) {
	boot := func(id string, d time.Duration) Uptime { return Uptime{BootID: id, Elapsed: d} }
	tests := []struct {
		name string
		prev Uptime
		now  Uptime
		want time.Duration
	}{
		{"same boot forward", boot("a", time.Minute), boot("a", time.Minute+3*time.Second), 3 * time.Second},
		{"same boot no progress", boot("a", time.Minute), boot("a", time.Minute), 0},
		{"same boot backwards", boot("a", time.Minute), boot("a", time.Second), 0},
		{"after reboot", boot("a", time.Hour), boot("b", 40*time.Second), 40 * time.Second},
		{"no previous reading", Uptime{}, boot("a", time.Hour), 0},
		{"no current reading", boot("a", time.Hour), Uptime{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.now.ElapsedFrom(tt.prev))
		})
	}
}

func TestCycleTick_ClockRewound(t *testing.T) {
	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	assert.False(t, CycleTick{}.ClockRewound(now))
	assert.False(t, CycleTick{HighWater: now}.ClockRewound(now))
	assert.True(t, CycleTick{HighWater: now.Add(time.Second)}.ClockRewound(now))
}
