package watchdog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/haukened/lockin/internal/lockin/domain"
)

func TestEvaluate(t *testing.T) {
	start := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	sess := domain.NewSession("p", domain.BlockSet{}, start, time.Minute)

	tests := []struct {
		name        string
		now         time.Time
		tick        domain.CycleTick
		state       State
		wallTrusted bool
		reason      string
	}{
		{"first cycle", start, domain.CycleTick{Cycles: 1}, Enforcing, true, "running"},
		{"at the boundary", start.Add(time.Minute), domain.CycleTick{Cycles: 21}, Enforcing, true, "running"},
		{"past the end", start.Add(time.Minute + time.Second), domain.CycleTick{Cycles: 21}, Expiring, true, "wall_clock"},
		{"clock before start", start.Add(-time.Hour), domain.CycleTick{Cycles: 5}, Enforcing, false, "clock_rewound"},
		{
			"clock behind high-water",
			start.Add(2 * time.Minute),
			domain.CycleTick{Cycles: 5, HighWater: start.Add(3 * time.Minute)},
			Enforcing, false, "clock_rewound",
		},
		{"boot clock exactly twice the duration", start.Add(-time.Hour), domain.CycleTick{Cycles: 41, Monotonic: 2 * time.Minute}, Enforcing, false, "clock_rewound"},
		{"boot clock beyond twice the duration", start.Add(-time.Hour), domain.CycleTick{Cycles: 42, Monotonic: 2*time.Minute + time.Second}, Expiring, true, "boot_clock"},
		{"many cycles without boot clock progress", start.Add(-time.Hour), domain.CycleTick{Cycles: 10000}, Enforcing, false, "clock_rewound"},
		{"no counter", start.Add(30 * time.Second), domain.CycleTick{}, Enforcing, true, "running"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Evaluate(sess, tt.now, tt.tick)
			assert.Equal(t, tt.state, v.State)
			assert.Equal(t, tt.wallTrusted, v.WallTrusted)
			assert.Equal(t, tt.reason, v.Reason)
		})
	}
}

func TestEvaluate_VeryLongSessionDoesNotOverflow(t *testing.T) {
	start := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	sess := domain.NewSession("p", domain.BlockSet{}, start, 1300000*time.Hour)

	v := Evaluate(sess, start, domain.CycleTick{Cycles: 1})
	assert.Equal(t, Enforcing, v.State)
	assert.Equal(t, "running", v.Reason)

	v = Evaluate(sess, start.Add(time.Hour), domain.CycleTick{Cycles: 2, Monotonic: time.Hour})
	assert.Equal(t, Enforcing, v.State)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "enforcing", Enforcing.String())
	assert.Equal(t, "expiring", Expiring.String())
	assert.Equal(t, "unknown", State(9).String())
}
