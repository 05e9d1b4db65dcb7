package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRR(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		entry, stop, tp float64
		want            float64
	}{
		{"long 2R", 100, 95, 110, 2},
		{"short 3R", 100, 105, 85, 3},
		{"zero stop distance", 100, 100, 110, 0},
		{"tp on wrong side still measured", 100, 95, 90, 2},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, RR(tt.entry, tt.stop, tt.tp), 1e-12)
		})
	}
}

func TestPlannedRiskAndPct(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 50.0, PlannedRisk(10, 100, 95), 1e-12)
	assert.InDelta(t, 50.0, PlannedRisk(10, 95, 100), 1e-12)

	assert.InDelta(t, 0.5, RiskPct(50, 10000), 1e-12)
	assert.Equal(t, 0.0, RiskPct(50, 0))

	assert.InDelta(t, 200.0, Budget(10000, 2), 1e-12)
	assert.Equal(t, 0.0, Budget(10000, 0))
}

func TestPnLAndProfitable(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 100.0, PnL(true, 100, 110, 10), 1e-12)
	assert.InDelta(t, -100.0, PnL(false, 100, 110, 10), 1e-12)
	assert.InDelta(t, 50.0, PnL(false, 100, 95, 10), 1e-12)

	assert.True(t, Profitable(true, 100, 101))
	assert.False(t, Profitable(true, 100, 100))
	assert.True(t, Profitable(false, 100, 99))
	assert.False(t, Profitable(false, 100, 101))
}
