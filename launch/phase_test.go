package launch

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func phaseConfig(price int64, start, end int64) PhaseConfiguration {
	return PhaseConfiguration{
		Price:        big.NewInt(price),
		StartTime:    start,
		EndTime:      end,
		MaxPerWallet: 5,
		MaxSupply:    100,
		Configured:   true,
	}
}

func TestActivePhase(t *testing.T) {
	tests := []struct {
		name     string
		configs  map[Phase]PhaseConfiguration
		now      int64
		expected Phase
		active   bool
	}{
		{
			name:    "no configs",
			configs: map[Phase]PhaseConfiguration{},
			now:     1000,
			active:  false,
		},
		{
			name: "single live phase",
			configs: map[Phase]PhaseConfiguration{
				PhasePublic: phaseConfig(10, 500, 1500),
			},
			now:      1000,
			expected: PhasePublic,
			active:   true,
		},
		{
			name: "window not yet open",
			configs: map[Phase]PhaseConfiguration{
				PhasePublic: phaseConfig(10, 1500, 2000),
			},
			now:    1000,
			active: false,
		},
		{
			name: "window already closed",
			configs: map[Phase]PhaseConfiguration{
				PhasePublic: phaseConfig(10, 100, 900),
			},
			now:    1000,
			active: false,
		},
		{
			name: "overlapping presale and public resolves to presale",
			configs: map[Phase]PhaseConfiguration{
				PhasePresale: phaseConfig(5, 800, 1200),
				PhasePublic:  phaseConfig(10, 0, 5000),
			},
			now:      1000,
			expected: PhasePresale,
			active:   true,
		},
		{
			name: "all three overlap resolves by priority not start time",
			configs: map[Phase]PhaseConfiguration{
				// Public opened first; priority still picks presale.
				PhasePublic:    phaseConfig(10, 0, 5000),
				PhaseWhitelist: phaseConfig(8, 100, 5000),
				PhasePresale:   phaseConfig(5, 900, 5000),
			},
			now:      1000,
			expected: PhasePresale,
			active:   true,
		},
		{
			name: "zero price never active",
			configs: map[Phase]PhaseConfiguration{
				PhasePresale: phaseConfig(0, 500, 1500),
			},
			now:    1000,
			active: false,
		},
		{
			name: "nil price never active",
			configs: map[Phase]PhaseConfiguration{
				PhasePresale: {StartTime: 500, EndTime: 1500, MaxPerWallet: 5, MaxSupply: 10, Configured: true},
			},
			now:    1000,
			active: false,
		},
		{
			name: "unconfigured phase skipped in favor of later one",
			configs: map[Phase]PhaseConfiguration{
				PhasePresale: {Price: big.NewInt(5), StartTime: 500, EndTime: 1500, Configured: false},
				PhasePublic:  phaseConfig(10, 500, 1500),
			},
			now:      1000,
			expected: PhasePublic,
			active:   true,
		},
		{
			name: "window bounds are inclusive at start",
			configs: map[Phase]PhaseConfiguration{
				PhasePublic: phaseConfig(10, 1000, 1500),
			},
			now:      1000,
			expected: PhasePublic,
			active:   true,
		},
		{
			name: "window bounds are inclusive at end",
			configs: map[Phase]PhaseConfiguration{
				PhasePublic: phaseConfig(10, 500, 1000),
			},
			now:      1000,
			expected: PhasePublic,
			active:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			phase, active := ActivePhase(tt.configs, tt.now)
			assert.Equal(t, tt.active, active)
			if tt.active {
				assert.Equal(t, tt.expected, phase)
			} else {
				assert.Equal(t, PhaseNone, phase)
			}
		})
	}
}

func TestActivePhase_Deterministic(t *testing.T) {
	configs := map[Phase]PhaseConfiguration{
		PhasePresale:   phaseConfig(5, 800, 1200),
		PhaseWhitelist: phaseConfig(8, 800, 1200),
		PhasePublic:    phaseConfig(10, 800, 1200),
	}

	first, ok := ActivePhase(configs, 1000)
	require.True(t, ok)
	for i := 0; i < 100; i++ {
		phase, active := ActivePhase(configs, 1000)
		require.True(t, active)
		require.Equal(t, first, phase)
	}
}

func TestParsePhase(t *testing.T) {
	for _, p := range []Phase{PhaseNone, PhasePresale, PhaseWhitelist, PhasePublic} {
		parsed, err := ParsePhase(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, parsed)
	}

	_, err := ParsePhase("airdrop")
	assert.Error(t, err)
}

func TestPhaseGated(t *testing.T) {
	assert.True(t, PhasePresale.Gated())
	assert.True(t, PhaseWhitelist.Gated())
	assert.False(t, PhasePublic.Gated())
	assert.False(t, PhaseNone.Gated())
}
