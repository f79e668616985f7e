package score

import (
	"math"
	"testing"

	"qrate/model"

	"github.com/stretchr/testify/assert"
)

func TestBaseRankScore(t *testing.T) {
	assert.Equal(t, 1.0, BaseRankScore(1, DefaultRankDecayK))
	assert.InDelta(t, math.Exp(-0.05), BaseRankScore(2, DefaultRankDecayK), 1e-9)
	assert.InDelta(t, 0.00708, BaseRankScore(100, DefaultRankDecayK), 1e-4)

	// 名次越靠后分越低
	prev := BaseRankScore(1, DefaultRankDecayK)
	for rank := 2; rank <= 100; rank++ {
		cur := BaseRankScore(rank, DefaultRankDecayK)
		assert.Less(t, cur, prev, "rank %d", rank)
		prev = cur
	}
}

func TestBaseRankScoreClampsRank(t *testing.T) {
	assert.Equal(t, BaseRankScore(1, DefaultRankDecayK), BaseRankScore(0, DefaultRankDecayK))
	assert.Equal(t, BaseRankScore(1, DefaultRankDecayK), BaseRankScore(-5, DefaultRankDecayK))
	assert.Equal(t, BaseRankScore(100, DefaultRankDecayK), BaseRankScore(150, DefaultRankDecayK))
}

func TestRecencyMultiplier(t *testing.T) {
	assert.Equal(t, 1.5, RecencyMultiplier(model.TimeframeShort))
	assert.Equal(t, 1.2, RecencyMultiplier(model.TimeframeMedium))
	assert.Equal(t, 1.0, RecencyMultiplier(model.TimeframeLong))
	assert.Equal(t, 1.0, RecencyMultiplier(model.Timeframe("weird")))
}

func TestSavedBonus(t *testing.T) {
	assert.Equal(t, 1.1, SavedBonus(true))
	assert.Equal(t, 1.0, SavedBonus(false))
}

func TestPresenceDecay(t *testing.T) {
	assert.InDelta(t, 0.81, PresenceDecay(0.9, 2), 1e-9)
	assert.InDelta(t, 0.16, PresenceDecay(0.4, 2), 1e-9)
	assert.InDelta(t, math.Sqrt(0.9), PresenceDecay(0.9, 0.5), 1e-9)

	// 零小时与负小时都不衰减
	assert.Equal(t, 1.0, PresenceDecay(0.9, 0))
	assert.Equal(t, 1.0, PresenceDecay(0.9, -3))
}
