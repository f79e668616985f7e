package score

import (
	"testing"

	"qrate/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculatePTS(t *testing.T) {
	engine := NewEngine(DefaultRankDecayK)

	// 近期榜首且收藏：1.0 * 1.5 * 1.1
	result := engine.CalculatePTS("user-1", model.TrackMetadata{
		ID:        "track-1",
		Rank:      1,
		Timeframe: model.TimeframeShort,
		IsSaved:   true,
	})
	assert.InDelta(t, 1.65, result.FinalPTS, 1e-9)
	assert.Equal(t, 1.0, result.BaseRankScore)
	assert.Equal(t, 1.5, result.RecencyMultiplier)
	assert.Equal(t, 1.1, result.SavedBonus)
	assert.Equal(t, "user-1", result.UserID)

	// 长期榜末尾且未收藏
	result = engine.CalculatePTS("user-1", model.TrackMetadata{
		ID:        "track-2",
		Rank:      100,
		Timeframe: model.TimeframeLong,
	})
	assert.InDelta(t, 0.00708, result.FinalPTS, 1e-4)
}

func TestCalculatePTSClampsOutOfRangeRank(t *testing.T) {
	engine := NewEngine(DefaultRankDecayK)

	low := engine.CalculatePTS("u", model.TrackMetadata{ID: "a", Rank: -3, Timeframe: model.TimeframeLong})
	assert.Equal(t, 1, low.Breakdown.Rank)
	assert.Equal(t, 1.0, low.BaseRankScore)

	high := engine.CalculatePTS("u", model.TrackMetadata{ID: "b", Rank: 999, Timeframe: model.TimeframeLong})
	assert.Equal(t, 100, high.Breakdown.Rank)
}

func TestCalculateBatchPTSSortsDescending(t *testing.T) {
	engine := NewEngine(DefaultRankDecayK)

	tracks := []model.TrackMetadata{
		{ID: "low", Rank: 50, Timeframe: model.TimeframeLong},
		{ID: "high", Rank: 1, Timeframe: model.TimeframeShort, IsSaved: true},
		{ID: "mid", Rank: 10, Timeframe: model.TimeframeMedium},
	}

	results := engine.CalculateBatchPTS("user-1", tracks)
	require.Len(t, results, 3)
	assert.Equal(t, "high", results[0].TrackID)
	assert.Equal(t, "mid", results[1].TrackID)
	assert.Equal(t, "low", results[2].TrackID)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].FinalPTS, results[i].FinalPTS)
	}
}

func TestCalculateBatchPTSStableForEqualScores(t *testing.T) {
	engine := NewEngine(DefaultRankDecayK)

	// 完全相同的评分输入，保持提交顺序
	tracks := []model.TrackMetadata{
		{ID: "first", Rank: 3, Timeframe: model.TimeframeLong},
		{ID: "second", Rank: 3, Timeframe: model.TimeframeLong},
	}
	results := engine.CalculateBatchPTS("user-1", tracks)
	require.Len(t, results, 2)
	assert.Equal(t, "first", results[0].TrackID)
	assert.Equal(t, "second", results[1].TrackID)
}
