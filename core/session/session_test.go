package session

import (
	"testing"

	"qrate/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenTimeframes(t *testing.T) {
	data := &model.GuestMusicData{
		ProfileID:     "profile-1",
		SavedTrackIDs: []string{"t2"},
		TopTracks: map[model.Timeframe][]model.TrackMetadata{
			model.TimeframeShort: {{ID: "t1"}, {ID: "t2"}},
			model.TimeframeLong:  {{ID: "t3", Rank: 7}},
		},
	}

	candidates := flattenTimeframes(data)
	require.Len(t, candidates, 3)

	// 未带名次的条目按列表位置补名次
	assert.Equal(t, "t1", candidates[0].ID)
	assert.Equal(t, 1, candidates[0].Rank)
	assert.Equal(t, model.TimeframeShort, candidates[0].Timeframe)
	assert.False(t, candidates[0].IsSaved)

	assert.Equal(t, 2, candidates[1].Rank)
	assert.True(t, candidates[1].IsSaved)

	// 提供方已带名次时保留原值
	assert.Equal(t, "t3", candidates[2].ID)
	assert.Equal(t, 7, candidates[2].Rank)
	assert.Equal(t, model.TimeframeLong, candidates[2].Timeframe)
}

func TestFlattenTimeframesDuplicatesAcrossBuckets(t *testing.T) {
	// 同一曲目出现在多个时间段：摊平保留全部条目，去重在评分后按最高分挑选
	data := &model.GuestMusicData{
		ProfileID: "profile-1",
		TopTracks: map[model.Timeframe][]model.TrackMetadata{
			model.TimeframeShort:  {{ID: "dup"}},
			model.TimeframeMedium: {{ID: "dup"}},
		},
	}
	candidates := flattenTimeframes(data)
	require.Len(t, candidates, 2)
	assert.Equal(t, model.TimeframeShort, candidates[0].Timeframe)
	assert.Equal(t, model.TimeframeMedium, candidates[1].Timeframe)
}
