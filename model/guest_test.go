package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCohortFor(t *testing.T) {
	start := time.Date(2026, 8, 25, 20, 0, 0, 0, time.UTC)

	// 开始前与准点都落在 0 号桶
	assert.Equal(t, 0, CohortFor(start, start.Add(-2*time.Hour)))
	assert.Equal(t, 0, CohortFor(start, start))
	assert.Equal(t, 0, CohortFor(start, start.Add(30*time.Minute)))

	assert.Equal(t, 1, CohortFor(start, start.Add(90*time.Minute)))
	assert.Equal(t, 3, CohortFor(start, start.Add(3*time.Hour+5*time.Minute)))
}

func TestGuestMusicDataValidate(t *testing.T) {
	valid := &GuestMusicData{
		ProfileID: "profile-1",
		TopTracks: map[Timeframe][]TrackMetadata{
			TimeframeShort: {{ID: "t1"}},
		},
	}
	result := valid.Validate()
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)

	// 缺档案ID
	noProfile := &GuestMusicData{
		TopTracks: map[Timeframe][]TrackMetadata{TimeframeShort: {{ID: "t1"}}},
	}
	result = noProfile.Validate()
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Errors)

	// 三个榜单全空
	empty := &GuestMusicData{
		ProfileID: "profile-1",
		TopTracks: map[Timeframe][]TrackMetadata{},
	}
	result = empty.Validate()
	assert.False(t, result.Valid)
}

func TestGuestMusicDataValidateSavedOptional(t *testing.T) {
	// 缺少收藏与关注数据是可容忍的降级
	data := &GuestMusicData{
		ProfileID: "profile-1",
		TopTracks: map[Timeframe][]TrackMetadata{
			TimeframeLong: {{ID: "t1"}, {ID: "t2"}},
		},
	}
	assert.True(t, data.Validate().Valid)
}
