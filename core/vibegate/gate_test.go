package vibegate

import (
	"testing"

	"qrate/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTracks() []model.TrackMetadata {
	return []model.TrackMetadata{
		{ID: "clean", Explicit: false, Genres: []string{"house"}},
		{ID: "explicit", Explicit: true, Genres: []string{"hip hop"}},
		{ID: "metal", Explicit: false, Genres: []string{"Death Metal"}},
	}
}

func TestApplyDisabledPassesEverything(t *testing.T) {
	gate := NewGate(DefaultPolicy())

	passed, stats := gate.Apply(sampleTracks(), nil)
	assert.Len(t, passed, 3)
	assert.False(t, stats.Filtered)
	assert.Equal(t, 3, stats.Evaluated)
	assert.Equal(t, 3, stats.Passed)
	assert.Equal(t, 100.0, stats.PassRate)
}

func TestApplyBlockExplicit(t *testing.T) {
	policy := DefaultPolicy()
	policy.Enabled = true
	policy.BlockExplicit = true
	gate := NewGate(policy)

	passed, stats := gate.Apply(sampleTracks(), nil)
	require.Len(t, passed, 2)
	assert.True(t, stats.Filtered)
	assert.Equal(t, 2, stats.Passed)
	for _, track := range passed {
		assert.False(t, track.Explicit)
	}
}

func TestApplyBlockedGenresCaseInsensitive(t *testing.T) {
	policy := DefaultPolicy()
	policy.Enabled = true
	policy.BlockedGenres = []string{"death metal"}
	gate := NewGate(policy)

	passed, _ := gate.Apply(sampleTracks(), nil)
	require.Len(t, passed, 2)
	for _, track := range passed {
		assert.NotEqual(t, "metal", track.ID)
	}
}

func TestApplyAllRejectedIsValid(t *testing.T) {
	policy := DefaultPolicy()
	policy.Enabled = true
	policy.BlockedGenres = []string{"house", "hip hop", "death metal"}
	gate := NewGate(policy)

	passed, stats := gate.Apply(sampleTracks(), nil)
	assert.Empty(t, passed)
	assert.Equal(t, 0, stats.Passed)
	assert.Equal(t, 0.0, stats.PassRate)
}

func TestApplyEmptyInput(t *testing.T) {
	gate := NewGate(DefaultPolicy())
	passed, stats := gate.Apply(nil, nil)
	assert.Empty(t, passed)
	assert.Equal(t, 100.0, stats.PassRate)
}

func TestApplyCustomFilterOverridesPolicy(t *testing.T) {
	gate := NewGate(DefaultPolicy())
	gate.SetFilter(func(tracks []model.TrackMetadata, _ *model.GuestMusicData) []model.TrackMetadata {
		var out []model.TrackMetadata
		for _, track := range tracks {
			if track.ID == "clean" {
				out = append(out, track)
			}
		}
		return out
	})

	passed, stats := gate.Apply(sampleTracks(), nil)
	require.Len(t, passed, 1)
	assert.Equal(t, "clean", passed[0].ID)
	assert.True(t, stats.Filtered)
	assert.InDelta(t, 33.33, stats.PassRate, 0.01)
}

func TestContributionSizeTiers(t *testing.T) {
	gate := NewGate(DefaultPolicy())

	assert.Equal(t, 15, gate.ContributionSize(5))
	assert.Equal(t, 15, gate.ContributionSize(10))
	assert.Equal(t, 10, gate.ContributionSize(11))
	assert.Equal(t, 10, gate.ContributionSize(25))
	assert.Equal(t, 7, gate.ContributionSize(50))
	assert.Equal(t, 5, gate.ContributionSize(200))
}

func TestContributionSizeCustomFunc(t *testing.T) {
	gate := NewGate(DefaultPolicy())
	gate.SetSizeFunc(func(guestCount int) int { return 3 })
	assert.Equal(t, 3, gate.ContributionSize(1))
	assert.Equal(t, 3, gate.ContributionSize(500))
}
