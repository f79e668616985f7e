package aggregate

import (
	"testing"
	"time"

	"qrate/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contributionOf(userID string, entries ...model.WeightedTrackEntry) *model.GuestContribution {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.TrackID)
	}
	return &model.GuestContribution{
		EventID:     "evt-1",
		UserID:      userID,
		DisplayName: userID,
		Fingerprint: Fingerprint(userID, ids),
		Tracks:      entries,
		SubmittedAt: time.Now().UTC(),
	}
}

func entry(trackID string, pts float64) model.WeightedTrackEntry {
	return model.WeightedTrackEntry{TrackID: trackID, Name: trackID, WeightedPTS: pts}
}

func TestSubmitDuplicateFingerprintIsNoOp(t *testing.T) {
	engine := NewEngine(time.Millisecond, nil)

	first := contributionOf("user-1", entry("t1", 1.0))
	assert.True(t, engine.Submit(first))

	// 内容相同的重复提交
	again := contributionOf("user-1", entry("t1", 1.0))
	assert.False(t, engine.Submit(again))
	assert.Equal(t, 1, engine.GuestCount())
}

func TestSubmitReplacementRemovesStaleTracks(t *testing.T) {
	engine := NewEngine(time.Millisecond, nil)

	require.True(t, engine.Submit(contributionOf("user-1", entry("old", 1.0))))
	engine.Rebuild()
	require.Len(t, engine.Snapshot(), 1)

	// 重新提交换成另一首歌，旧曲目必须从池中消失
	require.True(t, engine.Submit(contributionOf("user-1", entry("new", 0.5))))
	pool := engine.Rebuild()
	require.Len(t, pool, 1)
	assert.Equal(t, "new", pool[0].TrackID)
}

func TestRebuildSumsAcrossGuests(t *testing.T) {
	engine := NewEngine(time.Millisecond, nil)

	engine.Submit(contributionOf("user-1", entry("shared", 1.2), entry("solo-1", 0.8)))
	engine.Submit(contributionOf("user-2", entry("shared", 0.9)))

	pool := engine.Rebuild()
	require.Len(t, pool, 2)

	// 共同曲目求和后排第一
	assert.Equal(t, "shared", pool[0].TrackID)
	assert.InDelta(t, 2.1, pool[0].TotalPTS, 1e-9)
	assert.Equal(t, 2, pool[0].ContributorCount)
	assert.InDelta(t, 1.05, pool[0].AveragePTS, 1e-9)

	assert.Equal(t, "solo-1", pool[1].TrackID)
	assert.Equal(t, 1, pool[1].ContributorCount)
}

func TestRebuildIdempotent(t *testing.T) {
	engine := NewEngine(time.Millisecond, nil)
	engine.Submit(contributionOf("user-1", entry("a", 1.0), entry("b", 0.5)))
	engine.Submit(contributionOf("user-2", entry("b", 0.7)))

	first := engine.Rebuild()
	second := engine.Rebuild()
	assert.Equal(t, first, second)
}

func TestRebuildDeterministicTieBreak(t *testing.T) {
	engine := NewEngine(time.Millisecond, nil)
	engine.Submit(contributionOf("user-1", entry("zzz", 1.0), entry("aaa", 1.0)))

	pool := engine.Rebuild()
	require.Len(t, pool, 2)
	// 同分按曲目ID升序
	assert.Equal(t, "aaa", pool[0].TrackID)
	assert.Equal(t, "zzz", pool[1].TrackID)
}

func TestRemoveGuest(t *testing.T) {
	engine := NewEngine(time.Millisecond, nil)
	engine.Submit(contributionOf("user-1", entry("a", 1.0)))
	engine.Submit(contributionOf("user-2", entry("b", 0.5)))

	engine.Remove("user-1")
	pool := engine.Rebuild()
	require.Len(t, pool, 1)
	assert.Equal(t, "b", pool[0].TrackID)
	assert.Equal(t, 1, engine.GuestCount())
}

func TestDebouncedRebuildFiresOnce(t *testing.T) {
	rebuilds := make(chan int, 16)
	engine := NewEngine(50*time.Millisecond, func(pool []model.AggregatedTrack) {
		rebuilds <- len(pool)
	})
	go engine.Run()
	defer engine.Stop()

	// 去抖窗口内的连续提交合并成一次重算
	engine.Submit(contributionOf("user-1", entry("a", 1.0)))
	engine.Submit(contributionOf("user-2", entry("b", 0.5)))
	engine.Submit(contributionOf("user-3", entry("c", 0.3)))

	select {
	case size := <-rebuilds:
		assert.Equal(t, 3, size)
	case <-time.After(2 * time.Second):
		t.Fatal("rebuild callback never fired")
	}

	select {
	case <-rebuilds:
		t.Fatal("debounce window produced a second rebuild")
	case <-time.After(200 * time.Millisecond):
	}
}
