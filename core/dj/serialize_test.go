package dj

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeRoundTripExactToMillisecond(t *testing.T) {
	d := NewDashboard("evt-1", DefaultRepeatWindow)
	d.TapToCue(ref("first"), nil)
	d.TapToCue(ref("playing"), intPtr(2))
	d.AddToQueue(ref("queued"), nil)

	state := d.State()
	data, err := SerializeState(state)
	require.NoError(t, err)

	restored, err := DeserializeState(data)
	require.NoError(t, err)

	// 状态机打的都是毫秒精度时间戳，往返必须完全相等
	assert.Equal(t, state, restored)
	assert.True(t, state.UpdatedAt.Equal(restored.UpdatedAt))
	assert.True(t, state.NowPlaying.StartedAt.Equal(restored.NowPlaying.StartedAt))
	assert.True(t, state.Queue[0].AddedAt.Equal(restored.Queue[0].AddedAt))
	assert.True(t, state.PlayHistory[0].PlayedAt.Equal(restored.PlayHistory[0].PlayedAt))
}

func TestSerializeEmptyDashboard(t *testing.T) {
	d := NewDashboard("evt-1", DefaultRepeatWindow)
	state := d.State()

	data, err := SerializeState(state)
	require.NoError(t, err)

	restored, err := DeserializeState(data)
	require.NoError(t, err)
	assert.Nil(t, restored.NowPlaying)
	assert.Empty(t, restored.Queue)
	assert.Empty(t, restored.PlayHistory)
	assert.Equal(t, "evt-1", restored.EventID)
}

func TestDeserializeFailsLoudly(t *testing.T) {
	// 非法 JSON
	_, err := DeserializeState([]byte("{not json"))
	assert.Error(t, err)

	// 不认识的版本
	_, err = DeserializeState([]byte(`{"version":99,"eventId":"evt-1","queue":[],"playHistory":[],"updatedAt":0}`))
	assert.Error(t, err)

	// 缺活动ID
	_, err = DeserializeState([]byte(`{"version":1,"eventId":"","queue":[],"playHistory":[],"updatedAt":0}`))
	assert.Error(t, err)
}

func TestRestoreFromSerialized(t *testing.T) {
	origin := NewDashboard("evt-1", DefaultRepeatWindow)
	origin.TapToCue(ref("a"), nil)
	origin.AddToQueue(ref("b"), nil)

	data, err := SerializeState(origin.State())
	require.NoError(t, err)
	state, err := DeserializeState(data)
	require.NoError(t, err)

	revived := NewDashboard("evt-1", DefaultRepeatWindow)
	revived.Restore(state)

	assert.Equal(t, origin.State(), revived.State())
	// 恢复后状态机继续可用
	next := revived.AddToQueue(ref("c"), nil)
	assert.Len(t, next.Queue, 2)
	assert.Equal(t, 2, next.Queue[1].Position)
}

func TestSerializePreservesMillisecondPrecision(t *testing.T) {
	d := NewDashboard("evt-1", DefaultRepeatWindow)
	fixed := time.Date(2026, 8, 25, 22, 30, 15, 123_000_000, time.UTC)
	d.now = func() time.Time { return fixed }

	state := d.TapToCue(ref("a"), nil)
	data, err := SerializeState(state)
	require.NoError(t, err)

	restored, err := DeserializeState(data)
	require.NoError(t, err)
	assert.Equal(t, fixed, restored.NowPlaying.StartedAt)
}
