package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCamelotFromPitch(t *testing.T) {
	cases := []struct {
		pitch, mode int
		want        string
	}{
		{0, 1, "8B"},  // C 大调
		{7, 1, "9B"},  // G 大调
		{9, 0, "8A"},  // A 小调
		{4, 0, "9A"},  // E 小调
		{1, 1, "3B"},  // Db 大调
		{11, 1, "1B"}, // B 大调
	}
	for _, c := range cases {
		got, ok := CamelotFromPitch(c.pitch, c.mode)
		assert.True(t, ok)
		assert.Equal(t, c.want, got, "pitch=%d mode=%d", c.pitch, c.mode)
	}
}

func TestCamelotFromPitchInvalid(t *testing.T) {
	_, ok := CamelotFromPitch(-1, 1)
	assert.False(t, ok)
	_, ok = CamelotFromPitch(12, 0)
	assert.False(t, ok)
}

func TestRelate(t *testing.T) {
	assert.Equal(t, RelationSame, relate("8B", "8B"))
	assert.Equal(t, RelationEnergyBoost, relate("8B", "9B"))
	assert.Equal(t, RelationEnergyDrop, relate("8B", "7B"))

	// 轮盘首尾相接
	assert.Equal(t, RelationEnergyBoost, relate("12A", "1A"))
	assert.Equal(t, RelationEnergyDrop, relate("1A", "12A"))

	// 跨环或距离超过一格都无加成
	assert.Equal(t, RelationNone, relate("8B", "8A"))
	assert.Equal(t, RelationNone, relate("8B", "10B"))
	assert.Equal(t, RelationNone, relate("bogus", "8B"))
}
