package cache

import (
	"hash/fnv"
	"sync"
)

// ArtworkCache 曲目到默认封面序号的确定性映射
// 同一曲目永远得到同一张封面；结果无界缓存（曲目ID空间有限且条目极小）
type ArtworkCache struct {
	mu       sync.RWMutex
	variants int
	indexes  map[string]int
}

// NewArtworkCache 创建封面序号缓存，variants 为默认封面张数
func NewArtworkCache(variants int) *ArtworkCache {
	if variants <= 0 {
		variants = 12
	}
	return &ArtworkCache{
		variants: variants,
		indexes:  make(map[string]int),
	}
}

// IndexFor 返回曲目对应的封面序号 [0, variants)
func (c *ArtworkCache) IndexFor(trackID string) int {
	c.mu.RLock()
	idx, ok := c.indexes[trackID]
	c.mu.RUnlock()
	if ok {
		return idx
	}

	h := fnv.New32a()
	h.Write([]byte(trackID))
	idx = int(h.Sum32() % uint32(c.variants))

	c.mu.Lock()
	c.indexes[trackID] = idx
	c.mu.Unlock()
	return idx
}

// Len 已缓存的曲目数
func (c *ArtworkCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.indexes)
}
