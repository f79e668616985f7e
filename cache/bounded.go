package cache

import "sync"

// Bounded 有界缓存，超出容量时淘汰最早插入的键
// 只保证容量约束，不保证跨键的访问顺序语义
type Bounded struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]interface{}
	order    []string // 插入顺序，用于淘汰
}

// NewBounded 创建有界缓存
func NewBounded(capacity int) *Bounded {
	if capacity <= 0 {
		capacity = 256
	}
	return &Bounded{
		capacity: capacity,
		entries:  make(map[string]interface{}, capacity),
	}
}

// Get 读取缓存
func (c *Bounded) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	val, ok := c.entries[key]
	return val, ok
}

// Set 写入缓存，必要时淘汰最早插入的键
func (c *Bounded) Set(key string, val interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = val
		return
	}

	for len(c.entries) >= c.capacity && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = val
	c.order = append(c.order, key)
}

// Len 当前缓存条目数
func (c *Bounded) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
