package vibegate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"qrate/logger"
	"qrate/model"

	"github.com/fsnotify/fsnotify"
)

// FilterFunc 准入过滤函数：输入候选曲目与来宾档案，返回通过的曲目
// 策略由外部配置提供，这里只约定签名
type FilterFunc func(tracks []model.TrackMetadata, profile *model.GuestMusicData) []model.TrackMetadata

// SizeFunc 按来宾总数决定每位来宾的贡献上限，人越多每人贡献越少
type SizeFunc func(guestCount int) int

// Stats 单次过滤的统计信息
// 全部被拒也是合法结果，通过零曲目 + 统计数据上报，不作为错误
type Stats struct {
	Evaluated int     `json:"evaluated"`
	Passed    int     `json:"passed"`
	PassRate  float64 `json:"passRate"` // 百分比
	Filtered  bool    `json:"filtered"` // false 表示闸门未启用，全部放行
}

// SizeTier 贡献上限阶梯
type SizeTier struct {
	MaxGuests      int `json:"maxGuests"` // 来宾数不超过该值时适用
	TracksPerGuest int `json:"tracksPerGuest"`
}

// Policy 氛围闸门策略，来自外部 JSON 配置
// Enabled 是显式开关：关闭时所有曲目放行，统计照常产出
type Policy struct {
	Enabled       bool       `json:"enabled"`
	BlockExplicit bool       `json:"blockExplicit"`
	BlockedGenres []string   `json:"blockedGenres"`
	SizeTiers     []SizeTier `json:"sizeTiers"`
	DefaultTracks int        `json:"defaultTracks"` // 超出所有阶梯时的兜底上限
}

// DefaultPolicy 未提供配置文件时的默认策略
func DefaultPolicy() Policy {
	return Policy{
		Enabled:       false,
		BlockExplicit: false,
		SizeTiers: []SizeTier{
			{MaxGuests: 10, TracksPerGuest: 15},
			{MaxGuests: 25, TracksPerGuest: 10},
			{MaxGuests: 50, TracksPerGuest: 7},
		},
		DefaultTracks: 5,
	}
}

// Gate 氛围闸门：限定每位来宾可以贡献哪些、多少曲目
type Gate struct {
	mu      sync.RWMutex
	policy  Policy
	filter  FilterFunc // 非空时覆盖内置的策略过滤
	size    SizeFunc   // 非空时覆盖内置的阶梯上限
	path    string
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewGate 用给定策略创建闸门
func NewGate(policy Policy) *Gate {
	return &Gate{policy: policy, done: make(chan struct{})}
}

// NewGateFromFile 从 JSON 策略文件创建闸门并监听变更热加载
// 文件不存在时使用默认策略，不报错
func NewGateFromFile(path string) (*Gate, error) {
	g := NewGate(DefaultPolicy())
	g.path = path

	if err := g.reload(); err != nil {
		if os.IsNotExist(err) {
			logger.Warn("氛围闸门策略文件不存在，使用默认策略",
				logger.String("path", path))
		} else {
			return nil, err
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("创建策略文件监听器失败: %w", err)
	}
	// 监听目录而非文件本身，编辑器原子替换文件时才不会丢事件
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("监听策略目录失败: %w", err)
	}
	g.watcher = watcher

	go g.watch()
	return g, nil
}

// watch 监听策略文件变更
func (g *Gate) watch() {
	for {
		select {
		case event, ok := <-g.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(g.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := g.reload(); err != nil {
				logger.Error("重载氛围闸门策略失败", logger.ErrorField(err))
				continue
			}
			logger.Info("氛围闸门策略已重载", logger.String("path", g.path))

		case err, ok := <-g.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("策略文件监听错误", logger.ErrorField(err))

		case <-g.done:
			return
		}
	}
}

// reload 从磁盘重新加载策略
func (g *Gate) reload() error {
	data, err := os.ReadFile(g.path)
	if err != nil {
		return err
	}
	var policy Policy
	if err := json.Unmarshal(data, &policy); err != nil {
		return fmt.Errorf("解析策略文件失败: %w", err)
	}

	g.mu.Lock()
	g.policy = policy
	g.mu.Unlock()
	return nil
}

// Close 停止监听
func (g *Gate) Close() {
	close(g.done)
	if g.watcher != nil {
		g.watcher.Close()
	}
}

// SetFilter 注入外部过滤函数，覆盖内置策略过滤
func (g *Gate) SetFilter(fn FilterFunc) {
	g.mu.Lock()
	g.filter = fn
	g.mu.Unlock()
}

// SetSizeFunc 注入外部贡献上限函数
func (g *Gate) SetSizeFunc(fn SizeFunc) {
	g.mu.Lock()
	g.size = fn
	g.mu.Unlock()
}

// Policy 返回当前策略快照
func (g *Gate) Policy() Policy {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.policy
}

// ContributionSize 当前来宾总数下每位来宾的贡献上限
func (g *Gate) ContributionSize(guestCount int) int {
	g.mu.RLock()
	size := g.size
	policy := g.policy
	g.mu.RUnlock()

	if size != nil {
		return size(guestCount)
	}
	for _, tier := range policy.SizeTiers {
		if guestCount <= tier.MaxGuests {
			return tier.TracksPerGuest
		}
	}
	if policy.DefaultTracks > 0 {
		return policy.DefaultTracks
	}
	return 5
}

// Apply 对来宾的候选曲目执行准入过滤
// 闸门关闭时全部放行，Filtered 置为 false；统计始终如实产出
func (g *Gate) Apply(tracks []model.TrackMetadata, profile *model.GuestMusicData) ([]model.TrackMetadata, Stats) {
	g.mu.RLock()
	policy := g.policy
	filter := g.filter
	g.mu.RUnlock()

	stats := Stats{Evaluated: len(tracks)}

	if !policy.Enabled && filter == nil {
		stats.Passed = len(tracks)
		stats.PassRate = passRate(len(tracks), len(tracks))
		return tracks, stats
	}

	var passed []model.TrackMetadata
	if filter != nil {
		passed = filter(tracks, profile)
	} else {
		passed = applyPolicy(policy, tracks)
	}

	stats.Filtered = true
	stats.Passed = len(passed)
	stats.PassRate = passRate(len(passed), len(tracks))
	return passed, stats
}

// applyPolicy 内置策略过滤：儿童不宜与屏蔽曲风
func applyPolicy(policy Policy, tracks []model.TrackMetadata) []model.TrackMetadata {
	blocked := make(map[string]struct{}, len(policy.BlockedGenres))
	for _, genre := range policy.BlockedGenres {
		blocked[strings.ToLower(genre)] = struct{}{}
	}

	passed := make([]model.TrackMetadata, 0, len(tracks))
	for _, track := range tracks {
		if policy.BlockExplicit && track.Explicit {
			continue
		}
		if genreBlocked(blocked, track.Genres) {
			continue
		}
		passed = append(passed, track)
	}
	return passed
}

func genreBlocked(blocked map[string]struct{}, genres []string) bool {
	if len(blocked) == 0 {
		return false
	}
	for _, genre := range genres {
		if _, ok := blocked[strings.ToLower(genre)]; ok {
			return true
		}
	}
	return false
}

func passRate(passed, evaluated int) float64 {
	if evaluated == 0 {
		return 100
	}
	return float64(passed) / float64(evaluated) * 100
}
