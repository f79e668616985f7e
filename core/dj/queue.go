package dj

import (
	"sync"
	"time"

	"qrate/logger"
	"qrate/model"
)

// DefaultRepeatWindow 重复播放抑制的默认回看窗口
const DefaultRepeatWindow = 180 * time.Minute

// Dashboard DJ 面板状态机
// 单写入方（一个 DJ 会话），所有操作经互斥锁串行化：
// 队列重排不满足交换律，并发写会产生错乱的位次
type Dashboard struct {
	mu           sync.Mutex
	state        model.DJDashboardState
	repeatWindow time.Duration
	now          func() time.Time
}

// NewDashboard 创建面板状态机
func NewDashboard(eventID string, repeatWindow time.Duration) *Dashboard {
	if repeatWindow <= 0 {
		repeatWindow = DefaultRepeatWindow
	}
	return &Dashboard{
		state: model.DJDashboardState{
			EventID:     eventID,
			Queue:       []model.QueuedTrack{},
			PlayHistory: []model.PlayedTrack{},
		},
		repeatWindow: repeatWindow,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// stamp 生成毫秒精度的时间戳，保证序列化往返无损
func (d *Dashboard) stamp() time.Time {
	return d.now().Truncate(time.Millisecond)
}

// State 返回当前状态快照
func (d *Dashboard) State() model.DJDashboardState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshot()
}

// snapshot 复制状态，调用方需持有锁
func (d *Dashboard) snapshot() model.DJDashboardState {
	state := d.state
	state.Queue = make([]model.QueuedTrack, len(d.state.Queue))
	copy(state.Queue, d.state.Queue)
	state.PlayHistory = make([]model.PlayedTrack, len(d.state.PlayHistory))
	copy(state.PlayHistory, d.state.PlayHistory)
	if d.state.NowPlaying != nil {
		playing := *d.state.NowPlaying
		state.NowPlaying = &playing
	}
	return state
}

// Restore 从持久化状态恢复（服务重启后）
func (d *Dashboard) Restore(state model.DJDashboardState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if state.Queue == nil {
		state.Queue = []model.QueuedTrack{}
	}
	if state.PlayHistory == nil {
		state.PlayHistory = []model.PlayedTrack{}
	}
	d.state = state
}

// TapToCue 把曲目设为正在播放
// 带池内名次的来自推荐池（qrate），否则是手动搜索（off-book）；
// 原正在播放曲目插入历史记录最前端
func (d *Dashboard) TapToCue(track model.TrackRef, poolRank *int) model.DJDashboardState {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.stamp()

	if prev := d.state.NowPlaying; prev != nil {
		played := model.PlayedTrack{
			TrackRef: prev.TrackRef,
			Source:   prev.Source,
			PlayedAt: now,
		}
		d.state.PlayHistory = append([]model.PlayedTrack{played}, d.state.PlayHistory...)
	}

	source := model.SourceOffBook
	if poolRank != nil {
		source = model.SourceQRate
	}
	d.state.NowPlaying = &model.NowPlayingTrack{
		TrackRef:  track,
		Source:    source,
		PoolRank:  poolRank,
		StartedAt: now,
	}
	d.state.UpdatedAt = now

	logger.Info("切换正在播放",
		logger.String("eventId", d.state.EventID),
		logger.String("trackId", track.TrackID),
		logger.String("source", source))

	return d.snapshot()
}

// AddToQueue 插入队列
// position 为 1 起始的目标位次，为空则追加到末尾；越界位次收敛到合法范围
func (d *Dashboard) AddToQueue(track model.TrackRef, position *int) model.DJDashboardState {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry := model.QueuedTrack{
		TrackRef: track,
		AddedAt:  d.stamp(),
	}

	idx := len(d.state.Queue)
	if position != nil {
		idx = *position - 1
		if idx < 0 {
			idx = 0
		}
		if idx > len(d.state.Queue) {
			idx = len(d.state.Queue)
		}
	}

	queue := append([]model.QueuedTrack{}, d.state.Queue[:idx]...)
	queue = append(queue, entry)
	queue = append(queue, d.state.Queue[idx:]...)
	d.state.Queue = queue

	d.renumber()
	d.state.UpdatedAt = d.stamp()
	return d.snapshot()
}

// RemoveFromQueue 按曲目ID移除，不存在时是安全的无操作
func (d *Dashboard) RemoveFromQueue(trackID string) model.DJDashboardState {
	d.mu.Lock()
	defer d.mu.Unlock()

	idx := d.indexOf(trackID)
	if idx < 0 {
		return d.snapshot()
	}

	d.state.Queue = append(d.state.Queue[:idx], d.state.Queue[idx+1:]...)
	d.renumber()
	d.state.UpdatedAt = d.stamp()
	return d.snapshot()
}

// ReorderQueue 移动曲目到新位次，曲目不存在时是无操作
func (d *Dashboard) ReorderQueue(trackID string, newPosition int) model.DJDashboardState {
	d.mu.Lock()
	defer d.mu.Unlock()

	idx := d.indexOf(trackID)
	if idx < 0 {
		return d.snapshot()
	}

	entry := d.state.Queue[idx]
	queue := append(d.state.Queue[:idx], d.state.Queue[idx+1:]...)

	target := newPosition - 1
	if target < 0 {
		target = 0
	}
	if target > len(queue) {
		target = len(queue)
	}

	queue = append(queue[:target], append([]model.QueuedTrack{entry}, queue[target:]...)...)
	d.state.Queue = queue

	d.renumber()
	d.state.UpdatedAt = d.stamp()
	return d.snapshot()
}

// WasRecentlyPlayed 判断曲目是否在回看窗口内播放过，用于抑制重复推荐
func (d *Dashboard) WasRecentlyPlayed(trackID string) bool {
	return d.WasPlayedWithin(trackID, d.repeatWindow)
}

// WasPlayedWithin 判断曲目是否在指定窗口内播放过
func (d *Dashboard) WasPlayedWithin(trackID string, window time.Duration) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	cutoff := d.now().Add(-window)
	for _, played := range d.state.PlayHistory {
		if played.TrackID == trackID && played.PlayedAt.After(cutoff) {
			return true
		}
	}
	return false
}

// NowPlayingFeatures 当前播放曲目的音频特征，无播放或无特征时为 nil
func (d *Dashboard) NowPlayingFeatures() *model.AudioFeatures {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state.NowPlaying == nil {
		return nil
	}
	return d.state.NowPlaying.Features
}

// indexOf 查找队列中曲目的下标，调用方需持有锁
func (d *Dashboard) indexOf(trackID string) int {
	for i, entry := range d.state.Queue {
		if entry.TrackID == trackID {
			return i
		}
	}
	return -1
}

// renumber 结构变化后重排位次，保持 1 起始且连续
func (d *Dashboard) renumber() {
	for i := range d.state.Queue {
		d.state.Queue[i].Position = i + 1
	}
}
