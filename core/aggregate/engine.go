package aggregate

import (
	"sort"
	"sync"
	"time"

	"qrate/logger"
	"qrate/model"
)

// RebuildFunc 重建完成后的回调，收到最新排名池快照
type RebuildFunc func(pool []model.AggregatedTrack)

// Engine 跨来宾聚合引擎
// 贡献按来宾整体替换，读取方不会看到同一来宾新旧贡献并存的状态；
// 重算经通道去抖合并，最终总是反映最后一组完整贡献
type Engine struct {
	mu            sync.RWMutex
	contributions map[string]*model.GuestContribution // userID -> 当前贡献
	pool          []model.AggregatedTrack             // 最近一次重建的快照

	delay     time.Duration
	trigger   chan struct{}
	done      chan struct{}
	onRebuild RebuildFunc
}

// NewEngine 创建聚合引擎，delay 为重算去抖窗口
func NewEngine(delay time.Duration, onRebuild RebuildFunc) *Engine {
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	return &Engine{
		contributions: make(map[string]*model.GuestContribution),
		delay:         delay,
		trigger:       make(chan struct{}, 1),
		done:          make(chan struct{}),
		onRebuild:     onRebuild,
	}
}

// Run 启动去抖重算循环，应在独立 goroutine 中运行
func (e *Engine) Run() {
	for {
		select {
		case <-e.trigger:
			// 去抖窗口内的后续触发合并进本次重算
			timer := time.NewTimer(e.delay)
			select {
			case <-timer.C:
			case <-e.done:
				timer.Stop()
				return
			}
			drain(e.trigger)

			pool := e.Rebuild()
			if e.onRebuild != nil {
				e.onRebuild(pool)
			}

		case <-e.done:
			return
		}
	}
}

// Stop 停止重算循环
func (e *Engine) Stop() {
	close(e.done)
}

func drain(ch chan struct{}) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

// schedule 请求一次重算，容量为 1 的通道天然合并重复请求
func (e *Engine) schedule() {
	select {
	case e.trigger <- struct{}{}:
	default:
	}
}

// Submit 提交来宾贡献
// 指纹不变的重复提交是无操作，返回 false，不触发任何副作用；
// 指纹变化时整体替换旧贡献并调度重算
func (e *Engine) Submit(contribution *model.GuestContribution) bool {
	e.mu.Lock()
	if old, ok := e.contributions[contribution.UserID]; ok && old.Fingerprint == contribution.Fingerprint {
		e.mu.Unlock()
		logger.Debug("贡献指纹未变化，忽略重复提交",
			logger.String("userId", contribution.UserID),
			logger.String("eventId", contribution.EventID))
		return false
	}
	e.contributions[contribution.UserID] = contribution
	e.mu.Unlock()

	e.schedule()
	return true
}

// Remove 移除来宾贡献（来宾退出活动）
func (e *Engine) Remove(userID string) {
	e.mu.Lock()
	_, existed := e.contributions[userID]
	delete(e.contributions, userID)
	e.mu.Unlock()

	if existed {
		e.schedule()
	}
}

// GuestCount 当前有贡献的来宾数
func (e *Engine) GuestCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.contributions)
}

// Contribution 查询某来宾的当前贡献
func (e *Engine) Contribution(userID string) *model.GuestContribution {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.contributions[userID]
}

// Rebuild 从当前全部贡献重建排名池
// 对集合求和/求均值，幂等且与遍历顺序无关
func (e *Engine) Rebuild() []model.AggregatedTrack {
	e.mu.RLock()
	grouped := make(map[string]*model.AggregatedTrack)
	for _, contribution := range e.contributions {
		for _, entry := range contribution.Tracks {
			agg, ok := grouped[entry.TrackID]
			if !ok {
				agg = &model.AggregatedTrack{
					TrackRef: model.TrackRef{
						TrackID:  entry.TrackID,
						Name:     entry.Name,
						Artist:   entry.Artist,
						Album:    entry.Album,
						CoverURL: entry.CoverURL,
						Features: entry.Features,
					},
				}
				grouped[entry.TrackID] = agg
			}
			agg.TotalPTS += entry.WeightedPTS
			agg.Contributions = append(agg.Contributions, model.TrackContribution{
				UserID:      contribution.UserID,
				DisplayName: contribution.DisplayName,
				WeightedPTS: entry.WeightedPTS,
			})
		}
	}
	e.mu.RUnlock()

	pool := make([]model.AggregatedTrack, 0, len(grouped))
	for _, agg := range grouped {
		agg.ContributorCount = len(agg.Contributions)
		agg.AveragePTS = agg.TotalPTS / float64(agg.ContributorCount)
		// 贡献列表排序，保证快照完全确定
		sort.Slice(agg.Contributions, func(i, j int) bool {
			if agg.Contributions[i].WeightedPTS != agg.Contributions[j].WeightedPTS {
				return agg.Contributions[i].WeightedPTS > agg.Contributions[j].WeightedPTS
			}
			return agg.Contributions[i].UserID < agg.Contributions[j].UserID
		})
		pool = append(pool, *agg)
	}

	sort.Slice(pool, func(i, j int) bool {
		if pool[i].TotalPTS != pool[j].TotalPTS {
			return pool[i].TotalPTS > pool[j].TotalPTS
		}
		return pool[i].TrackID < pool[j].TrackID
	})

	e.mu.Lock()
	e.pool = pool
	e.mu.Unlock()
	return pool
}

// Snapshot 返回最近一次重建的排名池副本
func (e *Engine) Snapshot() []model.AggregatedTrack {
	e.mu.RLock()
	defer e.mu.RUnlock()
	snapshot := make([]model.AggregatedTrack, len(e.pool))
	copy(snapshot, e.pool)
	return snapshot
}
