package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"qrate/cache"
	"qrate/core/aggregate"
	"qrate/core/dj"
	"qrate/core/flow"
	"qrate/core/live"
	"qrate/core/presence"
	"qrate/core/score"
	"qrate/core/vibegate"
	"qrate/logger"
	"qrate/model"
	"qrate/monitoring"
	"qrate/repository"
)

// 后台持久化操作的统一超时
const persistTimeout = 3 * time.Second

// Session 单场活动的完整流水线：
// 提交 -> 校验 -> PTS -> 闸门 -> 上下文加权 -> 聚合 -> 混音重评 -> 推送
type Session struct {
	event *model.EventConfig

	pts       *score.Engine
	weighting *presence.Engine
	gate      *vibegate.Gate
	agg       *aggregate.Engine
	flow      *flow.Engine
	dashboard *dj.Dashboard
	artwork   *cache.ArtworkCache
	coverURL  func(index int) string

	hub         *live.Hub
	dashCache   *cache.DashboardCache
	eventRepo   repository.EventRepository
	contribRepo repository.ContributionRepository

	broadcastN int

	poolMu sync.RWMutex
	pool   []model.AggregatedTrack // 最近一次混音重评后的排名池
}

// Event 活动配置
func (s *Session) Event() *model.EventConfig {
	return s.event
}

// ========== 来宾 ==========

// JoinGuest 来宾加入活动
// 重复加入只刷新昵称，首次到场时间与小时桶保持不变
func (s *Session) JoinGuest(ctx context.Context, userID, displayName string) (*model.GuestArrival, error) {
	if userID == "" {
		return nil, fmt.Errorf("来宾ID不能为空")
	}

	now := time.Now().UTC()
	arrival := &model.GuestArrival{
		EventID:     s.event.ID,
		UserID:      userID,
		DisplayName: displayName,
		ArrivalTime: now,
		CohortIndex: model.CohortFor(s.event.StartTime, now),
	}
	if err := s.eventRepo.UpsertArrival(ctx, arrival); err != nil {
		return nil, fmt.Errorf("登记来宾到场失败: %w", err)
	}

	// 取回库中记录，重复加入时保留首次到场时间
	stored, err := s.eventRepo.GetArrival(ctx, s.event.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("查询来宾到场记录失败: %w", err)
	}
	if stored != nil {
		arrival = stored
	}

	s.hub.Broadcast(s.event.ID, live.MsgTypeGuestJoin, map[string]interface{}{
		"userId":      arrival.UserID,
		"displayName": arrival.DisplayName,
		"cohortIndex": arrival.CohortIndex,
	})

	logger.Info("来宾已加入活动",
		logger.String("eventId", s.event.ID),
		logger.String("userId", userID),
		logger.Int("cohort", arrival.CohortIndex))

	return arrival, nil
}

// UpdateLocation 来宾位置上报，驱动围栏在场判定
func (s *Session) UpdateLocation(ctx context.Context, userID string, lat, lon float64) error {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return fmt.Errorf("非法坐标: (%f, %f)", lat, lon)
	}
	if err := s.eventRepo.UpdateLocation(ctx, s.event.ID, userID, lat, lon, time.Now().UTC()); err != nil {
		return fmt.Errorf("更新来宾位置失败: %w", err)
	}
	return nil
}

// ========== 提交流水线 ==========

// SubmissionResult 一次提交的处理结果
// 校验失败与重复提交都不是错误，通过结果字段区分
type SubmissionResult struct {
	Validation model.ValidationResult `json:"validation"`
	Accepted   bool                   `json:"accepted"`
	Duplicate  bool                   `json:"duplicate"`
	Gate       vibegate.Stats         `json:"gate"`
	TrackCount int                    `json:"trackCount"`
	Decay      model.DecayInfo        `json:"decay"`
}

// Submit 处理来宾音乐数据提交
// 同一来宾重新提交时整体替换旧贡献；内容指纹不变则为无操作
func (s *Session) Submit(ctx context.Context, userID string, data *model.GuestMusicData) (*SubmissionResult, error) {
	result := &SubmissionResult{Validation: data.Validate()}
	if !result.Validation.Valid {
		monitoring.RecordSubmission(s.event.ID, "invalid")
		logger.Warn("来宾音乐数据校验失败",
			logger.String("eventId", s.event.ID),
			logger.String("userId", userID))
		return result, nil
	}

	arrival, err := s.eventRepo.GetArrival(ctx, s.event.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("查询来宾到场记录失败: %w", err)
	}
	if arrival == nil {
		// 未显式加入就提交，按当前时间补登到场
		if arrival, err = s.JoinGuest(ctx, userID, data.DisplayName); err != nil {
			return nil, err
		}
	}

	candidates := flattenTimeframes(data)
	scored := s.pts.CalculateBatchPTS(userID, candidates)

	// 跨时间段去重：同曲目保留最高 PTS 的一条（scored 已按分数降序）
	scoreByID := make(map[string]score.PTSResult, len(scored))
	deduped := make([]model.TrackMetadata, 0, len(scored))
	for _, res := range scored {
		if _, seen := scoreByID[res.TrackID]; seen {
			continue
		}
		scoreByID[res.TrackID] = res
		deduped = append(deduped, candidateFor(candidates, res))
	}

	gated, gateStats := s.gate.Apply(deduped, data)
	result.Gate = gateStats
	monitoring.RecordGate(s.event.ID, gateStats.Passed, gateStats.Evaluated-gateStats.Passed)

	guestCount := s.liveGuestCount(ctx)
	if limit := s.gate.ContributionSize(guestCount); len(gated) > limit {
		gated = gated[:limit]
	}

	weighting := s.weighting.Weigh(s.event, arrival, time.Now().UTC())
	result.Decay = weighting.Info()

	entries := make([]model.WeightedTrackEntry, 0, len(gated))
	ids := make([]string, 0, len(gated))
	for _, track := range gated {
		res := scoreByID[track.ID]
		entries = append(entries, model.WeightedTrackEntry{
			TrackID:     track.ID,
			Name:        track.Name,
			Artist:      track.Artist,
			Album:       track.Album,
			CoverURL:    s.coverFor(track.ID),
			Features:    track.Features,
			Rank:        res.Breakdown.Rank,
			Timeframe:   res.Breakdown.Timeframe,
			IsSaved:     res.Breakdown.IsSaved,
			PTS:         res.FinalPTS,
			WeightedPTS: weighting.Apply(res.FinalPTS),
		})
		ids = append(ids, track.ID)
	}

	contribution := &model.GuestContribution{
		EventID:     s.event.ID,
		UserID:      userID,
		DisplayName: data.DisplayName,
		Fingerprint: aggregate.Fingerprint(data.ProfileID, ids),
		Tracks:      entries,
		Decay:       weighting.Info(),
		SubmittedAt: time.Now().UTC(),
	}

	if !s.agg.Submit(contribution) {
		monitoring.RecordSubmission(s.event.ID, "duplicate")
		result.Duplicate = true
		return result, nil
	}

	monitoring.RecordSubmission(s.event.ID, "accepted")
	result.Accepted = true
	result.TrackCount = len(entries)

	// 持久化副本只做审计与重启恢复，失败不影响本次提交
	if err := s.contribRepo.Save(ctx, model.RecordFromContribution(contribution)); err != nil {
		logger.Error("保存贡献记录失败",
			logger.ErrorField(err),
			logger.String("eventId", s.event.ID),
			logger.String("userId", userID))
	}

	logger.Info("来宾贡献已接收",
		logger.String("eventId", s.event.ID),
		logger.String("userId", userID),
		logger.Int("tracks", len(entries)),
		logger.String("status", string(weighting.Status)))

	return result, nil
}

// RemoveGuest 来宾退出活动，其贡献从排名池移除
func (s *Session) RemoveGuest(ctx context.Context, userID string) error {
	s.agg.Remove(userID)
	if err := s.contribRepo.DeleteByUser(ctx, s.event.ID, userID); err != nil {
		return fmt.Errorf("删除贡献记录失败: %w", err)
	}
	return nil
}

// ListGuests 活动的全部来宾到场记录
func (s *Session) ListGuests(ctx context.Context) ([]*model.GuestArrival, error) {
	return s.eventRepo.ListArrivals(ctx, s.event.ID)
}

// ContributionFor 来宾的当前贡献，未提交过时为 nil
func (s *Session) ContributionFor(userID string) *model.GuestContribution {
	return s.agg.Contribution(userID)
}

// Stats 会话运行时统计
type Stats struct {
	EventID          string `json:"eventId"`
	GuestCount       int    `json:"guestCount"`       // 登记到场的来宾数
	ContributorCount int    `json:"contributorCount"` // 有贡献计入排名池的来宾数
	PoolSize         int    `json:"poolSize"`
	QueueLength      int    `json:"queueLength"`
	LiveClients      int    `json:"liveClients"` // 在线的面板连接数
}

// RuntimeStats 当前会话统计快照
func (s *Session) RuntimeStats(ctx context.Context) Stats {
	s.poolMu.RLock()
	poolSize := len(s.pool)
	s.poolMu.RUnlock()

	return Stats{
		EventID:          s.event.ID,
		GuestCount:       s.liveGuestCount(ctx),
		ContributorCount: s.agg.GuestCount(),
		PoolSize:         poolSize,
		QueueLength:      len(s.dashboard.State().Queue),
		LiveClients:      s.hub.ClientCount(s.event.ID),
	}
}

// flattenTimeframes 把三个时间段的榜单摊平成带完整上下文的候选列表
// 未带名次的条目按列表位置补 1 起始名次
func flattenTimeframes(data *model.GuestMusicData) []model.TrackMetadata {
	saved := make(map[string]struct{}, len(data.SavedTrackIDs))
	for _, id := range data.SavedTrackIDs {
		saved[id] = struct{}{}
	}

	var candidates []model.TrackMetadata
	for _, tf := range []model.Timeframe{model.TimeframeShort, model.TimeframeMedium, model.TimeframeLong} {
		for i, track := range data.TopTracks[tf] {
			if track.Rank == 0 {
				track.Rank = i + 1
			}
			track.Timeframe = tf
			if _, ok := saved[track.ID]; ok {
				track.IsSaved = true
			}
			candidates = append(candidates, track)
		}
	}
	return candidates
}

// candidateFor 按批量结果定位对应的候选元数据
// 批量计算排序后丢失输入顺序，这里按 (trackID, rank, timeframe) 匹配
func candidateFor(candidates []model.TrackMetadata, res score.PTSResult) model.TrackMetadata {
	for _, track := range candidates {
		if track.ID == res.TrackID &&
			track.Timeframe == res.Breakdown.Timeframe &&
			track.Rank == res.Breakdown.Rank {
			return track
		}
	}
	// 名次被收敛过时退化为只按ID匹配
	for _, track := range candidates {
		if track.ID == res.TrackID {
			return track
		}
	}
	return model.TrackMetadata{ID: res.TrackID}
}

// liveGuestCount 当前来宾总数，查库失败时退化为有贡献的来宾数
func (s *Session) liveGuestCount(ctx context.Context) int {
	count, err := s.eventRepo.CountArrivals(ctx, s.event.ID)
	if err != nil || count == 0 {
		return s.agg.GuestCount()
	}
	return int(count)
}

// coverFor 曲目的默认封面URL，对象存储未启用时为空
func (s *Session) coverFor(trackID string) string {
	if s.coverURL == nil {
		return ""
	}
	return s.coverURL(s.artwork.IndexFor(trackID))
}

// ========== 排名池 ==========

// onRebuild 聚合重建完成后的回调：混音重评 -> 缓存 -> 推送
func (s *Session) onRebuild(pool []model.AggregatedTrack) {
	start := time.Now()

	rescored := s.flow.RescorePool(s.dashboard.NowPlayingFeatures(), pool)
	s.setPool(rescored)
	s.persistPool(rescored)
	s.broadcastPool(rescored)

	monitoring.RecordRebuild(s.event.ID, time.Since(start).Seconds(), len(rescored))
	logger.Debug("排名池已重建",
		logger.String("eventId", s.event.ID),
		logger.Int("size", len(rescored)))
}

// RankedPool 当前排名池
// suppressRepeats 开启时过滤回看窗口内已播放的曲目；limit <= 0 表示不截断
func (s *Session) RankedPool(limit int, suppressRepeats bool) []model.AggregatedTrack {
	s.poolMu.RLock()
	snapshot := make([]model.AggregatedTrack, len(s.pool))
	copy(snapshot, s.pool)
	s.poolMu.RUnlock()

	if suppressRepeats {
		filtered := snapshot[:0]
		for _, track := range snapshot {
			if s.dashboard.WasRecentlyPlayed(track.TrackID) {
				continue
			}
			filtered = append(filtered, track)
		}
		snapshot = filtered
	}
	if limit > 0 && len(snapshot) > limit {
		snapshot = snapshot[:limit]
	}
	return snapshot
}

func (s *Session) setPool(pool []model.AggregatedTrack) {
	s.poolMu.Lock()
	s.pool = pool
	s.poolMu.Unlock()
}

func (s *Session) persistPool(pool []model.AggregatedTrack) {
	data, err := json.Marshal(pool)
	if err != nil {
		logger.Error("序列化排名池失败", logger.ErrorField(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.dashCache.SavePool(ctx, s.event.ID, data); err != nil {
		logger.Error("缓存排名池失败",
			logger.ErrorField(err),
			logger.String("eventId", s.event.ID))
	}
}

func (s *Session) broadcastPool(pool []model.AggregatedTrack) {
	top := pool
	if s.broadcastN > 0 && len(top) > s.broadcastN {
		top = top[:s.broadcastN]
	}
	s.hub.Broadcast(s.event.ID, live.MsgTypePoolUpdate, map[string]interface{}{
		"tracks": top,
		"total":  len(pool),
	})
}

// rescoreAgainstNowPlaying 正在播放变化后对排名池重评并下发
func (s *Session) rescoreAgainstNowPlaying() {
	rescored := s.flow.RescorePool(s.dashboard.NowPlayingFeatures(), s.agg.Snapshot())
	s.setPool(rescored)
	s.persistPool(rescored)
	s.broadcastPool(rescored)
}

// ========== DJ 面板 ==========

// TapToCue 把曲目设为正在播放并对排名池重评
func (s *Session) TapToCue(track model.TrackRef, poolRank *int) model.DJDashboardState {
	if track.CoverURL == "" {
		track.CoverURL = s.coverFor(track.TrackID)
	}

	state := s.dashboard.TapToCue(track, poolRank)
	monitoring.RecordQueueOp(s.event.ID, "cue")
	s.persistState(state)

	s.hub.Broadcast(s.event.ID, live.MsgTypeNowPlaying, state.NowPlaying)
	s.rescoreAgainstNowPlaying()
	return state
}

// AddToQueue 插入 DJ 队列
func (s *Session) AddToQueue(track model.TrackRef, position *int) model.DJDashboardState {
	if track.CoverURL == "" {
		track.CoverURL = s.coverFor(track.TrackID)
	}

	state := s.dashboard.AddToQueue(track, position)
	monitoring.RecordQueueOp(s.event.ID, "add")
	s.persistState(state)
	s.broadcastQueue(state)
	return state
}

// RemoveFromQueue 从 DJ 队列移除
func (s *Session) RemoveFromQueue(trackID string) model.DJDashboardState {
	state := s.dashboard.RemoveFromQueue(trackID)
	monitoring.RecordQueueOp(s.event.ID, "remove")
	s.persistState(state)
	s.broadcastQueue(state)
	return state
}

// ReorderQueue 调整 DJ 队列位次
func (s *Session) ReorderQueue(trackID string, newPosition int) model.DJDashboardState {
	state := s.dashboard.ReorderQueue(trackID, newPosition)
	monitoring.RecordQueueOp(s.event.ID, "reorder")
	s.persistState(state)
	s.broadcastQueue(state)
	return state
}

// DashboardState 当前 DJ 面板状态快照
func (s *Session) DashboardState() model.DJDashboardState {
	return s.dashboard.State()
}

// WasRecentlyPlayed 曲目是否在回看窗口内播放过
func (s *Session) WasRecentlyPlayed(trackID string) bool {
	return s.dashboard.WasRecentlyPlayed(trackID)
}

func (s *Session) broadcastQueue(state model.DJDashboardState) {
	s.hub.Broadcast(s.event.ID, live.MsgTypeQueueUpdate, map[string]interface{}{
		"queue":     state.Queue,
		"updatedAt": state.UpdatedAt.UnixMilli(),
	})
}

func (s *Session) persistState(state model.DJDashboardState) {
	data, err := dj.SerializeState(state)
	if err != nil {
		logger.Error("序列化面板状态失败",
			logger.ErrorField(err),
			logger.String("eventId", s.event.ID))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.dashCache.SaveState(ctx, s.event.ID, data); err != nil {
		logger.Error("缓存面板状态失败",
			logger.ErrorField(err),
			logger.String("eventId", s.event.ID))
	}
}

// ========== 重启恢复 ==========

// restore 服务重启后恢复会话：面板状态来自 Redis，贡献来自数据库
func (s *Session) restore(ctx context.Context) {
	if data, err := s.dashCache.LoadState(ctx, s.event.ID); err != nil {
		logger.Warn("读取面板状态缓存失败", logger.ErrorField(err))
	} else if data != nil {
		state, err := dj.DeserializeState(data)
		if err != nil {
			logger.Error("恢复面板状态失败，保持空面板",
				logger.ErrorField(err),
				logger.String("eventId", s.event.ID))
		} else {
			s.dashboard.Restore(state)
			logger.Info("面板状态已恢复",
				logger.String("eventId", s.event.ID),
				logger.Int("queue", len(state.Queue)))
		}
	}

	// 先用缓存的排名池快照兜底，贡献恢复后的重算会覆盖它
	if data, err := s.dashCache.LoadPool(ctx, s.event.ID); err != nil {
		logger.Warn("读取排名池缓存失败", logger.ErrorField(err))
	} else if data != nil {
		var pool []model.AggregatedTrack
		if err := json.Unmarshal(data, &pool); err != nil {
			logger.Warn("解析排名池缓存失败", logger.ErrorField(err))
		} else {
			s.setPool(pool)
		}
	}

	records, err := s.contribRepo.ListByEvent(ctx, s.event.ID)
	if err != nil {
		logger.Error("恢复贡献记录失败",
			logger.ErrorField(err),
			logger.String("eventId", s.event.ID))
		return
	}
	for _, record := range records {
		s.agg.Submit(record.ToContribution())
	}
	if len(records) > 0 {
		logger.Info("贡献记录已恢复",
			logger.String("eventId", s.event.ID),
			logger.Int("guests", len(records)))
	}
}
