package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"qrate/cache"
	"qrate/config"
	"qrate/core/aggregate"
	"qrate/core/dj"
	"qrate/core/flow"
	"qrate/core/live"
	"qrate/core/presence"
	"qrate/core/score"
	"qrate/core/vibegate"
	"qrate/logger"
	"qrate/model"
	"qrate/repository"

	"github.com/google/uuid"
)

// Manager 活动会话管理器
// 每场活动一个 Session，持有完整的评分-聚合-推送流水线
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	cfg         *config.Config
	eventRepo   repository.EventRepository
	contribRepo repository.ContributionRepository
	gate        *vibegate.Gate
	hub         *live.Hub
	dashCache   *cache.DashboardCache
	coverURL    func(index int) string // 为空时不生成封面URL
}

// NewManager 创建会话管理器
func NewManager(
	cfg *config.Config,
	eventRepo repository.EventRepository,
	contribRepo repository.ContributionRepository,
	gate *vibegate.Gate,
	hub *live.Hub,
	dashCache *cache.DashboardCache,
	coverURL func(index int) string,
) *Manager {
	return &Manager{
		sessions:    make(map[string]*Session),
		cfg:         cfg,
		eventRepo:   eventRepo,
		contribRepo: contribRepo,
		gate:        gate,
		hub:         hub,
		dashCache:   dashCache,
		coverURL:    coverURL,
	}
}

// CreateEventRequest 创建活动请求
type CreateEventRequest struct {
	Name            string          `json:"name"`
	StartTime       time.Time       `json:"startTime"`
	EventSize       model.EventSize `json:"eventSize"`      // 留空时按 ExpectedGuests 推导
	ExpectedGuests  int             `json:"expectedGuests"` // 预计来宾数
	GeofenceEnabled bool            `json:"geofenceEnabled"`
	GeofenceLat     float64         `json:"geofenceLat"`
	GeofenceLon     float64         `json:"geofenceLon"`
	GeofenceRadiusM float64         `json:"geofenceRadiusM"`
	GentleDecayAll  bool            `json:"gentleDecayAll"`
}

// CreateEvent 创建活动并打开会话
func (m *Manager) CreateEvent(ctx context.Context, req CreateEventRequest) (*model.EventConfig, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("活动名称不能为空")
	}
	if req.StartTime.IsZero() {
		req.StartTime = time.Now().UTC()
	}
	if req.EventSize != model.EventSizeSmall && req.EventSize != model.EventSizeLarge {
		// 未显式指定规模时按预计来宾数推导
		if req.ExpectedGuests > 0 && req.ExpectedGuests < m.cfg.SmallEventMax {
			req.EventSize = model.EventSizeSmall
		} else {
			req.EventSize = model.EventSizeLarge
		}
	}

	event := &model.EventConfig{
		ID:              uuid.NewString(),
		Name:            req.Name,
		StartTime:       req.StartTime.UTC(),
		EventSize:       req.EventSize,
		GeofenceEnabled: req.GeofenceEnabled,
		GeofenceLat:     req.GeofenceLat,
		GeofenceLon:     req.GeofenceLon,
		GeofenceRadiusM: req.GeofenceRadiusM,
		GentleDecayAll:  req.GentleDecayAll || m.cfg.GentleDecayAll,
		PresentDecay:    m.cfg.PresentDecayRate,
		AbsentDecay:     m.cfg.AbsentDecayRate,
		Status:          model.EventStatusActive,
		CreatedAt:       time.Now().UTC(),
	}
	if event.GeofenceRadiusM <= 0 {
		event.GeofenceRadiusM = m.cfg.GeofenceRadiusM
	}

	if err := m.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("创建活动失败: %w", err)
	}

	m.openSession(event)

	logger.Info("活动已创建",
		logger.String("eventId", event.ID),
		logger.String("name", event.Name),
		logger.String("size", string(event.EventSize)))

	return event, nil
}

// Session 获取活动会话，未在内存时从持久层恢复
func (m *Manager) Session(ctx context.Context, eventID string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[eventID]
	m.mu.RUnlock()
	if ok {
		return s, nil
	}

	event, err := m.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("查询活动失败: %w", err)
	}
	if event == nil {
		return nil, nil
	}

	s = m.openSession(event)
	s.restore(ctx)
	return s, nil
}

// openSession 构建并登记会话（幂等）
func (m *Manager) openSession(event *model.EventConfig) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sessions[event.ID]; ok {
		return existing
	}

	s := &Session{
		event:       event,
		pts:         score.NewEngine(m.cfg.RankDecayK),
		weighting:   presence.NewEngine(m.cfg.LocationStaleness),
		gate:        m.gate,
		flow:        flow.NewEngine(cache.NewBounded(576)),
		dashboard:   dj.NewDashboard(event.ID, m.cfg.RepeatWindow),
		artwork:     cache.NewArtworkCache(m.cfg.ArtworkVariants),
		coverURL:    m.coverURL,
		hub:         m.hub,
		dashCache:   m.dashCache,
		eventRepo:   m.eventRepo,
		contribRepo: m.contribRepo,
		broadcastN:  m.cfg.PoolBroadcastN,
	}
	s.agg = aggregate.NewEngine(m.cfg.AggregateDelay, s.onRebuild)
	go s.agg.Run()

	m.sessions[event.ID] = s
	return s
}

// CloseEvent 结束活动并释放会话，清掉面板与排名池缓存
func (m *Manager) CloseEvent(ctx context.Context, eventID string) error {
	exists, err := m.eventRepo.ExistsByID(ctx, eventID)
	if err != nil {
		return fmt.Errorf("查询活动失败: %w", err)
	}
	if !exists {
		return fmt.Errorf("活动不存在: %s", eventID)
	}

	m.mu.Lock()
	s, ok := m.sessions[eventID]
	delete(m.sessions, eventID)
	m.mu.Unlock()

	if ok {
		s.agg.Stop()
	}
	if err := m.eventRepo.Close(ctx, eventID); err != nil {
		return fmt.Errorf("结束活动失败: %w", err)
	}
	if err := m.dashCache.Clear(ctx, eventID); err != nil {
		logger.Warn("清除活动缓存失败",
			logger.ErrorField(err),
			logger.String("eventId", eventID))
	}

	logger.Info("活动已结束", logger.String("eventId", eventID))
	return nil
}

// Shutdown 停止全部会话
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		s.agg.Stop()
	}
	m.sessions = make(map[string]*Session)
}
