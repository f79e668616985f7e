package repository

import (
	"context"
	"time"

	"qrate/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventRepository 活动与来宾到场数据访问接口
type EventRepository interface {
	// 活动
	Create(ctx context.Context, event *model.EventConfig) error
	GetByID(ctx context.Context, id string) (*model.EventConfig, error)
	Close(ctx context.Context, id string) error
	ExistsByID(ctx context.Context, id string) (bool, error)

	// 来宾到场
	UpsertArrival(ctx context.Context, arrival *model.GuestArrival) error
	GetArrival(ctx context.Context, eventID, userID string) (*model.GuestArrival, error)
	ListArrivals(ctx context.Context, eventID string) ([]*model.GuestArrival, error)
	CountArrivals(ctx context.Context, eventID string) (int64, error)
	UpdateLocation(ctx context.Context, eventID, userID string, lat, lon float64, locatedAt time.Time) error
}

// gormEventRepository GORM 实现
type gormEventRepository struct {
	db *gorm.DB
}

// NewGormEventRepository 创建 GORM 活动仓库
func NewGormEventRepository(db *gorm.DB) EventRepository {
	return &gormEventRepository{db: db}
}

// ========== 活动 ==========

// Create 创建活动
func (r *gormEventRepository) Create(ctx context.Context, event *model.EventConfig) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// GetByID 根据ID获取进行中的活动
func (r *gormEventRepository) GetByID(ctx context.Context, id string) (*model.EventConfig, error) {
	var event model.EventConfig
	err := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, model.EventStatusActive).
		First(&event).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

// Close 结束活动
func (r *gormEventRepository) Close(ctx context.Context, id string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&model.EventConfig{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":    model.EventStatusClosed,
			"closed_at": now,
		}).Error
}

// ExistsByID 检查活动ID是否存在
func (r *gormEventRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.EventConfig{}).
		Where("id = ?", id).
		Count(&count).Error
	return count > 0, err
}

// ========== 来宾到场 ==========

// UpsertArrival 写入来宾到场记录，同一 (event, user) 重复加入时更新
func (r *gormEventRepository) UpsertArrival(ctx context.Context, arrival *model.GuestArrival) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name", "updated_at"}),
		}).
		Create(arrival).Error
}

// GetArrival 获取来宾到场记录
func (r *gormEventRepository) GetArrival(ctx context.Context, eventID, userID string) (*model.GuestArrival, error) {
	var arrival model.GuestArrival
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		First(&arrival).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &arrival, nil
}

// ListArrivals 列出活动全部来宾
func (r *gormEventRepository) ListArrivals(ctx context.Context, eventID string) ([]*model.GuestArrival, error) {
	var arrivals []*model.GuestArrival
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("arrival_time ASC").
		Find(&arrivals).Error
	return arrivals, err
}

// CountArrivals 统计活动来宾数
func (r *gormEventRepository) CountArrivals(ctx context.Context, eventID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.GuestArrival{}).
		Where("event_id = ?", eventID).
		Count(&count).Error
	return count, err
}

// UpdateLocation 更新来宾位置上报
func (r *gormEventRepository) UpdateLocation(ctx context.Context, eventID, userID string, lat, lon float64, locatedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&model.GuestArrival{}).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Updates(map[string]interface{}{
			"latitude":   lat,
			"longitude":  lon,
			"located_at": locatedAt,
		}).Error
}
