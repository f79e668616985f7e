package repository

import (
	"context"

	"qrate/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ContributionRepository 来宾贡献的持久化副本访问接口
// 聚合引擎以内存为准，这里只做审计与重启恢复
type ContributionRepository interface {
	Save(ctx context.Context, record *model.ContributionRecord) error
	ListByEvent(ctx context.Context, eventID string) ([]*model.ContributionRecord, error)
	DeleteByUser(ctx context.Context, eventID, userID string) error
}

// gormContributionRepository GORM 实现
type gormContributionRepository struct {
	db *gorm.DB
}

// NewGormContributionRepository 创建 GORM 贡献仓库
func NewGormContributionRepository(db *gorm.DB) ContributionRepository {
	return &gormContributionRepository{db: db}
}

// Save 保存贡献记录，同一 (event, user) 覆盖旧记录
func (r *gormContributionRepository) Save(ctx context.Context, record *model.ContributionRecord) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "event_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"display_name", "fingerprint", "tracks",
				"cohort_index", "status", "decay_rate", "submitted_at", "updated_at",
			}),
		}).
		Create(record).Error
}

// ListByEvent 列出活动的全部贡献记录
func (r *gormContributionRepository) ListByEvent(ctx context.Context, eventID string) ([]*model.ContributionRecord, error) {
	var records []*model.ContributionRecord
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("submitted_at ASC").
		Find(&records).Error
	return records, err
}

// DeleteByUser 删除来宾在活动中的贡献记录
func (r *gormContributionRepository) DeleteByUser(ctx context.Context, eventID, userID string) error {
	return r.db.WithContext(ctx).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Delete(&model.ContributionRecord{}).Error
}
