package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// WeightedTrackList 自定义类型用于 GORM JSON 字段的自动扫描
type WeightedTrackList []WeightedTrackEntry

// Scan 实现 sql.Scanner 接口
func (l *WeightedTrackList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*l = nil
		return nil
	}
	if len(bytes) == 0 || string(bytes) == "null" {
		*l = nil
		return nil
	}
	return json.Unmarshal(bytes, l)
}

// Value 实现 driver.Valuer 接口
func (l WeightedTrackList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// ContributionRecord 来宾贡献的持久化副本（审计与重启恢复用）
// 同一 (event, user) 只保留最新一条，重新提交时覆盖
type ContributionRecord struct {
	ID          int64             `json:"id" gorm:"primaryKey;autoIncrement"`
	EventID     string            `json:"eventId" gorm:"size:36;index:idx_event_user,unique;not null"`
	UserID      string            `json:"userId" gorm:"size:64;index:idx_event_user,unique;not null"`
	DisplayName string            `json:"displayName" gorm:"size:100"`
	Fingerprint string            `json:"fingerprint" gorm:"size:64;not null"`
	Tracks      WeightedTrackList `json:"tracks" gorm:"type:json"`
	CohortIndex int               `json:"cohortIndex"`
	Status      PresenceStatus    `json:"status" gorm:"size:10"`
	DecayRate   float64           `json:"decayRate"`
	SubmittedAt time.Time         `json:"submittedAt"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// TableName 指定表名
func (ContributionRecord) TableName() string {
	return "contributions"
}

// ToContribution 还原为流水线贡献结构
func (r *ContributionRecord) ToContribution() *GuestContribution {
	return &GuestContribution{
		EventID:     r.EventID,
		UserID:      r.UserID,
		DisplayName: r.DisplayName,
		Fingerprint: r.Fingerprint,
		Tracks:      r.Tracks,
		Decay: DecayInfo{
			CohortIndex: r.CohortIndex,
			Status:      r.Status,
			Rate:        r.DecayRate,
		},
		SubmittedAt: r.SubmittedAt,
	}
}

// RecordFromContribution 由流水线贡献构建持久化记录
func RecordFromContribution(c *GuestContribution) *ContributionRecord {
	return &ContributionRecord{
		EventID:     c.EventID,
		UserID:      c.UserID,
		DisplayName: c.DisplayName,
		Fingerprint: c.Fingerprint,
		Tracks:      c.Tracks,
		CohortIndex: c.Decay.CohortIndex,
		Status:      c.Decay.Status,
		DecayRate:   c.Decay.Rate,
		SubmittedAt: c.SubmittedAt,
	}
}
