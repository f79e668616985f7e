package model

import "time"

// EventSize 活动规模
type EventSize string

const (
	EventSizeSmall EventSize = "small" // 小于 SmallEventMax 人，跳过地理围栏判定
	EventSizeLarge EventSize = "large"
)

// 活动状态
const (
	EventStatusActive = "active"
	EventStatusClosed = "closed"
)

// EventConfig 活动配置，创建后在活动期间不可变
type EventConfig struct {
	ID              string     `json:"id" gorm:"primaryKey;size:36"`
	Name            string     `json:"name" gorm:"size:100;not null"`
	StartTime       time.Time  `json:"startTime" gorm:"not null"`
	EventSize       EventSize  `json:"eventSize" gorm:"size:10;default:'large'"`
	GeofenceEnabled bool       `json:"geofenceEnabled" gorm:"default:false"`
	GeofenceLat     float64    `json:"geofenceLat"`
	GeofenceLon     float64    `json:"geofenceLon"`
	GeofenceRadiusM float64    `json:"geofenceRadiusM" gorm:"default:100"`
	GentleDecayAll  bool       `json:"gentleDecayAll" gorm:"default:false"` // 对所有人使用在场衰减率
	PresentDecay    float64    `json:"presentDecay" gorm:"default:0.9"`
	AbsentDecay     float64    `json:"absentDecay" gorm:"default:0.4"`
	Status          string     `json:"status" gorm:"size:20;default:'active';index"`
	CreatedAt       time.Time  `json:"createdAt"`
	ClosedAt        *time.Time `json:"closedAt,omitempty"`
}

// TableName 指定表名
func (EventConfig) TableName() string {
	return "events"
}
