package model

import "time"

// PresenceStatus 来宾在场状态
type PresenceStatus string

const (
	PresencePresent PresenceStatus = "present"
	PresenceAbsent  PresenceStatus = "absent"
	PresenceUnknown PresenceStatus = "unknown"
)

// GuestArrival 来宾到场记录（持久化）
// CohortIndex 由 ArrivalTime 相对活动开始时间推导，不单独修改
type GuestArrival struct {
	ID          int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	EventID     string     `json:"eventId" gorm:"size:36;uniqueIndex:idx_event_user;not null"`
	UserID      string     `json:"userId" gorm:"size:64;uniqueIndex:idx_event_user;not null"`
	DisplayName string     `json:"displayName" gorm:"size:100"`
	ArrivalTime time.Time  `json:"arrivalTime" gorm:"not null"`
	CohortIndex int        `json:"cohortIndex"` // 到场时间相对活动开始的整小时桶，0 = 开始前或准点
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`
	LocatedAt   *time.Time `json:"locatedAt,omitempty"` // 最后一次位置上报时间
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// TableName 指定表名
func (GuestArrival) TableName() string {
	return "guest_arrivals"
}

// CohortFor 计算到场时间所属的小时桶
func CohortFor(start, arrival time.Time) int {
	if !arrival.After(start) {
		return 0
	}
	return int(arrival.Sub(start) / time.Hour)
}

// ========== 边界输入（音乐数据提供方） ==========

// GuestMusicData 来宾原始音乐数据，由外部提供方拉取后投递
// 三个时间段的榜单均已按 1..N 预排名
type GuestMusicData struct {
	ProfileID         string                        `json:"profileId"`
	DisplayName       string                        `json:"displayName"`
	TopTracks         map[Timeframe][]TrackMetadata `json:"topTracks"`
	SavedTrackIDs     []string                      `json:"savedTrackIds,omitempty"`
	FollowedArtistIDs []string                      `json:"followedArtistIds,omitempty"`
}

// ValidationResult 输入校验结果，校验失败不抛错，由调用方决定是否降级处理
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Validate 校验来宾音乐数据：缺少 profile 或三个榜单全空则拒绝；
// 缺少收藏数据可以容忍，收藏加成不生效而已
func (d *GuestMusicData) Validate() ValidationResult {
	var errs []string
	if d == nil || d.ProfileID == "" {
		errs = append(errs, "missing profile id")
	}
	if d != nil {
		total := 0
		for _, tracks := range d.TopTracks {
			total += len(tracks)
		}
		if total == 0 {
			errs = append(errs, "all timeframe track lists are empty")
		}
	}
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// ========== 加权贡献（流水线输出） ==========

// WeightedTrackEntry 贡献中的单条加权曲目
type WeightedTrackEntry struct {
	TrackID     string         `json:"trackId"`
	Name        string         `json:"name"`
	Artist      string         `json:"artist"`
	Album       string         `json:"album,omitempty"`
	CoverURL    string         `json:"coverUrl,omitempty"`
	Features    *AudioFeatures `json:"features,omitempty"`
	Rank        int            `json:"rank"`
	Timeframe   Timeframe      `json:"timeframe"`
	IsSaved     bool           `json:"isSaved"`
	PTS         float64        `json:"pts"`
	WeightedPTS float64        `json:"weightedPts"`
}

// DecayInfo 衰减计算的审计信息
type DecayInfo struct {
	CohortIndex int            `json:"cohortIndex"`
	Status      PresenceStatus `json:"status"`
	Hours       float64        `json:"hours"`
	Rate        float64        `json:"rate"`
	Multiplier  float64        `json:"multiplier"`
}

// GuestContribution 一位来宾对一场活动的完整贡献
// 重新提交时整体替换而非合并，Fingerprint 用于识别无变化的重复提交
type GuestContribution struct {
	EventID     string               `json:"eventId"`
	UserID      string               `json:"userId"`
	DisplayName string               `json:"displayName"`
	Fingerprint string               `json:"fingerprint"`
	Tracks      []WeightedTrackEntry `json:"tracks"`
	Decay       DecayInfo            `json:"decay"`
	SubmittedAt time.Time            `json:"submittedAt"`
}
