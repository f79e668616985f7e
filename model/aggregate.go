package model

// TrackContribution 单个来宾对某曲目的贡献
type TrackContribution struct {
	UserID      string  `json:"userId"`
	DisplayName string  `json:"displayName"`
	WeightedPTS float64 `json:"weightedPts"`
}

// AggregatedTrack 跨来宾聚合后的曲目，属于派生数据，
// 任一贡献变化后整体重建，本身不是数据源
type AggregatedTrack struct {
	TrackRef
	TotalPTS         float64             `json:"totalPts"`
	AveragePTS       float64             `json:"averagePts"`
	ContributorCount int                 `json:"contributorCount"`
	Contributions    []TrackContribution `json:"contributions"`

	// 相对当前播放曲目的混音兼容性，无音频特征时保持为空而非补零
	FlowScore  *float64 `json:"flowScore,omitempty"`
	Transition string   `json:"transition,omitempty"`
}
