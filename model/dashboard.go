package model

import "time"

// 选曲来源
const (
	SourceQRate   = "qrate"    // 系统推荐池中的曲目
	SourceOffBook = "off-book" // DJ 手动搜索的曲目
)

// NowPlayingTrack 当前播放曲目
type NowPlayingTrack struct {
	TrackRef
	Source    string    `json:"source"`             // qrate / off-book
	PoolRank  *int      `json:"poolRank,omitempty"` // 选中时在推荐池中的名次
	StartedAt time.Time `json:"startedAt"`
}

// QueuedTrack 队列中的曲目，Position 从 1 开始且始终连续
type QueuedTrack struct {
	TrackRef
	Position int       `json:"position"`
	AddedAt  time.Time `json:"addedAt"`
}

// PlayedTrack 历史记录中的曲目，按播放时间倒序存放
type PlayedTrack struct {
	TrackRef
	Source   string    `json:"source"`
	PlayedAt time.Time `json:"playedAt"`
}

// DJDashboardState DJ 面板状态，唯一写入方是 DJ 会话，
// 只能通过队列状态机的操作修改
type DJDashboardState struct {
	EventID     string           `json:"eventId"`
	NowPlaying  *NowPlayingTrack `json:"nowPlaying,omitempty"`
	Queue       []QueuedTrack    `json:"queue"`
	PlayHistory []PlayedTrack    `json:"playHistory"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}
