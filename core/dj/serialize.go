package dj

import (
	"encoding/json"
	"fmt"
	"time"

	"qrate/model"
)

// 持久化表示：时间戳统一为 Unix 毫秒，往返精确到毫秒
// 反序列化失败必须响亮报错，时间戳猜不得

type trackRefDTO struct {
	TrackID  string               `json:"trackId"`
	Name     string               `json:"name"`
	Artist   string               `json:"artist"`
	Album    string               `json:"album,omitempty"`
	CoverURL string               `json:"coverUrl,omitempty"`
	Features *model.AudioFeatures `json:"features,omitempty"`
}

type nowPlayingDTO struct {
	trackRefDTO
	Source    string `json:"source"`
	PoolRank  *int   `json:"poolRank,omitempty"`
	StartedAt int64  `json:"startedAt"`
}

type queuedDTO struct {
	trackRefDTO
	Position int   `json:"position"`
	AddedAt  int64 `json:"addedAt"`
}

type playedDTO struct {
	trackRefDTO
	Source   string `json:"source"`
	PlayedAt int64  `json:"playedAt"`
}

type dashboardDTO struct {
	Version     int            `json:"version"`
	EventID     string         `json:"eventId"`
	NowPlaying  *nowPlayingDTO `json:"nowPlaying,omitempty"`
	Queue       []queuedDTO    `json:"queue"`
	PlayHistory []playedDTO    `json:"playHistory"`
	UpdatedAt   int64          `json:"updatedAt"`
}

const serializeVersion = 1

func toRefDTO(ref model.TrackRef) trackRefDTO {
	return trackRefDTO{
		TrackID:  ref.TrackID,
		Name:     ref.Name,
		Artist:   ref.Artist,
		Album:    ref.Album,
		CoverURL: ref.CoverURL,
		Features: ref.Features,
	}
}

func fromRefDTO(dto trackRefDTO) model.TrackRef {
	return model.TrackRef{
		TrackID:  dto.TrackID,
		Name:     dto.Name,
		Artist:   dto.Artist,
		Album:    dto.Album,
		CoverURL: dto.CoverURL,
		Features: dto.Features,
	}
}

func msToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// SerializeState 序列化 DJ 面板状态
func SerializeState(state model.DJDashboardState) ([]byte, error) {
	dto := dashboardDTO{
		Version:     serializeVersion,
		EventID:     state.EventID,
		Queue:       make([]queuedDTO, 0, len(state.Queue)),
		PlayHistory: make([]playedDTO, 0, len(state.PlayHistory)),
		UpdatedAt:   state.UpdatedAt.UnixMilli(),
	}

	if state.NowPlaying != nil {
		dto.NowPlaying = &nowPlayingDTO{
			trackRefDTO: toRefDTO(state.NowPlaying.TrackRef),
			Source:      state.NowPlaying.Source,
			PoolRank:    state.NowPlaying.PoolRank,
			StartedAt:   state.NowPlaying.StartedAt.UnixMilli(),
		}
	}
	for _, entry := range state.Queue {
		dto.Queue = append(dto.Queue, queuedDTO{
			trackRefDTO: toRefDTO(entry.TrackRef),
			Position:    entry.Position,
			AddedAt:     entry.AddedAt.UnixMilli(),
		})
	}
	for _, played := range state.PlayHistory {
		dto.PlayHistory = append(dto.PlayHistory, playedDTO{
			trackRefDTO: toRefDTO(played.TrackRef),
			Source:      played.Source,
			PlayedAt:    played.PlayedAt.UnixMilli(),
		})
	}

	data, err := json.Marshal(dto)
	if err != nil {
		return nil, fmt.Errorf("序列化面板状态失败: %w", err)
	}
	return data, nil
}

// DeserializeState 反序列化 DJ 面板状态
// 格式错误直接报错，绝不静默补默认值
func DeserializeState(data []byte) (model.DJDashboardState, error) {
	var dto dashboardDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return model.DJDashboardState{}, fmt.Errorf("反序列化面板状态失败: %w", err)
	}
	if dto.Version != serializeVersion {
		return model.DJDashboardState{}, fmt.Errorf("不支持的面板状态版本: %d", dto.Version)
	}
	if dto.EventID == "" {
		return model.DJDashboardState{}, fmt.Errorf("面板状态缺少活动ID")
	}

	state := model.DJDashboardState{
		EventID:     dto.EventID,
		Queue:       make([]model.QueuedTrack, 0, len(dto.Queue)),
		PlayHistory: make([]model.PlayedTrack, 0, len(dto.PlayHistory)),
		UpdatedAt:   msToTime(dto.UpdatedAt),
	}

	if dto.NowPlaying != nil {
		state.NowPlaying = &model.NowPlayingTrack{
			TrackRef:  fromRefDTO(dto.NowPlaying.trackRefDTO),
			Source:    dto.NowPlaying.Source,
			PoolRank:  dto.NowPlaying.PoolRank,
			StartedAt: msToTime(dto.NowPlaying.StartedAt),
		}
	}
	for _, entry := range dto.Queue {
		state.Queue = append(state.Queue, model.QueuedTrack{
			TrackRef: fromRefDTO(entry.trackRefDTO),
			Position: entry.Position,
			AddedAt:  msToTime(entry.AddedAt),
		})
	}
	for _, played := range dto.PlayHistory {
		state.PlayHistory = append(state.PlayHistory, model.PlayedTrack{
			TrackRef: fromRefDTO(played.trackRefDTO),
			Source:   played.Source,
			PlayedAt: msToTime(played.PlayedAt),
		})
	}
	return state, nil
}
