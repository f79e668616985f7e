package server

import (
	"encoding/json"
	"net/http"

	"qrate/core/session"
	"qrate/model"

	"github.com/gorilla/mux"
)

// DJHandler DJ 面板 HTTP 处理器
type DJHandler struct {
	manager *session.Manager
}

// NewDJHandler 创建 DJ 面板处理器
func NewDJHandler(manager *session.Manager) *DJHandler {
	return &DJHandler{manager: manager}
}

func (h *DJHandler) sessionFor(w http.ResponseWriter, r *http.Request) *session.Session {
	eventID := mux.Vars(r)["id"]
	s, err := h.manager.Session(r.Context(), eventID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "内部错误")
		return nil
	}
	if s == nil {
		respondError(w, http.StatusNotFound, "活动不存在或已结束")
		return nil
	}
	return s
}

// GetStateHandler 查询 DJ 面板状态
func (h *DJHandler) GetStateHandler(w http.ResponseWriter, r *http.Request) {
	s := h.sessionFor(w, r)
	if s == nil {
		return
	}
	respondJSON(w, http.StatusOK, s.DashboardState())
}

// TapToCueRequest 切歌请求
// poolRank 非空表示选自推荐池，为空表示 DJ 手动搜索
type TapToCueRequest struct {
	Track    model.TrackRef `json:"track"`
	PoolRank *int           `json:"poolRank,omitempty"`
}

// TapToCueHandler 把曲目设为正在播放
func (h *DJHandler) TapToCueHandler(w http.ResponseWriter, r *http.Request) {
	s := h.sessionFor(w, r)
	if s == nil {
		return
	}

	var req TapToCueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "无效的请求体")
		return
	}
	if req.Track.TrackID == "" {
		respondError(w, http.StatusBadRequest, "缺少曲目ID")
		return
	}

	state := s.TapToCue(req.Track, req.PoolRank)
	respondJSON(w, http.StatusOK, state)
}

// AddToQueueRequest 入队请求，position 为空时追加到队尾
type AddToQueueRequest struct {
	Track    model.TrackRef `json:"track"`
	Position *int           `json:"position,omitempty"`
}

// AddToQueueHandler 插入 DJ 队列
func (h *DJHandler) AddToQueueHandler(w http.ResponseWriter, r *http.Request) {
	s := h.sessionFor(w, r)
	if s == nil {
		return
	}

	var req AddToQueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "无效的请求体")
		return
	}
	if req.Track.TrackID == "" {
		respondError(w, http.StatusBadRequest, "缺少曲目ID")
		return
	}

	state := s.AddToQueue(req.Track, req.Position)
	respondJSON(w, http.StatusOK, state)
}

// RemoveFromQueueHandler 从 DJ 队列移除，曲目不在队列时也返回当前状态
func (h *DJHandler) RemoveFromQueueHandler(w http.ResponseWriter, r *http.Request) {
	s := h.sessionFor(w, r)
	if s == nil {
		return
	}

	trackID := mux.Vars(r)["trackId"]
	state := s.RemoveFromQueue(trackID)
	respondJSON(w, http.StatusOK, state)
}

// ReorderQueueRequest 调整位次请求，位次从 1 开始
type ReorderQueueRequest struct {
	Position int `json:"position"`
}

// ReorderQueueHandler 调整 DJ 队列位次
func (h *DJHandler) ReorderQueueHandler(w http.ResponseWriter, r *http.Request) {
	s := h.sessionFor(w, r)
	if s == nil {
		return
	}

	var req ReorderQueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "无效的请求体")
		return
	}
	if req.Position < 1 {
		respondError(w, http.StatusBadRequest, "位次必须从 1 开始")
		return
	}

	trackID := mux.Vars(r)["trackId"]
	state := s.ReorderQueue(trackID, req.Position)
	respondJSON(w, http.StatusOK, state)
}
