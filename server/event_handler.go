package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"qrate/core/session"
	"qrate/logger"
	"qrate/model"

	"github.com/gorilla/mux"
)

// EventHandler 活动与来宾 HTTP 处理器
type EventHandler struct {
	manager *session.Manager
}

// NewEventHandler 创建活动处理器
func NewEventHandler(manager *session.Manager) *EventHandler {
	return &EventHandler{manager: manager}
}

// respondJSON 写出 JSON 响应
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("写出响应失败", logger.ErrorField(err))
	}
}

// respondError 写出错误响应
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// sessionFor 解析路径中的活动ID并取会话，失败时已写出响应
func (h *EventHandler) sessionFor(w http.ResponseWriter, r *http.Request) *session.Session {
	eventID := mux.Vars(r)["id"]
	s, err := h.manager.Session(r.Context(), eventID)
	if err != nil {
		logger.Error("获取活动会话失败",
			logger.ErrorField(err),
			logger.String("eventId", eventID))
		respondError(w, http.StatusInternalServerError, "内部错误")
		return nil
	}
	if s == nil {
		respondError(w, http.StatusNotFound, "活动不存在或已结束")
		return nil
	}
	return s
}

// CreateEventHandler 创建活动
func (h *EventHandler) CreateEventHandler(w http.ResponseWriter, r *http.Request) {
	var req session.CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "无效的请求体")
		return
	}

	event, err := h.manager.CreateEvent(r.Context(), req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, event)
}

// GetEventHandler 查询活动配置
func (h *EventHandler) GetEventHandler(w http.ResponseWriter, r *http.Request) {
	s := h.sessionFor(w, r)
	if s == nil {
		return
	}
	respondJSON(w, http.StatusOK, s.Event())
}

// CloseEventHandler 结束活动
func (h *EventHandler) CloseEventHandler(w http.ResponseWriter, r *http.Request) {
	eventID := mux.Vars(r)["id"]
	if err := h.manager.CloseEvent(r.Context(), eventID); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

// JoinEventRequest 来宾加入请求
type JoinEventRequest struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

// JoinEventHandler 来宾加入活动
func (h *EventHandler) JoinEventHandler(w http.ResponseWriter, r *http.Request) {
	s := h.sessionFor(w, r)
	if s == nil {
		return
	}

	var req JoinEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "无效的请求体")
		return
	}

	arrival, err := s.JoinGuest(r.Context(), req.UserID, req.DisplayName)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, arrival)
}

// UpdateLocationRequest 位置上报请求
type UpdateLocationRequest struct {
	UserID    string  `json:"userId"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// UpdateLocationHandler 来宾位置上报
func (h *EventHandler) UpdateLocationHandler(w http.ResponseWriter, r *http.Request) {
	s := h.sessionFor(w, r)
	if s == nil {
		return
	}

	var req UpdateLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "无效的请求体")
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "缺少来宾ID")
		return
	}

	if err := s.UpdateLocation(r.Context(), req.UserID, req.Latitude, req.Longitude); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SubmitMusicRequest 音乐数据提交请求
type SubmitMusicRequest struct {
	UserID string                `json:"userId"`
	Data   *model.GuestMusicData `json:"data"`
}

// SubmitMusicHandler 来宾提交音乐数据
// 校验失败返回 422 并携带校验明细；重复提交返回 200 且 accepted=false
func (h *EventHandler) SubmitMusicHandler(w http.ResponseWriter, r *http.Request) {
	s := h.sessionFor(w, r)
	if s == nil {
		return
	}

	var req SubmitMusicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "无效的请求体")
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "缺少来宾ID")
		return
	}

	result, err := s.Submit(r.Context(), req.UserID, req.Data)
	if err != nil {
		logger.Error("处理音乐提交失败",
			logger.ErrorField(err),
			logger.String("userId", req.UserID))
		respondError(w, http.StatusInternalServerError, "内部错误")
		return
	}
	if !result.Validation.Valid {
		respondJSON(w, http.StatusUnprocessableEntity, result)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetSubmissionHandler 查询来宾当前计入排名池的贡献
func (h *EventHandler) GetSubmissionHandler(w http.ResponseWriter, r *http.Request) {
	s := h.sessionFor(w, r)
	if s == nil {
		return
	}

	userID := mux.Vars(r)["userId"]
	contribution := s.ContributionFor(userID)
	if contribution == nil {
		respondError(w, http.StatusNotFound, "来宾尚未提交")
		return
	}
	respondJSON(w, http.StatusOK, contribution)
}

// ListGuestsHandler 列出活动来宾
func (h *EventHandler) ListGuestsHandler(w http.ResponseWriter, r *http.Request) {
	s := h.sessionFor(w, r)
	if s == nil {
		return
	}

	guests, err := s.ListGuests(r.Context())
	if err != nil {
		logger.Error("查询来宾列表失败", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "内部错误")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"guests": guests,
		"total":  len(guests),
	})
}

// RemoveGuestHandler 来宾退出活动，其贡献从排名池移除
func (h *EventHandler) RemoveGuestHandler(w http.ResponseWriter, r *http.Request) {
	s := h.sessionFor(w, r)
	if s == nil {
		return
	}

	userID := mux.Vars(r)["userId"]
	if err := s.RemoveGuest(r.Context(), userID); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// GetStatsHandler 查询会话运行时统计
func (h *EventHandler) GetStatsHandler(w http.ResponseWriter, r *http.Request) {
	s := h.sessionFor(w, r)
	if s == nil {
		return
	}
	respondJSON(w, http.StatusOK, s.RuntimeStats(r.Context()))
}

// GetPoolHandler 查询当前排名池
// limit 限制返回条数；suppressRepeats=false 时包含近期已播放的曲目
func (h *EventHandler) GetPoolHandler(w http.ResponseWriter, r *http.Request) {
	s := h.sessionFor(w, r)
	if s == nil {
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	suppress := true
	if v := r.URL.Query().Get("suppressRepeats"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			suppress = b
		}
	}

	pool := s.RankedPool(limit, suppress)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"eventId": s.Event().ID,
		"tracks":  pool,
		"total":   len(pool),
	})
}
