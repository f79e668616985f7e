package server

import (
	"net/http"
	"net/url"

	"qrate/core/live"
	"qrate/core/session"
	"qrate/logger"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// WSHandler 面板 WebSocket 接入处理器
type WSHandler struct {
	manager  *session.Manager
	hub      *live.Hub
	upgrader websocket.Upgrader
}

// NewWSHandler 创建 WebSocket 处理器
// permissiveOrigin 为 true 时放行任意来源（开发环境），否则要求同源
func NewWSHandler(manager *session.Manager, hub *live.Hub, permissiveOrigin bool) *WSHandler {
	return &WSHandler{
		manager: manager,
		hub:     hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if permissiveOrigin {
					return true
				}
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				return err == nil && u.Host == r.Host
			},
		},
	}
}

// ServeWS 把 HTTP 连接升级为面板 WebSocket
// 接入后立刻补发一次当前排名池与面板状态，面板无需等下一次变更
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	eventID := mux.Vars(r)["id"]
	s, err := h.manager.Session(r.Context(), eventID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "内部错误")
		return
	}
	if s == nil {
		respondError(w, http.StatusNotFound, "活动不存在或已结束")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("WebSocket升级失败",
			logger.ErrorField(err),
			logger.String("eventId", eventID))
		return
	}

	client := live.NewClient(h.hub, conn, eventID)
	h.hub.Register(client)
	client.Start()

	// 接入即向新客户端补发当前状态，不打扰已在线的面板
	pool := s.RankedPool(0, true)
	client.Send(live.MsgTypePoolUpdate, map[string]interface{}{
		"tracks": pool,
		"total":  len(pool),
	})
	state := s.DashboardState()
	if state.NowPlaying != nil {
		client.Send(live.MsgTypeNowPlaying, state.NowPlaying)
	}
}
