package live

import (
	"encoding/json"
	"sync"
	"time"

	"qrate/logger"
)

// MessageType 推送消息类型
type MessageType string

const (
	MsgTypePoolUpdate  MessageType = "pool_update"  // 排名池更新
	MsgTypeNowPlaying  MessageType = "now_playing"  // 正在播放变更
	MsgTypeQueueUpdate MessageType = "queue_update" // 队列变更
	MsgTypeGuestJoin   MessageType = "guest_join"   // 来宾加入
	MsgTypeError       MessageType = "error"
	MsgTypePing        MessageType = "ping"
	MsgTypePong        MessageType = "pong"
)

// Message 推送消息结构
type Message struct {
	Type      MessageType     `json:"type"`
	EventID   string          `json:"eventId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// broadcastRequest 广播请求
type broadcastRequest struct {
	eventID string
	message []byte
}

// Hub DJ 面板 WebSocket 推送中心
// 每场活动一组客户端（DJ 面板和投屏），排名池与队列变更实时下发
type Hub struct {
	mu     sync.RWMutex
	events map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastRequest

	done chan struct{}
}

// NewHub 创建推送中心
func NewHub() *Hub {
	return &Hub{
		events:     make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *broadcastRequest, 256),
		done:       make(chan struct{}),
	}
}

// Run 启动主循环，应在独立 goroutine 中运行
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case req := <-h.broadcast:
			h.broadcastToEvent(req)

		case <-h.done:
			h.cleanup()
			return
		}
	}
}

// Stop 停止推送中心
func (h *Hub) Stop() {
	close(h.done)
}

// Register 注册客户端
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister 注销客户端
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// encodeMessage 编码一条带时间戳的推送消息
func encodeMessage(eventID string, msgType MessageType, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	msg := Message{
		Type:      msgType,
		EventID:   eventID,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
	return json.Marshal(&msg)
}

// Broadcast 向活动的全部客户端广播消息
func (h *Hub) Broadcast(eventID string, msgType MessageType, payload interface{}) {
	raw, err := encodeMessage(eventID, msgType, payload)
	if err != nil {
		logger.Error("序列化推送消息失败",
			logger.ErrorField(err),
			logger.String("type", string(msgType)))
		return
	}

	select {
	case h.broadcast <- &broadcastRequest{eventID: eventID, message: raw}:
	default:
		logger.Warn("推送通道已满，丢弃消息",
			logger.String("eventId", eventID),
			logger.String("type", string(msgType)))
	}
}

// ClientCount 活动的在线客户端数
func (h *Hub) ClientCount(eventID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.events[eventID])
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.events[client.EventID] == nil {
		h.events[client.EventID] = make(map[*Client]bool)
	}
	h.events[client.EventID][client] = true

	logger.Info("面板客户端已接入",
		logger.String("eventId", client.EventID),
		logger.Int("clients", len(h.events[client.EventID])))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.events[client.EventID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}

	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.events, client.EventID)
	}

	logger.Info("面板客户端已断开", logger.String("eventId", client.EventID))
}

func (h *Hub) broadcastToEvent(req *broadcastRequest) {
	h.mu.RLock()
	clients, ok := h.events[req.eventID]
	if !ok {
		h.mu.RUnlock()
		return
	}
	clientList := make([]*Client, 0, len(clients))
	for client := range clients {
		clientList = append(clientList, client)
	}
	h.mu.RUnlock()

	for _, client := range clientList {
		select {
		case client.send <- req.message:
		default:
			// 发送缓冲区满，视为失联并就地移除（主循环内不可回投 unregister 通道）
			h.unregisterClient(client)
		}
	}
}

func (h *Hub) cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.events {
		for client := range clients {
			close(client.send)
		}
	}
	h.events = make(map[string]map[*Client]bool)
}
