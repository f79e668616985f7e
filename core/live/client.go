package live

import (
	"encoding/json"
	"time"

	"qrate/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client 一个已接入的面板 WebSocket 连接
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	EventID string
}

// NewClient 创建客户端
func NewClient(hub *Hub, conn *websocket.Conn, eventID string) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, 64),
		EventID: eventID,
	}
}

// Start 启动读写泵
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// Send 仅向本客户端投递一条消息，缓冲区满时丢弃
func (c *Client) Send(msgType MessageType, payload interface{}) {
	raw, err := encodeMessage(c.EventID, msgType, payload)
	if err != nil {
		logger.Error("序列化推送消息失败",
			logger.ErrorField(err),
			logger.String("type", string(msgType)))
		return
	}

	select {
	case c.send <- raw:
	default:
		logger.Warn("客户端发送缓冲区已满，丢弃消息",
			logger.String("eventId", c.EventID),
			logger.String("type", string(msgType)))
	}
}

// readPump 读取客户端消息，面板客户端只发心跳
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("面板连接异常断开",
					logger.ErrorField(err),
					logger.String("eventId", c.EventID))
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		if msg.Type == MsgTypePing {
			pong, _ := json.Marshal(&Message{Type: MsgTypePong, Timestamp: time.Now().UnixMilli()})
			select {
			case c.send <- pong:
			default:
			}
		}
	}
}

// writePump 向客户端写消息并维持心跳
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
