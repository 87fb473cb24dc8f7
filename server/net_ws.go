package server

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"wormarena/protocol"
)

var (
	// ErrPeerClosed 连接已关闭，后续 Send 一律失败
	ErrPeerClosed = errors.New("server: peer closed")
	// ErrPeerStalled 出站队列已满：客户端跟不上，缺帧后无法回放，只能断开
	ErrPeerStalled = errors.New("server: peer outbound queue full")
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 1 << 16
	inboundSize    = 16
)

// ClientConn 一个 WebSocket 连接：出站队列 + 读写两个协程
type ClientConn struct {
	id string
	ws *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool

	inbound chan protocol.InputAtTick
	metrics *RoomMetrics
}

func NewClientConn(ws *websocket.Conn, outboxSize int, metrics *RoomMetrics) *ClientConn {
	if outboxSize <= 0 {
		outboxSize = 256
	}
	if metrics == nil {
		metrics = &RoomMetrics{}
	}
	return &ClientConn{
		id:      uuid.NewString(),
		ws:      ws,
		send:    make(chan []byte, outboxSize),
		inbound: make(chan protocol.InputAtTick, inboundSize),
		metrics: metrics,
	}
}

func (c *ClientConn) ID() string { return c.id }

// Send 非阻塞入队；队列满返回 ErrPeerStalled，由房间移除该连接
func (c *ClientConn) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrPeerClosed
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return ErrPeerStalled
	}
}

// Close 关闭发送队列，写协程发出 close 帧后退出；可重复调用
func (c *ClientConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.send)
	return nil
}

// writePump 独立协程，负责从 send 队列写出到 WS，并定期发送 ping
func (c *ClientConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.ws.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				Log.Debugw("ws write failed", "conn", c.id, "err", err)
				_ = c.Close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.Close()
				return
			}
		}
	}
}

// readPump 读取客户端输入并转交房间；无法解码的帧静默丢弃。
// 退出时关闭入站队列，房间在下一个 Tick 收集输入时移除该玩家。
func (c *ClientConn) readPump() {
	defer func() {
		close(c.inbound)
		_ = c.Close()
		_ = c.ws.Close()
	}()
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				Log.Infow("ws read failed", "conn", c.id, "err", err)
			}
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		in, err := decodeInput(payload)
		if err != nil {
			Log.Debugw("dropping undecodable frame", "conn", c.id, "err", err)
			continue
		}
		c.forward(in)
	}
}

// forward 入站队列满时丢弃最旧的一条，保留最新意图
func (c *ClientConn) forward(in protocol.InputAtTick) {
	for {
		select {
		case c.inbound <- in:
			return
		default:
		}
		select {
		case <-c.inbound:
			c.metrics.IncInputsDropped()
		default:
		}
	}
}

func decodeInput(payload []byte) (protocol.InputAtTick, error) {
	env, err := protocol.DecodeEnvelope(payload)
	if err != nil {
		return protocol.InputAtTick{}, err
	}
	if env.T != protocol.MsgInputAtTick {
		return protocol.InputAtTick{}, errors.New("unexpected message type " + env.T)
	}
	return protocol.DecodePayload[protocol.InputAtTick](env)
}

// originAllowed 浏览器请求的 Origin 必须在白名单内；"*" 放行所有来源。
// 没有 Origin 头的请求（终端客户端等非浏览器）直接放行。
func originAllowed(origins []string, r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range origins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// HandleWS WebSocket 接入：升级后把连接交给房间，房间分配玩家 ID 并下发初始快照
func HandleWS(room *Room, outboxSize int, origins []string) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return originAllowed(origins, r) },
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			Log.Warnw("ws upgrade failed", "remote", r.RemoteAddr, "err", err)
			return
		}
		c := NewClientConn(ws, outboxSize, room.Metrics())
		go c.writePump()

		if err := room.Join(r.Context(), c, c.inbound); err != nil {
			Log.Warnw("join failed", "conn", c.ID(), "err", err)
			close(c.inbound)
			_ = c.Close()
			return
		}
		Log.Infow("ws connected", "conn", c.ID(), "remote", r.RemoteAddr)
		go c.readPump()
	}
}
