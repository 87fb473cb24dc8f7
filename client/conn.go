package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"wormarena/game"
	"wormarena/protocol"
)

const writeWait = 5 * time.Second

// Conn 到服务端的 WebSocket 连接：读循环把每一帧交给 Mirror，SendInput 上报方向
type Conn struct {
	ws     *websocket.Conn
	mirror *Mirror
	log    *zap.SugaredLogger

	wmu sync.Mutex // gorilla 同一时刻只允许一个写者
}

// Dial 连接服务端，例如 ws://localhost:8000/ws
func Dial(ctx context.Context, url string, mirror *Mirror, log *zap.SugaredLogger) (*Conn, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &Conn{ws: ws, mirror: mirror, log: log}, nil
}

// Run 读循环：直到连接断开或副本失步。每应用一帧调用一次 onFrame（可为 nil）。
func (c *Conn) Run(onFrame func(kind string)) error {
	for {
		kind, frame, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		t, err := c.mirror.Apply(frame)
		if err != nil {
			if errors.Is(err, ErrDesync) {
				return err
			}
			c.log.Warnw("dropping frame", "type", t, "err", err)
			continue
		}
		if onFrame != nil {
			onFrame(t)
		}
	}
}

// SendInput 上报方向，附带本地副本看到的 Tick
func (c *Conn) SendInput(dir game.Direction) error {
	var tick uint64
	c.mirror.View(func(_ game.PlayerID, st *game.State) { tick = st.TickCount() })
	frame, err := protocol.Encode(protocol.MsgInputAtTick, protocol.InputAtTick{Tick: tick, Input: game.ChangeDirection(dir)})
	if err != nil {
		return err
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.BinaryMessage, frame)
}

// Close 发送 close 帧后断开
func (c *Conn) Close() error {
	c.wmu.Lock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.wmu.Unlock()
	return c.ws.Close()
}
