package server

import (
	"wormarena/game"
	"wormarena/protocol"
)

// Peer 某个客户端的出站端：Send 只负责入队，返回错误即视为该连接已断开
type Peer interface {
	Send(frame []byte) error
	Close() error
}

// Player 房间内的一个连接（服务端权威状态之外的会话信息）
type Player struct {
	ID game.PlayerID

	Peer    Peer                        // 出站队列（写协程）
	Inbound <-chan protocol.InputAtTick // 入站输入，读协程退出时关闭
}
