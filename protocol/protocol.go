package protocol

import (
	"github.com/vmihailenco/msgpack/v5"

	"wormarena/game"
)

// 信封类型
const (
	// Server → Client
	MsgInitialize   = "init"
	MsgDoTick       = "tick"
	MsgPlayerJoined = "join"
	MsgDisconnected = "bye"

	// Client → Server
	MsgInputAtTick = "input"
)

// Envelope 二进制帧：t 为类型，p 为 msgpack 编码的载荷
type Envelope struct {
	T string             `msgpack:"t"`
	P msgpack.RawMessage `msgpack:"p"`
}

// Initialize 新玩家的完整世界快照（含随机数种子与游标）
type Initialize struct {
	PID   game.PlayerID `msgpack:"pid"`
	World game.Snapshot `msgpack:"world"`
}

// DoTick 本周期全部输入；客户端对自己的副本重放
type DoTick struct {
	Tick   uint64                       `msgpack:"tick"`
	Inputs map[game.PlayerID]game.Input `msgpack:"inputs"`
}

// PlayerJoined 已连接客户端据此在本地副本调用 SpawnPlayer
type PlayerJoined struct {
	PID game.PlayerID `msgpack:"pid"`
}

// PlayerDisconnected 客户端据此以概率 0 移除该玩家
type PlayerDisconnected struct {
	PID game.PlayerID `msgpack:"pid"`
}

// InputAtTick 客户端输入，Tick 为客户端看到的当前 Tick
type InputAtTick struct {
	Tick  uint64     `msgpack:"tick"`
	Input game.Input `msgpack:"input"`
}
