package client

import (
	"errors"
	"fmt"

	"github.com/sasha-s/go-deadlock"

	"wormarena/game"
	"wormarena/protocol"
)

var (
	// ErrDesync 收到的 DoTick 与本地副本的 Tick 不一致，只能重新连接
	ErrDesync = errors.New("client: replica out of sync")
	// ErrNotInitialized 收到 Initialize 之前不能应用其他消息
	ErrNotInitialized = errors.New("client: replica not initialized")
)

// Mirror 客户端本地副本：按服务端下发的消息流逐条重放，
// 与服务端使用同一套 game 逻辑，因此无需传输世界差量。
type Mirror struct {
	mu    deadlock.RWMutex
	pid   game.PlayerID
	state *game.State
}

func NewMirror() *Mirror { return &Mirror{} }

// Apply 解码一帧并应用到副本，返回消息类型
func (m *Mirror) Apply(frame []byte) (string, error) {
	env, err := protocol.DecodeEnvelope(frame)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	switch env.T {
	case protocol.MsgInitialize:
		msg, err := protocol.DecodePayload[protocol.Initialize](env)
		if err != nil {
			return env.T, err
		}
		st, err := game.Restore(msg.World)
		if err != nil {
			return env.T, err
		}
		m.pid, m.state = msg.PID, st
		return env.T, nil
	}

	if m.state == nil {
		return env.T, ErrNotInitialized
	}
	switch env.T {
	case protocol.MsgDoTick:
		msg, err := protocol.DecodePayload[protocol.DoTick](env)
		if err != nil {
			return env.T, err
		}
		if msg.Tick != m.state.TickCount() {
			return env.T, fmt.Errorf("%w: server tick %d, local tick %d", ErrDesync, msg.Tick, m.state.TickCount())
		}
		if _, err := m.state.Tick(msg.Inputs); err != nil {
			return env.T, err
		}
	case protocol.MsgPlayerJoined:
		msg, err := protocol.DecodePayload[protocol.PlayerJoined](env)
		if err != nil {
			return env.T, err
		}
		if err := m.state.SpawnPlayer(msg.PID); err != nil {
			return env.T, fmt.Errorf("%w: spawn %d: %v", ErrDesync, msg.PID, err)
		}
	case protocol.MsgDisconnected:
		msg, err := protocol.DecodePayload[protocol.PlayerDisconnected](env)
		if err != nil {
			return env.T, err
		}
		m.state.RemovePlayer(msg.PID, 0)
	default:
		return env.T, fmt.Errorf("client: unexpected message type %q", env.T)
	}
	return env.T, nil
}

// PID 本连接分配到的玩家 ID；ok 为 false 表示尚未初始化
func (m *Mirror) PID() (game.PlayerID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pid, m.state != nil
}

func (m *Mirror) Snapshot() (game.Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state == nil {
		return game.Snapshot{}, false
	}
	return m.state.Snapshot(), true
}

// View 在读锁内访问副本，fn 不得保留或修改 state
func (m *Mirror) View(fn func(pid game.PlayerID, st *game.State)) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state == nil {
		return false
	}
	fn(m.pid, m.state)
	return true
}
