package server

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"wormarena/game"
	"wormarena/protocol"
)

var (
	// ErrRoomClosed 房间 actor 已退出，查询或加入无法完成
	ErrRoomClosed = errors.New("server: room closed")

	errInboundClosed = errors.New("inbound queue closed")
)

// 发往 actor 的内部消息
type (
	playerConnected struct {
		peer    Peer
		inbound <-chan protocol.InputAtTick
	}
	doTick     struct{}
	stateQuery struct {
		reply chan<- string
	}
)

// Room 会话 actor：唯一持有 game.State 的协程，所有修改都经由 inbox 串行处理。
// 输入、Tick、调试查询的生产者只负责投递，从不直接接触世界状态。
type Room struct {
	inbox chan any
	quit  chan struct{}
	done  chan struct{}

	stopOnce   sync.Once
	tickerOnce sync.Once

	cfg     RoomConfig
	state   *game.State
	nextPID game.PlayerID
	players map[game.PlayerID]*Player
	inputs  map[game.PlayerID]game.Input

	// 本条消息处理完后再移除的连接
	dropping map[game.PlayerID]error
	dropped  []game.PlayerID

	metrics *RoomMetrics
}

// NewRoom 创建房间与世界，需调用 Run 启动 actor
func NewRoom(cfg RoomConfig) *Room {
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = DefaultRoomConfig().InboxSize
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	return &Room{
		inbox:    make(chan any, cfg.InboxSize),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		cfg:      cfg,
		state:    game.NewState(cfg.Width, cfg.Height, game.SeedRNGFromUint64(cfg.Seed)),
		players:  make(map[game.PlayerID]*Player),
		inputs:   make(map[game.PlayerID]game.Input),
		dropping: make(map[game.PlayerID]error),
		metrics:  &RoomMetrics{},
	}
}

func (r *Room) Metrics() *RoomMetrics { return r.metrics }

// Done 在 actor 退出后关闭
func (r *Room) Done() <-chan struct{} { return r.done }

// Stop 结束 actor 与 Tick 循环，可重复调用
func (r *Room) Stop() {
	r.stopOnce.Do(func() { close(r.quit) })
}

// Run actor 主循环：一次处理一条消息，Tick 不可中断、不会重叠
func (r *Room) Run() {
	defer close(r.done)
	Log.Infow("room started", "board", fmt.Sprintf("%dx%d", r.cfg.Width, r.cfg.Height),
		"seed", fmt.Sprintf("%#x", r.cfg.Seed), "tick", r.cfg.TickInterval)
	for {
		select {
		case <-r.quit:
			for _, pid := range r.playerIDs() {
				_ = r.players[pid].Peer.Close()
			}
			Log.Infow("room stopped", "tick", r.state.TickCount())
			return
		case msg := <-r.inbox:
			r.handle(msg)
			r.flushRemovals()
		}
	}
}

// Join 投递新连接；仅在 inbox 满时阻塞
func (r *Room) Join(ctx context.Context, peer Peer, inbound <-chan protocol.InputAtTick) error {
	return r.post(ctx, playerConnected{peer: peer, inbound: inbound})
}

// RequestTick 由定时器调用，不阻塞；inbox 满时丢弃本次 Tick
func (r *Room) RequestTick() {
	select {
	case r.inbox <- doTick{}:
	default:
		r.metrics.IncTicksDropped()
	}
}

// CurrentState 调试用：返回当前时刻的文本快照，不修改状态
func (r *Room) CurrentState(ctx context.Context) (string, error) {
	reply := make(chan string, 1)
	if err := r.post(ctx, stateQuery{reply: reply}); err != nil {
		return "", err
	}
	select {
	case s := <-reply:
		return s, nil
	case <-r.done:
		return "", ErrRoomClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (r *Room) post(ctx context.Context, msg any) error {
	select {
	case <-r.done:
		return ErrRoomClosed
	case <-r.quit:
		return ErrRoomClosed
	default:
	}
	select {
	case r.inbox <- msg:
		return nil
	case <-r.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Room) handle(msg any) {
	switch m := msg.(type) {
	case playerConnected:
		r.onConnect(m)
	case doTick:
		r.onTick()
	case stateQuery:
		m.reply <- r.dump()
	default:
		Log.Warnw("room: unknown message", "type", fmt.Sprintf("%T", msg))
	}
}

// onConnect 分配 ID、出生、下发快照；其他连接收到 PlayerJoined（或完整快照）
func (r *Room) onConnect(m playerConnected) {
	pid := r.nextPID
	r.nextPID++
	if err := r.state.SpawnPlayer(pid); err != nil {
		r.fatal(fmt.Errorf("spawn player %d: %w", pid, err))
	}
	r.metrics.IncJoins()

	if r.cfg.ResyncOnJoin {
		for _, other := range r.playerIDs() {
			r.sendTo(other, r.encode(protocol.MsgInitialize, protocol.Initialize{PID: other, World: r.state.Snapshot()}))
		}
	} else {
		r.broadcast(r.encode(protocol.MsgPlayerJoined, protocol.PlayerJoined{PID: pid}))
	}

	r.players[pid] = &Player{ID: pid, Peer: m.peer, Inbound: m.inbound}
	r.metrics.SetPlayers(len(r.players))
	r.sendTo(pid, r.encode(protocol.MsgInitialize, protocol.Initialize{PID: pid, World: r.state.Snapshot()}))
	Log.Infow("player connected", "pid", pid, "players", len(r.players), "tick", r.state.TickCount())
}

// onTick 收集输入 → 先广播 DoTick（携带推进前的 Tick 号）→ 推进世界
func (r *Room) onTick() {
	if len(r.players) == 0 {
		return
	}
	start := time.Now()
	r.drainInputs()

	r.broadcast(r.encode(protocol.MsgDoTick, protocol.DoTick{Tick: r.state.TickCount(), Inputs: r.inputs}))

	events, err := r.state.Tick(r.inputs)
	if err != nil {
		r.fatal(err)
	}
	for _, e := range events {
		switch e.Kind {
		case game.PlayerDied:
			r.metrics.IncDeaths()
			Log.Infow("player died", "pid", e.Player, "tick", r.state.TickCount())
		case game.PlayerAteFood:
			r.metrics.IncFoodEaten()
			Log.Debugw("player ate food", "pid", e.Player, "at", e.At.String())
		}
	}
	r.inputs = make(map[game.PlayerID]game.Input)
	r.metrics.AddTick(time.Since(start).Nanoseconds())
}

func (r *Room) encode(t string, payload any) []byte {
	b, err := protocol.Encode(t, payload)
	if err != nil {
		r.fatal(err)
	}
	return b
}

func (r *Room) broadcast(frame []byte) {
	for _, pid := range r.playerIDs() {
		r.sendTo(pid, frame)
	}
}

// sendTo 发送失败只影响该连接：标记移除，其余连接照常投递
func (r *Room) sendTo(pid game.PlayerID, frame []byte) {
	p, ok := r.players[pid]
	if !ok {
		return
	}
	if _, gone := r.dropping[pid]; gone {
		return
	}
	if err := p.Peer.Send(frame); err != nil {
		r.markDropped(pid, err)
	}
}

func (r *Room) markDropped(pid game.PlayerID, reason error) {
	if _, ok := r.dropping[pid]; ok {
		return
	}
	r.dropping[pid] = reason
	r.dropped = append(r.dropped, pid)
}

// flushRemovals 当前消息处理完毕后移除失败的连接，并通知其余连接
func (r *Room) flushRemovals() {
	for len(r.dropped) > 0 {
		pid := r.dropped[0]
		r.dropped = r.dropped[1:]
		reason := r.dropping[pid]
		delete(r.dropping, pid)

		p, ok := r.players[pid]
		if !ok {
			continue
		}
		delete(r.players, pid)
		delete(r.inputs, pid)
		_ = p.Peer.Close()
		r.state.RemovePlayer(pid, 0)
		r.metrics.IncPeersDropped()
		r.metrics.SetPlayers(len(r.players))
		Log.Infow("player disconnected", "pid", pid, "reason", reason, "players", len(r.players))

		// 这里失败的连接会进入同一个循环被移除
		r.broadcast(r.encode(protocol.MsgDisconnected, protocol.PlayerDisconnected{PID: pid}))
	}
}

// fatal 世界不变量被破坏（如棋盘已满）：记录后终止
func (r *Room) fatal(err error) {
	Log.Errorw("room invariant violated", "err", err, "tick", r.state.TickCount())
	panic(err)
}

func (r *Room) playerIDs() []game.PlayerID {
	ids := make([]game.PlayerID, 0, len(r.players))
	for pid := range r.players {
		ids = append(ids, pid)
	}
	slices.Sort(ids)
	return ids
}

func (r *Room) dump() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "connected=%v next_pid=%d pending_inputs=%d\n", r.playerIDs(), r.nextPID, len(r.inputs))
	sb.WriteString(r.state.Dump())
	return sb.String()
}
