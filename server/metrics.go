package server

import (
	"sync/atomic"
)

// RoomMetrics 记录房间运行期的关键指标（用于监控与调试）
type RoomMetrics struct {
	TickCount      int64 // 实际推进的 Tick 次数
	TotalTickNs    int64 // Tick 累计耗时（纳秒），含广播
	TicksDropped   int64 // 因 inbox 满被丢弃的 Tick 请求
	InputsAccepted int64 // 进入本周期的输入数
	InputsDropped  int64 // 因连接入站队列满被丢弃的输入数
	Joins          int64 // 接入的玩家数
	PeersDropped   int64 // 因发送失败或断线被移除的连接数
	Deaths         int64
	FoodEaten      int64
	Players        int64 // 当前连接数
}

func (m *RoomMetrics) IncTicksDropped() { atomic.AddInt64(&m.TicksDropped, 1) }
func (m *RoomMetrics) IncAccepted() { atomic.AddInt64(&m.InputsAccepted, 1) }
func (m *RoomMetrics) IncInputsDropped() { atomic.AddInt64(&m.InputsDropped, 1) }
func (m *RoomMetrics) IncJoins() { atomic.AddInt64(&m.Joins, 1) }
func (m *RoomMetrics) IncPeersDropped() { atomic.AddInt64(&m.PeersDropped, 1) }
func (m *RoomMetrics) IncDeaths() { atomic.AddInt64(&m.Deaths, 1) }
func (m *RoomMetrics) IncFoodEaten() { atomic.AddInt64(&m.FoodEaten, 1) }
func (m *RoomMetrics) SetPlayers(n int) { atomic.StoreInt64(&m.Players, int64(n)) }
func (m *RoomMetrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *RoomMetrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":      tick,
		"ticks_dropped":   atomic.LoadInt64(&m.TicksDropped),
		"inputs_accepted": atomic.LoadInt64(&m.InputsAccepted),
		"inputs_dropped":  atomic.LoadInt64(&m.InputsDropped),
		"joins":           atomic.LoadInt64(&m.Joins),
		"peers_dropped":   atomic.LoadInt64(&m.PeersDropped),
		"deaths":          atomic.LoadInt64(&m.Deaths),
		"food_eaten":      atomic.LoadInt64(&m.FoodEaten),
		"players":         atomic.LoadInt64(&m.Players),
		"avg_tick_ms":     avgMs,
	}
}
