package server

import (
	"wormarena/game"
	"wormarena/protocol"
)

// drainInputs 非阻塞取出每个连接在本周期开始时已排队的输入：同一周期内同一玩家后到的输入覆盖先到的。
// 只取开始时的长度，客户端持续写入也不会拖住 Tick。入站队列已关闭说明读协程退出，标记移除。
func (r *Room) drainInputs() {
	for _, pid := range r.playerIDs() {
		p := r.players[pid]
		// 队列为空时仍需尝试一次，才能发现已关闭的队列
		n := max(len(p.Inbound), 1)
	drain:
		for i := 0; i < n; i++ {
			select {
			case in, ok := <-p.Inbound:
				if !ok {
					r.markDropped(pid, errInboundClosed)
					break drain
				}
				r.acceptInput(pid, in)
			default:
				break drain
			}
		}
	}
}

// acceptInput 输入里的 Tick 仅作参考，一律在下一个 Tick 边界生效
func (r *Room) acceptInput(pid game.PlayerID, in protocol.InputAtTick) {
	if !in.Input.Dir.Valid() {
		return
	}
	r.inputs[pid] = in.Input
	r.metrics.IncAccepted()
}
