package server

import "time"

// StartTicker 启动房间的 Tick 定时器：只负责按固定间隔投递 doTick，推进在 actor 内完成
func (r *Room) StartTicker() {
	r.tickerOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(r.cfg.TickInterval)
			defer ticker.Stop()
			for {
				select {
				case <-r.quit:
					return
				case <-ticker.C:
					// inbox 满时丢弃，不追赶
					r.RequestTick()
				}
			}
		}()
	})
}
