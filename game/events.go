package game

import "fmt"

// EventKind 一次 Tick 的可观测结果类型
type EventKind uint8

const (
	PlayerDied EventKind = iota + 1
	PlayerAteFood
)

// Event Tick 的输出。PlayerDied 携带 FoodChance，PlayerAteFood 携带 At
type Event struct {
	Kind       EventKind `msgpack:"k"`
	Player     PlayerID  `msgpack:"p"`
	FoodChance uint32    `msgpack:"c,omitempty"`
	At         Coord     `msgpack:"at"`
}

func Died(pid PlayerID, foodChance uint32) Event {
	return Event{Kind: PlayerDied, Player: pid, FoodChance: foodChance}
}

func AteFood(pid PlayerID, at Coord) Event {
	return Event{Kind: PlayerAteFood, Player: pid, At: at}
}

func (e Event) String() string {
	switch e.Kind {
	case PlayerDied:
		return fmt.Sprintf("PlayerDied(%d, %d)", e.Player, e.FoodChance)
	case PlayerAteFood:
		return fmt.Sprintf("PlayerAteFood(%d, %v)", e.Player, e.At)
	}
	return fmt.Sprintf("Event(%d)", uint8(e.Kind))
}

// Input 客户端唯一能提交的操作：改变方向
type Input struct {
	Dir Direction `msgpack:"dir"`
}

// ChangeDirection 构造改变方向的输入
func ChangeDirection(d Direction) Input { return Input{Dir: d} }
