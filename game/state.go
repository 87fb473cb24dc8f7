package game

import (
	"errors"
	"fmt"
	"slices"
)

const (
	DefaultWidth  = 40
	DefaultHeight = 30
	DefaultSeed   = 0xdeadbeefdeadbeef
)

// ErrBoardFull 需要空格（出生或补充食物）但棋盘已无空格：属于不变量被破坏
var ErrBoardFull = errors.New("game: no empty tile left on board")

// State 权威模拟状态：随机数、Tick 计数、棋盘、每个玩家的蛇身队列、场上食物数。
// 只能被单个所有者修改（见 server.Room）。
type State struct {
	rng    *RNG
	tick   uint64
	board  *Board
	bodies map[PlayerID][]Coord // 尾在前，头在后
	order  []PlayerID           // 升序，决定每 Tick 的移动顺序
	foods  uint64
}

// NewState 用给定尺寸与随机数发生器创建空世界
func NewState(width, height int, rng *RNG) *State {
	return &State{
		rng:    rng,
		board:  NewBoard(width, height),
		bodies: make(map[PlayerID][]Coord),
	}
}

// NewDefaultState 40x30 棋盘，固定种子
func NewDefaultState() *State {
	return NewState(DefaultWidth, DefaultHeight, SeedRNGFromUint64(DefaultSeed))
}

func (s *State) TickCount() uint64 { return s.tick }
func (s *State) FoodCount() uint64 { return s.foods }
func (s *State) Width() int { return s.board.Width }
func (s *State) Height() int { return s.board.Height }

// RNGState 当前随机数种子与游标
func (s *State) RNGState() RNGState { return s.rng.State() }

// TileAt 读取单个格子
func (s *State) TileAt(c Coord) Tile { return s.board.At(c) }

// Board 返回棋盘副本
func (s *State) Board() *Board { return s.board.Clone() }

// Players 存活玩家，升序
func (s *State) Players() []PlayerID { return slices.Clone(s.order) }

func (s *State) Alive(pid PlayerID) bool {
	_, ok := s.bodies[pid]
	return ok
}

// Body 蛇身副本，尾在前
func (s *State) Body(pid PlayerID) []Coord { return slices.Clone(s.bodies[pid]) }

// Head 蛇头坐标
func (s *State) Head(pid PlayerID) (Coord, bool) {
	body, ok := s.bodies[pid]
	if !ok || len(body) == 0 {
		return Coord{}, false
	}
	return body[len(body)-1], true
}

// Facing 蛇头朝向
func (s *State) Facing(pid PlayerID) (Direction, bool) {
	head, ok := s.Head(pid)
	if !ok {
		return 0, false
	}
	return s.board.At(head).Dir, true
}

// SpawnPlayer 随机朝向、随机空格，放置一节长的蛇。
// 先抽方向再抽坐标，客户端镜像依赖这个抽取顺序。
func (s *State) SpawnPlayer(pid PlayerID) error {
	if s.Alive(pid) {
		return fmt.Errorf("game: player %d already spawned", pid)
	}
	if s.board.Count(Empty) == 0 {
		return ErrBoardFull
	}
	dir := DirectionFromUint32(s.rng.Uint32())
	c, err := s.randomEmpty()
	if err != nil {
		return err
	}
	s.board.Set(c, Segment(pid, dir))
	s.bodies[pid] = []Coord{c}
	s.insertOrder(pid)
	return nil
}

// ChangeDirection 修改蛇头朝向；与当前朝向正好相反时忽略
func (s *State) ChangeDirection(pid PlayerID, dir Direction) {
	if !dir.Valid() {
		return
	}
	head, ok := s.Head(pid)
	if !ok {
		return
	}
	t := s.board.At(head)
	if t.Kind != WormSegment || t.Owner != pid {
		panic(fmt.Sprintf("game: head of player %d at %v holds %v owned by %d", pid, head, t.Kind, t.Owner))
	}
	if dir.Reverses(t.Dir) {
		return
	}
	t.Dir = dir
	s.board.Set(head, t)
}

// RemovePlayer 清除玩家全部蛇身；每格独立抽一次随机数，小于 foodChance 则变成食物。
// 断线按 foodChance=0 处理（仍然抽取随机数，保持各端一致）。
func (s *State) RemovePlayer(pid PlayerID, foodChance uint32) {
	body, ok := s.bodies[pid]
	if !ok {
		return
	}
	delete(s.bodies, pid)
	if i, found := slices.BinarySearch(s.order, pid); found {
		s.order = slices.Delete(s.order, i, i+1)
	}
	for _, c := range body {
		if s.rng.Uint32() < foodChance {
			s.board.Set(c, Tile{Kind: Food})
			s.foods++
		} else {
			s.board.Set(c, Tile{Kind: Empty})
		}
	}
}

// Tick 推进一步：应用输入 → 按玩家 ID 升序移动 → 结算死亡 → 补充食物。
// 移动直接改写共享棋盘，先处理的玩家会影响后处理玩家看到的格子，这是确定的。
func (s *State) Tick(inputs map[PlayerID]Input) ([]Event, error) {
	pids := make([]PlayerID, 0, len(inputs))
	for pid := range inputs {
		pids = append(pids, pid)
	}
	slices.Sort(pids)
	for _, pid := range pids {
		s.ChangeDirection(pid, inputs[pid].Dir)
	}

	var events []Event
	for _, pid := range s.order {
		body := s.bodies[pid]
		evs, next, moved := s.board.MoveHead(body[len(body)-1])
		ate := false
		for _, e := range evs {
			if e.Kind == PlayerAteFood {
				ate = true
				s.foods--
			}
		}
		if moved {
			body = append(body, next)
			if !ate && len(body) > 1 {
				s.board.Set(body[0], Tile{Kind: Empty})
				body = body[1:]
			}
			s.bodies[pid] = body
		}
		events = append(events, evs...)
	}

	for _, e := range events {
		if e.Kind == PlayerDied {
			s.RemovePlayer(e.Player, e.FoodChance)
		}
	}

	target := uint64(len(s.order)) + 2
	for s.foods < target {
		if err := s.spawnFood(); err != nil {
			return events, fmt.Errorf("replenish food at tick %d: %w", s.tick, err)
		}
	}
	s.tick++
	return events, nil
}

func (s *State) spawnFood() error {
	c, err := s.randomEmpty()
	if err != nil {
		return err
	}
	s.board.Set(c, Tile{Kind: Food})
	s.foods++
	return nil
}

// randomCoord 先抽 x 再抽 y
func (s *State) randomCoord() Coord {
	x := int(s.rng.Uint32() % uint32(s.board.Width))
	y := int(s.rng.Uint32() % uint32(s.board.Height))
	return C(x, y)
}

// randomEmpty 反复抽坐标直到空格；没有空格时返回 ErrBoardFull 而不是死循环
func (s *State) randomEmpty() (Coord, error) {
	if s.board.Count(Empty) == 0 {
		return Coord{}, ErrBoardFull
	}
	for {
		c := s.randomCoord()
		if s.board.At(c).Kind == Empty {
			return c, nil
		}
	}
}

func (s *State) insertOrder(pid PlayerID) {
	i, found := slices.BinarySearch(s.order, pid)
	if !found {
		s.order = slices.Insert(s.order, i, pid)
	}
}

// CheckConsistency 校验蛇身队列与棋盘互为映射、相邻节点符合格子方向、食物计数正确
func (s *State) CheckConsistency() error {
	seen := make(map[Coord]PlayerID)
	for _, pid := range s.order {
		body := s.bodies[pid]
		if len(body) == 0 {
			return fmt.Errorf("player %d has empty body", pid)
		}
		for i, c := range body {
			if !s.board.InBounds(c) {
				return fmt.Errorf("player %d segment %v off board", pid, c)
			}
			t := s.board.At(c)
			if t.Kind != WormSegment || t.Owner != pid {
				return fmt.Errorf("player %d segment %v holds %v owned by %d", pid, c, t.Kind, t.Owner)
			}
			if other, dup := seen[c]; dup {
				return fmt.Errorf("cell %v claimed by players %d and %d", c, other, pid)
			}
			seen[c] = pid
			if i > 0 {
				prev := body[i-1]
				if want := prev.Offset(s.board.At(prev).Dir); want != c {
					return fmt.Errorf("player %d segment %d at %v, want %v", pid, i, c, want)
				}
			}
		}
	}
	if len(s.bodies) != len(s.order) {
		return fmt.Errorf("%d bodies but %d ordered players", len(s.bodies), len(s.order))
	}
	if n := s.board.Count(WormSegment); n != len(seen) {
		return fmt.Errorf("%d segment tiles but %d body cells", n, len(seen))
	}
	if n := s.board.Count(Food); uint64(n) != s.foods {
		return fmt.Errorf("%d food tiles but food count %d", n, s.foods)
	}
	return nil
}
