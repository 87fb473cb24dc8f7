package game

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrBadSnapshot 快照内容自相矛盾，无法还原
var ErrBadSnapshot = errors.New("game: bad snapshot")

// Snapshot 完整、自包含的世界副本（含随机数种子与游标），足以让对端从此刻起同样推进
type Snapshot struct {
	RNG    RNGState             `msgpack:"rng"`
	Tick   uint64               `msgpack:"tick"`
	Board  Board                `msgpack:"board"`
	Bodies map[PlayerID][]Coord `msgpack:"bodies"`
	Foods  uint64               `msgpack:"foods"`
}

// Snapshot 深拷贝当前状态
func (s *State) Snapshot() Snapshot {
	bodies := make(map[PlayerID][]Coord, len(s.bodies))
	for pid, body := range s.bodies {
		bodies[pid] = slices.Clone(body)
	}
	return Snapshot{
		RNG:    s.rng.State(),
		Tick:   s.tick,
		Board:  *s.board.Clone(),
		Bodies: bodies,
		Foods:  s.foods,
	}
}

// Clone 独立副本，之后两者互不影响
func (s *State) Clone() *State {
	return fromSnapshot(s.Snapshot())
}

// Restore 校验并还原快照
func Restore(sn Snapshot) (*State, error) {
	b := sn.Board
	if b.Width < 1 || b.Height < 1 || len(b.Tiles) != b.Width*b.Height {
		return nil, fmt.Errorf("%w: %dx%d board with %d tiles", ErrBadSnapshot, b.Width, b.Height, len(b.Tiles))
	}
	for i, t := range b.Tiles {
		c := C(i%b.Width, i/b.Width)
		if t.Kind > Food || !t.Dir.Valid() {
			return nil, fmt.Errorf("%w: malformed tile at %v", ErrBadSnapshot, c)
		}
		if b.OnRing(c) && t.Kind != Wall {
			return nil, fmt.Errorf("%w: border tile %v is %v", ErrBadSnapshot, c, t.Kind)
		}
	}
	s := fromSnapshot(sn)
	if err := s.CheckConsistency(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}
	return s, nil
}

func fromSnapshot(sn Snapshot) *State {
	s := &State{
		rng:    RestoreRNG(sn.RNG),
		tick:   sn.Tick,
		board:  sn.Board.Clone(),
		bodies: make(map[PlayerID][]Coord, len(sn.Bodies)),
		foods:  sn.Foods,
	}
	for pid, body := range sn.Bodies {
		s.bodies[pid] = slices.Clone(body)
		s.order = append(s.order, pid)
	}
	slices.Sort(s.order)
	return s
}

// Dump 调试用文本：元数据 + 每个玩家 + ASCII 棋盘
func (s *State) Dump() string {
	var sb strings.Builder
	st := s.rng.State()
	fmt.Fprintf(&sb, "tick=%d foods=%d players=%d board=%dx%d rng.cursor=%v\n",
		s.tick, s.foods, len(s.order), s.board.Width, s.board.Height, st.Cursor)
	for _, pid := range s.order {
		body := s.bodies[pid]
		head := body[len(body)-1]
		fmt.Fprintf(&sb, "player %d: len=%d head=%v dir=%v\n", pid, len(body), head, s.board.At(head).Dir)
	}
	heads := make(map[Coord]bool, len(s.order))
	for _, pid := range s.order {
		body := s.bodies[pid]
		heads[body[len(body)-1]] = true
	}
	for y := 0; y < s.board.Height; y++ {
		for x := 0; x < s.board.Width; x++ {
			c := C(x, y)
			sb.WriteByte(tileGlyph(s.board.At(c), heads[c]))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func tileGlyph(t Tile, head bool) byte {
	switch t.Kind {
	case Wall:
		return '#'
	case Food:
		return '*'
	case WormSegment:
		if head {
			return "^v<>"[t.Dir]
		}
		return byte('0' + t.Owner%10)
	}
	return '.'
}
