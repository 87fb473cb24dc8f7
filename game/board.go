package game

import "fmt"

// PlayerID 玩家唯一标识，由房间单调分配，永不复用
type PlayerID uint64

// TileKind 格子类型
type TileKind uint8

const (
	Empty TileKind = iota
	Wall
	WormSegment
	Food
)

func (k TileKind) String() string {
	switch k {
	case Empty:
		return "Empty"
	case Wall:
		return "Wall"
	case WormSegment:
		return "WormSegment"
	case Food:
		return "Food"
	}
	return fmt.Sprintf("TileKind(%d)", uint8(k))
}

// Tile 棋盘格。Owner/Dir 只在 WormSegment 时有意义
type Tile struct {
	Kind  TileKind  `msgpack:"k"`
	Owner PlayerID  `msgpack:"o,omitempty"`
	Dir   Direction `msgpack:"d,omitempty"`
}

// Segment 构造某玩家的蛇身格
func Segment(owner PlayerID, dir Direction) Tile {
	return Tile{Kind: WormSegment, Owner: owner, Dir: dir}
}

// 死亡时每个蛇身格转为食物的概率权重（与 Uint32 比较）
const (
	FoodChanceWall uint32 = 429496729  // ⌊0.1·(2³²−1)⌋
	FoodChanceBody uint32 = 3865470565 // ⌊0.9·(2³²−1)⌋
)

// Board 固定大小的格子网格，按 y*Width+x 平铺存储，最外圈恒为墙
type Board struct {
	Width  int    `msgpack:"w"`
	Height int    `msgpack:"h"`
	Tiles  []Tile `msgpack:"tiles"`
}

// NewBoard 分配空格并用墙围住最外圈
func NewBoard(width, height int) *Board {
	if width < 1 || height < 1 {
		panic(fmt.Sprintf("game: invalid board size %dx%d", width, height))
	}
	b := &Board{Width: width, Height: height, Tiles: make([]Tile, width*height)}
	for x := 0; x < width; x++ {
		b.Set(C(x, 0), Tile{Kind: Wall})
		b.Set(C(x, height-1), Tile{Kind: Wall})
	}
	for y := 0; y < height; y++ {
		b.Set(C(0, y), Tile{Kind: Wall})
		b.Set(C(width-1, y), Tile{Kind: Wall})
	}
	return b
}

// InBounds 坐标是否落在棋盘内
func (b *Board) InBounds(c Coord) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < b.Width && c.Y < b.Height
}

// OnRing 是否位于最外圈
func (b *Board) OnRing(c Coord) bool {
	return c.X == 0 || c.Y == 0 || c.X == b.Width-1 || c.Y == b.Height-1
}

// Index 坐标到平铺下标；越界属于编程错误，直接 panic
func (b *Board) Index(c Coord) int {
	if !b.InBounds(c) {
		panic(fmt.Sprintf("game: coord %v outside %dx%d board", c, b.Width, b.Height))
	}
	return c.Y*b.Width + c.X
}

// At 读取格子，越界 panic
func (b *Board) At(c Coord) Tile { return b.Tiles[b.Index(c)] }

// Set 写入格子，越界 panic
func (b *Board) Set(c Coord, t Tile) { b.Tiles[b.Index(c)] = t }

// Count 统计某类格子数量
func (b *Board) Count(kind TileKind) int {
	n := 0
	for _, t := range b.Tiles {
		if t.Kind == kind {
			n++
		}
	}
	return n
}

// Clone 深拷贝
func (b *Board) Clone() *Board {
	cp := &Board{Width: b.Width, Height: b.Height, Tiles: make([]Tile, len(b.Tiles))}
	copy(cp.Tiles, b.Tiles)
	return cp
}

// MoveHead 蛇头沿自身朝向前进一格。
// 返回本步产生的事件，以及新蛇头坐标（死亡时 moved=false，棋盘不变）。
func (b *Board) MoveHead(head Coord) (events []Event, next Coord, moved bool) {
	t := b.At(head)
	if t.Kind != WormSegment {
		return nil, head, false
	}
	pid, dir := t.Owner, t.Dir
	next = head.Offset(dir)
	switch b.At(next).Kind {
	case Empty:
		b.Set(next, Segment(pid, dir))
		return nil, next, true
	case Wall:
		return []Event{Died(pid, FoodChanceWall)}, head, false
	case WormSegment:
		return []Event{Died(pid, FoodChanceBody)}, head, false
	case Food:
		b.Set(next, Segment(pid, dir))
		return []Event{AteFood(pid, next)}, next, true
	}
	return nil, head, false
}
