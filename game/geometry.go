package game

import (
	"fmt"
	"math"
)

// Tau 一整圈的弧度
const Tau = 2 * math.Pi

// Coord 棋盘上的整数坐标，本层不做越界检查（边界由墙格保证）
type Coord struct {
	X int `msgpack:"x"`
	Y int `msgpack:"y"`
}

// C 构造坐标的简写
func C(x, y int) Coord { return Coord{X: x, Y: y} }

// Add 逐分量相加
func (c Coord) Add(o Coord) Coord { return Coord{X: c.X + o.X, Y: c.Y + o.Y} }

// Sub 逐分量相减
func (c Coord) Sub(o Coord) Coord { return c.Add(o.Neg()) }

// Neg 取反
func (c Coord) Neg() Coord { return Coord{X: -c.X, Y: -c.Y} }

// Offset 沿方向移动一格
func (c Coord) Offset(d Direction) Coord { return c.Add(d.Delta()) }

// Vec2 转成浮点向量
func (c Coord) Vec2() Vec2 { return Vec2{X: float64(c.X), Y: float64(c.Y)} }

func (c Coord) String() string { return fmt.Sprintf("(%d,%d)", c.X, c.Y) }

// Vec2 浮点向量，仅用于方向换算与渲染
type Vec2 struct {
	X float64
	Y float64
}

// FromAngle 单位向量；屏幕坐标系 y 轴向下
func FromAngle(theta float64) Vec2 { return Vec2{X: math.Cos(theta), Y: math.Sin(theta)} }

// Add 逐分量运算；Mul 为逐分量相乘，Scale 为数乘
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }
func (v Vec2) Neg() Vec2 { return Vec2{X: -v.X, Y: -v.Y} }
func (v Vec2) Mul(o Vec2) Vec2 { return Vec2{X: v.X * o.X, Y: v.Y * o.Y} }
func (v Vec2) Scale(k float64) Vec2 { return Vec2{X: k * v.X, Y: k * v.Y} }
func (v Vec2) Round() Coord { return Coord{X: int(math.Round(v.X)), Y: int(math.Round(v.Y))} }

// Direction 蛇头朝向
type Direction uint8

const (
	Up Direction = iota
	Down
	Left
	Right
)

// Directions 全部方向，顺序与 DirectionFromUint32 一致
var Directions = [...]Direction{Up, Down, Left, Right}

var deltas = [...]Coord{
	Up:    {X: 0, Y: -1},
	Down:  {X: 0, Y: 1},
	Left:  {X: -1, Y: 0},
	Right: {X: 1, Y: 0},
}

// DirectionFromUint32 将随机数映射为方向（x % 4）
func DirectionFromUint32(x uint32) Direction { return Direction(x % 4) }

// Valid 是否为四个合法方向之一
func (d Direction) Valid() bool { return d <= Right }

// Radians 方向对应的角度：Right=0，Down=τ/4，Left=τ/2，Up=3τ/4
func (d Direction) Radians() float64 {
	switch d {
	case Right:
		return 0
	case Down:
		return Tau / 4
	case Left:
		return Tau / 2
	default:
		return 3 * Tau / 4
	}
}

// Delta 单位位移
func (d Direction) Delta() Coord {
	if !d.Valid() {
		panic(fmt.Sprintf("game: invalid direction %d", d))
	}
	return deltas[d]
}

// Opposite 反方向
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	default:
		return Left
	}
}

// Reverses 判断 o 是否与 d 正好相反
func (d Direction) Reverses(o Direction) bool {
	return d.Delta().Add(o.Delta()) == (Coord{})
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "Up"
	case Down:
		return "Down"
	case Left:
		return "Left"
	case Right:
		return "Right"
	}
	return fmt.Sprintf("Direction(%d)", uint8(d))
}
