package client

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"wormarena/game"
)

// 每个玩家的颜色按 pid % 8 取
var palette = [8]tcell.Color{
	tcell.NewHexColor(0xff0000),
	tcell.NewHexColor(0x00ff00),
	tcell.NewHexColor(0xffff00),
	tcell.NewHexColor(0x0000ff),
	tcell.NewHexColor(0xff00ff),
	tcell.NewHexColor(0x00ffff),
	tcell.NewHexColor(0xffffff),
	tcell.NewHexColor(0x000000),
}

var (
	emptyStyle = tcell.StyleDefault.Background(tcell.NewHexColor(0xf0f0f0))
	wallStyle  = tcell.StyleDefault.Background(tcell.NewHexColor(0x101010))
	foodStyle  = emptyStyle.Foreground(tcell.NewHexColor(0x808000))
)

// 蛇头箭头，顺序与 game.Direction 一致
var headGlyphs = [4]rune{'▲', '▼', '◀', '▶'}

func PlayerColor(pid game.PlayerID) tcell.Color { return palette[pid%8] }

// tileCell 一个格子在终端上的字符与样式（每格占两列）
func tileCell(t game.Tile, head bool) ([2]rune, tcell.Style) {
	switch t.Kind {
	case game.Wall:
		return [2]rune{' ', ' '}, wallStyle
	case game.Food:
		return [2]rune{'●', ' '}, foodStyle
	case game.WormSegment:
		style := emptyStyle.Foreground(PlayerColor(t.Owner))
		if head {
			return [2]rune{headGlyphs[t.Dir], ' '}, style.Bold(true)
		}
		return [2]rune{'█', '█'}, style
	default:
		return [2]rune{' ', ' '}, emptyStyle
	}
}

// KeyDirection 方向键与 WASD
func KeyDirection(key tcell.Key, r rune) (game.Direction, bool) {
	switch key {
	case tcell.KeyUp:
		return game.Up, true
	case tcell.KeyDown:
		return game.Down, true
	case tcell.KeyLeft:
		return game.Left, true
	case tcell.KeyRight:
		return game.Right, true
	case tcell.KeyRune:
		switch r {
		case 'w', 'W':
			return game.Up, true
		case 's', 'S':
			return game.Down, true
		case 'a', 'A':
			return game.Left, true
		case 'd', 'D':
			return game.Right, true
		}
	}
	return 0, false
}

// StatusLine 棋盘下方的一行状态
func StatusLine(pid game.PlayerID, st *game.State) string {
	alive := "dead"
	if st.Alive(pid) {
		alive = fmt.Sprintf("len=%d", len(st.Body(pid)))
	}
	return fmt.Sprintf("pid=%d tick=%d players=%d food=%d %s  [arrows/WASD move, q quit]",
		pid, st.TickCount(), len(st.Players()), st.FoodCount(), alive)
}

// View 终端渲染与键盘输入
type View struct {
	screen tcell.Screen
	mirror *Mirror
}

func NewView(mirror *Mirror) (*View, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	return &View{screen: screen, mirror: mirror}, nil
}

// Redraw 可从任意协程调用，实际绘制在事件循环中进行
func (v *View) Redraw() {
	_ = v.screen.PostEvent(tcell.NewEventInterrupt(nil))
}

// Loop 事件循环，直到按下 q / Esc / Ctrl-C；onDir 收到方向输入
func (v *View) Loop(onDir func(game.Direction)) {
	defer v.screen.Fini()
	v.draw()
	for {
		switch ev := v.screen.PollEvent().(type) {
		case nil:
			return
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC ||
				(ev.Key() == tcell.KeyRune && (ev.Rune() == 'q' || ev.Rune() == 'Q')) {
				return
			}
			if d, ok := KeyDirection(ev.Key(), ev.Rune()); ok && onDir != nil {
				onDir(d)
			}
		case *tcell.EventResize:
			v.screen.Sync()
			v.draw()
		case *tcell.EventInterrupt:
			v.draw()
		}
	}
}

// Quit 让 Loop 返回
func (v *View) Quit() { v.screen.Fini() }

func (v *View) draw() {
	v.screen.Clear()
	ok := v.mirror.View(func(pid game.PlayerID, st *game.State) {
		heads := make(map[game.Coord]bool)
		for _, p := range st.Players() {
			if h, ok := st.Head(p); ok {
				heads[h] = true
			}
		}
		for y := 0; y < st.Height(); y++ {
			for x := 0; x < st.Width(); x++ {
				c := game.C(x, y)
				glyph, style := tileCell(st.TileAt(c), heads[c])
				v.screen.SetContent(2*x, y, glyph[0], nil, style)
				v.screen.SetContent(2*x+1, y, glyph[1], nil, style)
			}
		}
		v.text(0, st.Height(), StatusLine(pid, st))
	})
	if !ok {
		v.text(0, 0, "waiting for server...")
	}
	v.screen.Show()
}

func (v *View) text(x, y int, s string) {
	for _, r := range s {
		v.screen.SetContent(x, y, r, nil, tcell.StyleDefault)
		x++
	}
}
