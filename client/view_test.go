package client

import (
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"

	"wormarena/game"
)

func TestKeyDirection(t *testing.T) {
	cases := []struct {
		key  tcell.Key
		r    rune
		want game.Direction
	}{
		{tcell.KeyUp, 0, game.Up},
		{tcell.KeyDown, 0, game.Down},
		{tcell.KeyLeft, 0, game.Left},
		{tcell.KeyRight, 0, game.Right},
		{tcell.KeyRune, 'w', game.Up},
		{tcell.KeyRune, 'S', game.Down},
		{tcell.KeyRune, 'a', game.Left},
		{tcell.KeyRune, 'd', game.Right},
	}
	for _, c := range cases {
		if got, ok := KeyDirection(c.key, c.r); !ok || got != c.want {
			t.Errorf("KeyDirection(%v, %q) = %v, %v; want %v", c.key, c.r, got, ok, c.want)
		}
	}
	if _, ok := KeyDirection(tcell.KeyRune, 'x'); ok {
		t.Errorf("x should not map to a direction")
	}
	if _, ok := KeyDirection(tcell.KeyEnter, 0); ok {
		t.Errorf("enter should not map to a direction")
	}
}

func TestPlayerColorWraps(t *testing.T) {
	if PlayerColor(3) != PlayerColor(11) {
		t.Fatalf("colors should repeat every 8 players")
	}
	if PlayerColor(0) == PlayerColor(1) {
		t.Fatalf("adjacent players share a color")
	}
}

func TestTileCell(t *testing.T) {
	head, _ := tileCell(game.Segment(2, game.Left), true)
	if head[0] != '◀' {
		t.Fatalf("head glyph = %q", head[0])
	}
	body, _ := tileCell(game.Segment(2, game.Left), false)
	if body[0] != '█' {
		t.Fatalf("body glyph = %q", body[0])
	}
	food, _ := tileCell(game.Tile{Kind: game.Food}, false)
	if food[0] != '●' {
		t.Fatalf("food glyph = %q", food[0])
	}
}

func TestStatusLine(t *testing.T) {
	st := game.NewState(10, 8, game.SeedRNGFromUint64(1))
	if err := st.SpawnPlayer(4); err != nil {
		t.Fatal(err)
	}
	line := StatusLine(4, st)
	if !strings.Contains(line, "pid=4") || !strings.Contains(line, "len=1") {
		t.Fatalf("status = %q", line)
	}
	if line := StatusLine(9, st); !strings.Contains(line, "dead") {
		t.Fatalf("status for absent player = %q", line)
	}
}
