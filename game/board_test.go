package game

import (
	"reflect"
	"testing"
)

func TestNewBoardWallRing(t *testing.T) {
	b := NewBoard(5, 4)
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			c := C(x, y)
			want := Empty
			if b.OnRing(c) {
				want = Wall
			}
			if got := b.At(c).Kind; got != want {
				t.Errorf("%v = %v, want %v", c, got, want)
			}
		}
	}
	if n := b.Count(Empty); n != 3*2 {
		t.Fatalf("interior empties = %d, want 6", n)
	}
}

func TestBoardIndexOutOfRangePanics(t *testing.T) {
	b := NewBoard(3, 3)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for off-board coord")
		}
	}()
	b.At(C(3, 0))
}

func TestMoveHead(t *testing.T) {
	cases := []struct {
		name      string
		target    Tile
		wantEvent []Event
		wantMoved bool
	}{
		{"empty", Tile{Kind: Empty}, nil, true},
		{"wall", Tile{Kind: Wall}, []Event{Died(7, FoodChanceWall)}, false},
		{"segment", Segment(9, Up), []Event{Died(7, FoodChanceBody)}, false},
		{"food", Tile{Kind: Food}, []Event{AteFood(7, C(3, 2))}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := NewBoard(6, 6)
			b.Set(C(2, 2), Segment(7, Right))
			b.Set(C(3, 2), tc.target)
			evs, next, moved := b.MoveHead(C(2, 2))
			if !reflect.DeepEqual(evs, tc.wantEvent) {
				t.Fatalf("events = %v, want %v", evs, tc.wantEvent)
			}
			if moved != tc.wantMoved {
				t.Fatalf("moved = %v, want %v", moved, tc.wantMoved)
			}
			if moved {
				if next != C(3, 2) || b.At(next) != Segment(7, Right) {
					t.Fatalf("head not placed: next=%v tile=%+v", next, b.At(next))
				}
			} else if b.At(C(3, 2)) != tc.target {
				t.Fatalf("target mutated on death: %+v", b.At(C(3, 2)))
			}
		})
	}
}

func TestMoveHeadIgnoresNonSegment(t *testing.T) {
	b := NewBoard(4, 4)
	if evs, _, moved := b.MoveHead(C(1, 1)); evs != nil || moved {
		t.Fatalf("moving an empty tile produced %v moved=%v", evs, moved)
	}
}

func TestFoodChanceConstants(t *testing.T) {
	top := float64(^uint32(0))
	if FoodChanceWall != uint32(0.1*top) || FoodChanceBody != uint32(0.9*top) {
		t.Fatalf("food chances %d/%d drifted from 10%%/90%% of max", FoodChanceWall, FoodChanceBody)
	}
}
