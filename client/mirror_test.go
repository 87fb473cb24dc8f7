package client

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"wormarena/game"
	"wormarena/protocol"
	"wormarena/server"
)

type fakePeer struct {
	sendCh chan []byte
	fail   atomic.Bool
}

func (f *fakePeer) Send(b []byte) error {
	if f.fail.Load() {
		return errors.New("fake send failure")
	}
	select {
	case f.sendCh <- append([]byte(nil), b...):
		return nil
	default:
		return server.ErrPeerStalled
	}
}

func (f *fakePeer) Close() error { return nil }

type replica struct {
	peer   *fakePeer
	in     chan protocol.InputAtTick
	mirror *Mirror
}

func joinReplica(t *testing.T, room *server.Room) *replica {
	t.Helper()
	r := &replica{
		peer:   &fakePeer{sendCh: make(chan []byte, 1024)},
		in:     make(chan protocol.InputAtTick, 8),
		mirror: NewMirror(),
	}
	if err := room.Join(context.Background(), r.peer, r.in); err != nil {
		t.Fatalf("join: %v", err)
	}
	return r
}

// sync 等房间处理完之前的消息，然后把已发出的帧全部应用到副本
func (r *replica) sync(t *testing.T, room *server.Room) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	dump, err := room.CurrentState(ctx)
	if err != nil {
		t.Fatalf("current state: %v", err)
	}
	for {
		select {
		case frame := <-r.peer.sendCh:
			if _, err := r.mirror.Apply(frame); err != nil {
				t.Fatalf("apply: %v", err)
			}
		default:
			return dump[strings.IndexByte(dump, '\n')+1:]
		}
	}
}

func (r *replica) dump(t *testing.T) string {
	t.Helper()
	var out string
	if !r.mirror.View(func(_ game.PlayerID, st *game.State) { out = st.Dump() }) {
		t.Fatalf("replica not initialized")
	}
	return out
}

func TestMirrorTracksAuthoritativeWorld(t *testing.T) {
	cfg := server.DefaultRoomConfig()
	cfg.Width, cfg.Height, cfg.Seed = 16, 12, 3
	room := server.NewRoom(cfg)
	go room.Run()
	defer room.Stop()

	a := joinReplica(t, room)
	var b *replica
	dirs := []game.Direction{game.Up, game.Left, game.Down, game.Right, game.Right, game.Up}

	for step := 0; step < 40; step++ {
		switch step {
		case 5:
			b = joinReplica(t, room)
		case 25:
			b.peer.fail.Store(true)
		}
		a.in <- protocol.InputAtTick{Input: game.ChangeDirection(dirs[step%len(dirs)])}
		if b != nil && step < 25 {
			b.in <- protocol.InputAtTick{Input: game.ChangeDirection(dirs[(step+3)%len(dirs)])}
		}
		room.RequestTick()

		want := a.sync(t, room)
		if got := a.dump(t); got != want {
			t.Fatalf("step %d: replica a diverged\nserver:\n%s\nreplica:\n%s", step, want, got)
		}
		if b != nil && step < 25 {
			b.sync(t, room)
			if got := b.dump(t); got != want {
				t.Fatalf("step %d: replica b diverged\nserver:\n%s\nreplica:\n%s", step, want, got)
			}
		}
	}

	if pid, ok := a.mirror.PID(); !ok || pid != 0 {
		t.Fatalf("replica a pid = %d (%v), want 0", pid, ok)
	}
	sn, ok := a.mirror.Snapshot()
	if !ok {
		t.Fatalf("no snapshot")
	}
	if _, still := sn.Bodies[1]; still {
		t.Fatalf("dropped player 1 still on replica a")
	}
}

func TestMirrorRejectsFramesBeforeInit(t *testing.T) {
	m := NewMirror()
	frame, err := protocol.Encode(protocol.MsgDoTick, protocol.DoTick{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Apply(frame); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("apply before init = %v, want ErrNotInitialized", err)
	}
	if _, ok := m.PID(); ok {
		t.Fatalf("uninitialized mirror reports a pid")
	}
}

func TestMirrorDetectsDesync(t *testing.T) {
	st := game.NewState(10, 8, game.SeedRNGFromUint64(1))
	if err := st.SpawnPlayer(0); err != nil {
		t.Fatal(err)
	}
	m := NewMirror()
	frame, err := protocol.Encode(protocol.MsgInitialize, protocol.Initialize{PID: 0, World: st.Snapshot()})
	if err != nil {
		t.Fatal(err)
	}
	if kind, err := m.Apply(frame); err != nil || kind != protocol.MsgInitialize {
		t.Fatalf("init: %q %v", kind, err)
	}

	frame, err = protocol.Encode(protocol.MsgDoTick, protocol.DoTick{Tick: 5})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Apply(frame); !errors.Is(err, ErrDesync) {
		t.Fatalf("apply future tick = %v, want ErrDesync", err)
	}

	frame, err = protocol.Encode(protocol.MsgPlayerJoined, protocol.PlayerJoined{PID: 0})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Apply(frame); !errors.Is(err, ErrDesync) {
		t.Fatalf("duplicate spawn = %v, want ErrDesync", err)
	}
}

func TestMirrorUnknownType(t *testing.T) {
	m := NewMirror()
	st := game.NewDefaultState()
	frame, _ := protocol.Encode(protocol.MsgInitialize, protocol.Initialize{World: st.Snapshot()})
	if _, err := m.Apply(frame); err != nil {
		t.Fatal(err)
	}
	frame, _ = protocol.Encode("nope", protocol.PlayerJoined{})
	if _, err := m.Apply(frame); err == nil {
		t.Fatalf("unknown message type accepted")
	}
}
