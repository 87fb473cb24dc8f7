package server

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestInitLoggerWritesFile(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })

	path := filepath.Join(t.TempDir(), "room.log")
	if err := InitLogger(LogConfig{File: path, Level: "debug", MaxSizeMB: 1}); err != nil {
		t.Fatalf("InitLogger: %v", err)
	}
	Log.Debugw("player connected", "pid", 3)
	SyncLogger()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "player connected") || !strings.Contains(string(b), "DEBUG") {
		t.Fatalf("log file = %q", b)
	}
}

func TestInitLoggerRejectsBadLevel(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })
	Log = zap.NewNop().Sugar()

	if err := InitLogger(LogConfig{Level: "loud"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
