package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wormarena/server"
)

// WormArena 入口：启动会话 actor、Tick 定时器与 HTTP + WebSocket 服务
func main() {
	cfg, err := server.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "server listen address, e.g. :8000")
	flag.DurationVar(&cfg.Room.TickInterval, "tick", cfg.Room.TickInterval, "tick interval")
	flag.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "debug / info / warn / error")
	flag.Parse()

	// 使用第三方 zap 日志库写入 app.log（带滚动）
	if err := server.InitLogger(cfg.Log); err != nil {
		panic(err)
	}
	defer server.SyncLogger()

	room := server.NewRoom(cfg.Room)
	go room.Run()
	room.StartTicker()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.NewRouter(cfg, room),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	go func() {
		server.Log.Infof("WormArena listening on %s; open http://localhost%v/", cfg.Addr, cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			server.Log.Fatalf("listen: %v", err)
		}
	}()

	// 优雅退出（Ctrl+C）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	server.Log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		server.Log.Warnw("http shutdown", "err", err)
	}
	room.Stop()
	<-room.Done()
}
