package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"wormarena/client"
	"wormarena/game"
	"wormarena/server"
)

// wormterm 终端客户端：连接服务端，本地重放世界并用 tcell 绘制
func main() {
	var (
		url      string
		logFile  string
		logLevel string
	)
	flag.StringVar(&url, "url", "ws://localhost:8000/ws", "server websocket url")
	flag.StringVar(&logFile, "log", "wormterm.log", "log file (the terminal is owned by the UI)")
	flag.StringVar(&logLevel, "log-level", "info", "debug / info / warn / error")
	flag.Parse()

	if err := server.InitLogger(server.LogConfig{File: logFile, Level: logLevel, MaxSizeMB: 5, MaxBackups: 1}); err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer server.SyncLogger()
	log := server.Log.Named("wormterm")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	mirror := client.NewMirror()
	conn, err := client.Dial(ctx, url, mirror, log)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer conn.Close()

	view, err := client.NewView(mirror)
	if err != nil {
		fmt.Fprintln(os.Stderr, "terminal:", err)
		os.Exit(1)
	}

	runErr := make(chan error, 1)
	go func() {
		err := conn.Run(func(string) { view.Redraw() })
		runErr <- err
		view.Quit()
	}()

	view.Loop(func(d game.Direction) {
		if err := conn.SendInput(d); err != nil {
			log.Warnw("send input", "err", err)
		}
	})

	select {
	case err := <-runErr:
		if err != nil {
			fmt.Fprintln(os.Stderr, "connection:", err)
			log.Errorw("connection closed", "err", err)
		}
	default:
	}
}
