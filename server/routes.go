package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter 组装 HTTP 路由：WebSocket 接入、调试与监控接口、静态资源
func NewRouter(cfg Config, room *Room) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		MaxAge:         300,
	}))

	ws := HandleWS(room, cfg.OutboxSize, cfg.CORSOrigins)
	r.Get("/ws", ws)
	r.Get("/client_connection", ws)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/state", HandleState(room))
	r.Get("/metrics", HandleMetrics(room))
	r.Get("/admin/config", HandleAdminConfig(cfg))

	// 前后端分离：其余路径映射到静态资源目录
	r.Handle("/*", http.FileServer(http.Dir(cfg.StaticDir)))
	return r
}

// HandleState 调试接口：房间当前的文本快照
// GET /state
func HandleState(room *Room) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		dump, err := room.CurrentState(ctx)
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(dump))
	}
}

// HandleMetrics 输出房间运行指标
// GET /metrics
func HandleMetrics(room *Room) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(room.Metrics().Snapshot())
	}
}

// HandleAdminConfig 只读的运行配置，世界参数在启动后不可修改
// GET /admin/config
func HandleAdminConfig(cfg Config) http.HandlerFunc {
	type roomView struct {
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		Seed         uint64 `json:"seed"`
		TickInterval string `json:"tickInterval"`
		InboxSize    int    `json:"inboxSize"`
		ResyncOnJoin bool   `json:"resyncOnJoin"`
	}
	body := map[string]any{
		"outboxSize": cfg.OutboxSize,
		"room": roomView{
			Width:        cfg.Room.Width,
			Height:       cfg.Room.Height,
			Seed:         cfg.Room.Seed,
			TickInterval: cfg.Room.TickInterval.String(),
			InboxSize:    cfg.Room.InboxSize,
			ResyncOnJoin: cfg.Room.ResyncOnJoin,
		},
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}
}

// requestLogger 用 zap 记录每个请求
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			Log.Debugw("http request",
				"id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"elapsed", time.Since(start),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
