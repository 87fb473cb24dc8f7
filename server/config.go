package server

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"wormarena/game"
)

const (
	// TicksPerSecond 世界推进频率（4 TPS）
	TicksPerSecond      = 4
	DefaultTickInterval = time.Second / TicksPerSecond // 250ms
)

// Config 进程配置：.env → 环境变量 → 命令行参数，后者覆盖前者
type Config struct {
	Addr              string
	StaticDir         string
	CORSOrigins       []string
	ReadHeaderTimeout time.Duration
	OutboxSize        int // 每个连接的出站队列长度

	Room RoomConfig
	Log  LogConfig
}

// RoomConfig 房间（会话 actor）与世界参数
type RoomConfig struct {
	Width        int
	Height       int
	Seed         uint64
	TickInterval time.Duration
	InboxSize    int
	ResyncOnJoin bool // 有人加入时给所有人重发完整快照，而不是只发 PlayerJoined
}

// DefaultRoomConfig 与原版一致的 40x30 棋盘与固定种子
func DefaultRoomConfig() RoomConfig {
	return RoomConfig{
		Width:        game.DefaultWidth,
		Height:       game.DefaultHeight,
		Seed:         game.DefaultSeed,
		TickInterval: DefaultTickInterval,
		InboxSize:    1024,
	}
}

// LoadConfig 读取 .env（可选）与环境变量
func LoadConfig(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}
	def := DefaultRoomConfig()
	cfg := Config{
		Addr:              getEnv("ADDR", ":8000"),
		StaticDir:         getEnv("STATIC_DIR", "static"),
		CORSOrigins:       splitList(getEnv("CORS_ORIGINS", "*")),
		ReadHeaderTimeout: parseDuration(getEnv("READ_HEADER_TIMEOUT", "10s"), 10*time.Second),
		OutboxSize:        parseInt(getEnv("OUTBOX_SIZE", "256"), 256),
		Room: RoomConfig{
			Width:        parseInt(getEnv("BOARD_WIDTH", ""), def.Width),
			Height:       parseInt(getEnv("BOARD_HEIGHT", ""), def.Height),
			Seed:         parseSeed(getEnv("SEED", ""), def.Seed),
			TickInterval: parseDuration(getEnv("TICK_INTERVAL", ""), def.TickInterval),
			InboxSize:    parseInt(getEnv("INBOX_SIZE", ""), def.InboxSize),
			ResyncOnJoin: parseBool(getEnv("RESYNC_ON_JOIN", "false"), false),
		},
		Log: LogConfig{
			File:       getEnv("LOG_FILE", "app.log"),
			Level:      getEnv("LOG_LEVEL", "info"),
			Stderr:     parseBool(getEnv("LOG_STDERR", "true"), true),
			MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "10"), 10),
			MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "3"), 3),
			MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "7"), 7),
		},
	}
	if cfg.Room.Width < 3 || cfg.Room.Height < 3 {
		return Config{}, errors.New("board must be at least 3x3 to hold a single interior cell")
	}
	if cfg.Room.TickInterval <= 0 {
		return Config{}, errors.New("tick interval must be positive")
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

func parseInt(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func parseBool(s string, def bool) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}

// parseSeed 接受十进制或 0x 前缀的十六进制
func parseSeed(s string, def uint64) uint64 {
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return def
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
