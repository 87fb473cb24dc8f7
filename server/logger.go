package server

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log 是全局可用的 SugaredLogger；未初始化时为 no-op，测试与库代码可以直接使用
var Log = zap.NewNop().Sugar()

// LogConfig 日志输出配置
type LogConfig struct {
	File       string // 日志文件路径，如 "app.log"
	Level      string // debug / info / warn / error
	Stderr     bool   // 同时输出到标准错误
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// InitLogger 初始化 zap 日志到本地文件（支持滚动），可选同时写标准错误
func InitLogger(cfg LogConfig) error {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("log level %q: %w", cfg.Level, err)
	}

	var sinks []zapcore.WriteSyncer
	if cfg.File != "" {
		sinks = append(sinks, zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB, // MB
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays, // days
			Compress:   false,
		}))
	}
	if cfg.Stderr || len(sinks) == 0 {
		sinks = append(sinks, zapcore.Lock(os.Stderr))
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:       "ts",
		LevelKey:      "level",
		NameKey:       "logger",
		CallerKey:     "caller",
		MessageKey:    "msg",
		StacktraceKey: "stack",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   zapcore.CapitalLevelEncoder,
		EncodeTime:    zapcore.ISO8601TimeEncoder,
		EncodeCaller:  zapcore.ShortCallerEncoder,
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.NewMultiWriteSyncer(sinks...), level)

	// 添加调用者信息（文件:行号）
	Log = zap.New(core, zap.AddCaller()).Sugar()
	return nil
}

// SyncLogger 清理和同步缓冲
func SyncLogger() {
	if Log != nil {
		_ = Log.Sync()
	}
}
