package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	L     *zap.Logger
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

func init() {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "ts"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.Level = level
	var err error
	L, err = config.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
}

// Init 依設定檔調整 log level，無法解析時維持 info
func Init(lvl string) {
	parsed, err := zapcore.ParseLevel(lvl)
	if err != nil {
		L.Warn("unknown log level, keeping info", zap.String("level", lvl))
		return
	}
	level.SetLevel(parsed)
}

// Level returns the current log level.
func Level() zapcore.Level {
	return level.Level()
}

// WithComponent 回傳帶有 component 欄位的 logger，供 MQ、handler、service、worker 等使用
func WithComponent(component string) *zap.Logger {
	return L.With(zap.String("component", component))
}

// Sync flushes buffered entries, called on shutdown.
func Sync() {
	_ = L.Sync()
}
