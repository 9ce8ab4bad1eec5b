package utils

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const LogLevelEnv = "TRYON_LOG_LEVEL"

var (
	logger *zap.SugaredLogger
)

func init() {
	logger = NewLogger(levelFromEnv())
}

func GetLogger() *zap.SugaredLogger {
	return logger
}

func NewLogger(level zapcore.Level) *zap.SugaredLogger {
	cfg := zap.Config{
		Level:    zap.NewAtomicLevelAt(level),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:  "msg",
			LevelKey:    "level",
			TimeKey:     "time",
			EncodeLevel: zapcore.CapitalLevelEncoder,
			EncodeTime:  zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05"),
		},
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	l, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return l.Sugar()
}

func levelFromEnv() zapcore.Level {
	level := zapcore.DebugLevel
	if s := os.Getenv(LogLevelEnv); s != "" {
		if err := level.UnmarshalText([]byte(s)); err != nil {
			return zapcore.DebugLevel
		}
	}
	return level
}
