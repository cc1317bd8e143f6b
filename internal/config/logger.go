package config

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds the production logger. When a log file is configured the
// output is written to stdout and to the rotated file.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	if cfg.LogFile.Path == "" {
		return zapCfg.Build()
	}

	encoder := zapcore.NewJSONEncoder(zapCfg.EncoderConfig)
	rotated := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.LogFile.Path,
		MaxSize:    cfg.LogFile.MaxSizeMB,
		MaxBackups: cfg.LogFile.MaxBackups,
		MaxAge:     cfg.LogFile.MaxAgeDays,
	})
	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), zapCfg.Level),
		zapcore.NewCore(encoder, rotated, zapCfg.Level),
	)
	return zap.New(core, zap.AddCaller()), nil
}
