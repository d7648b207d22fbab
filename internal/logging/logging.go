// Package logging builds the process logger. Call sites use log/slog; records
// are encoded by zap.
package logging

import (
	"fmt"
	"log/slog"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

// New returns a zap logger for the given level. Development builds use the
// console encoder, everything else emits JSON.
func New(level string, development bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	var zcfg zap.Config
	if development {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
		zcfg.EncoderConfig.TimeKey = "time"
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)

	return zcfg.Build()
}

// Slog wraps a zap logger in a slog.Logger.
func Slog(zl *zap.Logger) *slog.Logger {
	return slog.New(zapslog.NewHandler(zl.Core(), zapslog.WithCaller(true)))
}

// Setup builds the logger, installs it as the slog default and returns a
// flush function to defer from main.
func Setup(level string, development bool) (func(), error) {
	zl, err := New(level, development)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(Slog(zl))
	return func() { _ = zl.Sync() }, nil
}
