package logger

import (
	"io"
	"log/slog"
	"os"

	"krishi-mitra-backend/internal/config"
)

// Logger is nil until InitLogger runs; the helpers below drop records until then.
var Logger *slog.Logger

// InitLogger installs the process logger on stdout.
func InitLogger(cfg *config.Config) {
	InitLoggerTo(os.Stdout, cfg)
}

// InitLoggerTo is InitLogger with an explicit sink. The ingest CLI points it at stderr
// so the progress bar and the report stay readable on stdout.
func InitLoggerTo(w io.Writer, cfg *config.Config) {
	level := Level(cfg)
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	Logger = slog.New(handler)
	Logger.Debug("Structured logging initialized", "level", level.String(), "format", cfg.LogFormat)
}

// Level resolves LOG_LEVEL, falling back to debug in gin debug mode and info otherwise.
func Level(cfg *config.Config) slog.Level {
	switch cfg.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if cfg.GinMode == "debug" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// With returns a child logger carrying args, or a discarding logger before init.
func With(args ...any) *slog.Logger {
	if Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return Logger.With(args...)
}

func Info(msg string, args ...any) {
	if Logger != nil {
		Logger.Info(msg, args...)
	}
}

func Error(msg string, args ...any) {
	if Logger != nil {
		Logger.Error(msg, args...)
	}
}

func Debug(msg string, args ...any) {
	if Logger != nil {
		Logger.Debug(msg, args...)
	}
}

func Warn(msg string, args ...any) {
	if Logger != nil {
		Logger.Warn(msg, args...)
	}
}
