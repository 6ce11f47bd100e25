package logger

import (
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Init sends JSON logs at level and above to a rotating file at path and
// installs the logger as the slog default. The terminal belongs to the TUI,
// so nothing is written to stdout. The returned closer flushes the file.
func Init(path string, level slog.Level) (*slog.Logger, io.Closer) {
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // MB
		MaxBackups: 3,
		Compress:   false,
	}
	log := slog.New(slog.NewJSONHandler(rotator, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)
	return log, rotator
}
