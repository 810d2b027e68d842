package log

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/natefinch/lumberjack"
)

type Options struct {
	Env   string
	Level slog.Level
	// File, when set, also receives every record. It is rotated at 50 MB and
	// kept for 14 days.
	File string
}

// New builds the process logger: colored console output in local, JSON
// elsewhere, always wrapped in a ContextHandler. The returned func closes the
// log file, if any.
func New(opts Options) (*slog.Logger, func() error) {
	return newLogger(os.Stdout, opts)
}

func newLogger(stdout io.Writer, opts Options) (*slog.Logger, func() error) {
	var (
		out     = stdout
		closeFn = func() error { return nil }
	)
	if opts.File != "" {
		file := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     14,
			Compress:   true,
		}
		out = io.MultiWriter(stdout, file)
		closeFn = file.Close
	}

	var inner slog.Handler
	if opts.Env == "local" {
		inner = tint.NewHandler(out, &tint.Options{
			Level:      opts.Level,
			TimeFormat: time.Kitchen,
			NoColor:    opts.File != "",
		})
	} else {
		inner = slog.NewJSONHandler(out, &slog.HandlerOptions{
			Level: opts.Level,
		})
	}
	return slog.New(NewContextHandler(inner)), closeFn
}
