package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the backend and sinks for New.
type Options struct {
	Backend string // "slog" (default) or "zap"
	Level   string // debug, info, warn, error
	File    string // optional rotating log file path
	MaxAge  time.Duration
}

// NewRotatingWriter returns a writer that rotates path daily, keeping files
// for maxAge. The current file is reachable through a symlink at path.
func NewRotatingWriter(path string, maxAge time.Duration) (io.Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o770); err != nil {
		return nil, fmt.Errorf("mkdir log dir: %w", err)
	}
	w, err := rotatelogs.New(
		path+".%Y%m%d",
		rotatelogs.WithLinkName(path),
		rotatelogs.WithMaxAge(maxAge),
		rotatelogs.WithRotationTime(24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("rotatelogs: %w", err)
	}
	return w, nil
}

// New builds the application logger. Output always goes to stdout and, when
// opts.File is set, to a rotating file as well.
func New(opts Options) (Logger, error) {
	var out io.Writer = os.Stdout
	if opts.File != "" {
		maxAge := opts.MaxAge
		if maxAge <= 0 {
			maxAge = 7 * 24 * time.Hour
		}
		fw, err := NewRotatingWriter(opts.File, maxAge)
		if err != nil {
			return nil, err
		}
		out = io.MultiWriter(os.Stdout, fw)
	}

	switch strings.ToLower(opts.Backend) {
	case "", "slog":
		return NewSlogJSON(out, slogLevel(opts.Level)), nil
	case "zap":
		core := NewZapCore(out, zapLevel(opts.Level))
		return NewZapLogger(zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))), nil
	default:
		return nil, fmt.Errorf("unknown log backend %q", opts.Backend)
	}
}

func slogLevel(l string) slog.Level {
	switch strings.ToLower(l) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func zapLevel(l string) zapcore.Level {
	switch strings.ToLower(l) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
