package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects where a program logs and how much.
type Options struct {
	Path      string
	Component string
	// Level is a zap level name; empty means info.
	Level string
	// Console adds a human-readable copy on stderr. Leave it off for
	// programs that own the terminal.
	Console bool
}

// New creates a zap logger writing JSON lines to opts.Path. Every entry
// carries the component and PID.
func New(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		l, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		level = l
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0700); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}

	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(file), level)
	if opts.Console {
		console := enc
		console.EncodeLevel = zapcore.CapitalColorLevelEncoder
		core = zapcore.NewTee(core,
			zapcore.NewCore(zapcore.NewConsoleEncoder(console), zapcore.Lock(os.Stderr), level))
	}

	return zap.New(core, zap.Fields(
		zap.String("component", opts.Component),
		zap.Int("pid", os.Getpid()),
	)), nil
}
