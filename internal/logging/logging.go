// Package logging constructs the loggers used across the engine.
//
// Interactive commands log to stderr; the daemon logs to a size-rotated file
// so long-running instances never fill the disk.
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// RotationConfig bounds the daemon log file.
type RotationConfig struct {
	// Path is the log file location.
	Path string

	// MaxSizeMB is the size at which the file rotates (default 10).
	MaxSizeMB int

	// MaxBackups is how many rotated files are kept (default 3).
	MaxBackups int

	// MaxAgeDays is how long rotated files are kept (default 28).
	MaxAgeDays int
}

// NewStderr returns a logger writing to stderr with the given prefix.
func NewStderr(prefix string) *log.Logger {
	return log.New(os.Stderr, prefix, log.LstdFlags)
}

// NewRotating returns a logger writing to a size-rotated file. The file and
// its parent directories are created on first write.
func NewRotating(cfg RotationConfig, prefix string) *log.Logger {
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 3
	}
	if cfg.MaxAgeDays <= 0 {
		cfg.MaxAgeDays = 28
	}

	var w io.Writer = &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
	if cfg.Path == "" {
		w = os.Stderr
	}
	return log.New(w, prefix, log.LstdFlags)
}
