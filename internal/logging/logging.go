// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the structured logger used across vidion-ai.
//
// Logs go to a rotated file only. The terminal is owned by the TUI, so
// nothing may write to stdout or stderr while the program runs.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls log destination and rotation.
type Options struct {
	// Filename is the log file path, e.g. ~/.vidion/logs/vidion.log.
	Filename string

	// MaxSizeMB rotates the file once it exceeds this size.
	MaxSizeMB int

	// MaxBackups is how many rotated files to keep.
	MaxBackups int

	// MaxAgeDays drops rotated files older than this.
	MaxAgeDays int

	// Level is the minimum level to record.
	Level zapcore.Level

	// Compress gzips rotated files.
	Compress bool
}

// DefaultOptions returns rotation settings suitable for a desktop client.
func DefaultOptions(filename string) Options {
	return Options{
		Filename:   filename,
		MaxSizeMB:  20,
		MaxBackups: 3,
		MaxAgeDays: 14,
		Level:      zapcore.InfoLevel,
		Compress:   true,
	}
}

// New builds a file-backed zap logger with rotation handled by lumberjack.
func New(opts Options) *zap.Logger {
	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	fileWriter := zapcore.AddSync(&lumberjack.Logger{
		Filename:   opts.Filename,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	})

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), fileWriter, opts.Level)

	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
}

// Named returns a child logger tagged with a component name.
func Named(logger *zap.Logger, component string) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger.With(zap.String("component", component))
}
