// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package logger sets up structured logging and carries the logger through
// a [context.Context].
package logger

import (
	"cmp"
	"context"
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is a [slog.Logger] with an adjustable level.
type Logger struct {
	*slog.Logger
	Level *slog.LevelVar
}

// Options configure a [Logger].
type Options struct {
	// File, if set, receives a copy of every log line. It is rotated once it
	// grows past MaxSizeMB.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// New returns a Logger writing human-readable lines to w and, if set, to
// opts.File. The returned closer flushes and closes the log file.
func New(w io.Writer, opts Options) (*Logger, io.Closer) {
	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		lj := rotatingFile(opts)
		w = io.MultiWriter(w, lj)
		closer = lj
	}

	level := new(slog.LevelVar)
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})),
		Level:  level,
	}, closer
}

func rotatingFile(opts Options) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    cmp.Or(opts.MaxSizeMB, 16),
		MaxBackups: cmp.Or(opts.MaxBackups, 3),
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

type ctxKey struct{}

// Put returns a copy of ctx carrying l.
func Put(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// Get returns the Logger stored in ctx by [Put], or a Logger wrapping
// [slog.Default] if there is none.
func Get(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return &Logger{Logger: slog.Default(), Level: new(slog.LevelVar)}
}
