// SPDX-License-Identifier: MIT
//
// Copyright (C) 2026 The Meshcore Authors.

// Package meshlog provides structured leveled logging for the mesh core,
// built directly on the standard library's log.Logger (see DESIGN.md for
// why no external logging dependency is pulled in here).
package meshlog

import (
	"io"
	"log"
	"os"
)

const (
	LevelSilent = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
)

// Logger is the leveled logging interface consumed throughout the core.
// A Logger must be safe for concurrent use, since it is called from both
// application and transport callback goroutines.
type Logger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

var _ Logger = (*StdLogger)(nil)

// StdLogger is the default Logger, built on four independently gated
// log.Logger instances — one per level — so a level below the configured
// threshold costs nothing beyond the initial io.Discard write.
type StdLogger struct {
	debug *log.Logger
	info  *log.Logger
	warn  *log.Logger
	err   *log.Logger
}

// NewLogger builds a StdLogger writing to stdout, gated at level, each
// line prefixed with prefix.
func NewLogger(level int, prefix string) *StdLogger {
	return NewLoggerWithOutput(level, prefix, os.Stdout)
}

// NewLoggerWithOutput is NewLogger with an explicit output writer, for
// tests and hosts that want logs routed elsewhere.
func NewLoggerWithOutput(level int, prefix string, out io.Writer) *StdLogger {
	pick := func(minLevel int) io.Writer {
		if level >= minLevel {
			return out
		}
		return io.Discard
	}
	flags := log.Ldate | log.Ltime
	return &StdLogger{
		debug: log.New(pick(LevelDebug), "DEBUG: "+prefix, flags),
		info:  log.New(pick(LevelInfo), "INFO: "+prefix, flags),
		warn:  log.New(pick(LevelWarn), "WARN: "+prefix, flags),
		err:   log.New(pick(LevelError), "ERROR: "+prefix, flags),
	}
}

func (l *StdLogger) Debugf(format string, v ...interface{}) { l.debug.Printf(format, v...) }
func (l *StdLogger) Infof(format string, v ...interface{})  { l.info.Printf(format, v...) }
func (l *StdLogger) Warnf(format string, v ...interface{})  { l.warn.Printf(format, v...) }
func (l *StdLogger) Errorf(format string, v ...interface{}) { l.err.Printf(format, v...) }

// Discard is a Logger that drops everything, useful as a default when a
// host doesn't configure one.
var Discard Logger = discardLogger{}

type discardLogger struct{}

func (discardLogger) Debugf(string, ...interface{}) {}
func (discardLogger) Infof(string, ...interface{})  {}
func (discardLogger) Warnf(string, ...interface{})  {}
func (discardLogger) Errorf(string, ...interface{}) {}
