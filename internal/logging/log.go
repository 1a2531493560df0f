// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package logging provides leveled diagnostic logging for cerestat.
// Command output (packets, statistics) is printed directly by the commands;
// this package is for connection and lifecycle messages.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"
)

// Levels accepted by SetLevel
const HelpLevels = "Must be one of: debug, info, warn, error."

var levels = map[string]pterm.LogLevel{
	"debug":   pterm.LogLevelDebug,
	"info":    pterm.LogLevelInfo,
	"warn":    pterm.LogLevelWarn,
	"warning": pterm.LogLevelWarn,
	"error":   pterm.LogLevelError,
}

func init() {
	pterm.DefaultLogger.ShowTime = true
	pterm.DefaultLogger.TimeFormat = "15:04:05.000"
	pterm.DefaultLogger.MaxWidth = 1000
}

// SetLevel sets the minimum level that is printed
func SetLevel(level string) error {
	l, ok := levels[strings.ToLower(level)]
	if !ok {
		return fmt.Errorf("unknown log level %q. %s", level, HelpLevels)
	}
	pterm.DefaultLogger.Level = l
	return nil
}

// SetOutput redirects log output, e.g. away from the terminal while a TUI
// owns it. It returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	previous := pterm.DefaultLogger.Writer
	pterm.DefaultLogger.Writer = w
	return previous
}

func Debug(format string, args ...interface{}) {
	pterm.DefaultLogger.Debug(fmt.Sprintf(format, args...))
}

func Info(format string, args ...interface{}) {
	pterm.DefaultLogger.Info(fmt.Sprintf(format, args...))
}

func Warn(format string, args ...interface{}) {
	pterm.DefaultLogger.Warn(fmt.Sprintf(format, args...))
}

func Error(format string, args ...interface{}) {
	pterm.DefaultLogger.Error(fmt.Sprintf(format, args...))
}
