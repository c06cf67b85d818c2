// Package logging provides the leveled logger and the user-facing console writer.
//
// Diagnostics (debug, info, warn) go through zerolog. Console lines are progress
// messages meant for the person running the command and are printed regardless of level.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/umu-launcher/umu-setup/internal/messages"
)

// EnvLevel selects the log level.
const EnvLevel = "UMU_LOG"

// Logger pairs a zerolog logger with a console writer.
type Logger struct {
	zerolog.Logger

	console      io.Writer
	consoleColor *color.Color
}

// New returns a Logger writing diagnostics at level and above plus console lines to w.
func New(w io.Writer, level zerolog.Level) *Logger {
	if w == nil {
		w = io.Discard
	}
	cw := zerolog.ConsoleWriter{
		Out:          w,
		NoColor:      color.NoColor,
		PartsExclude: []string{zerolog.TimestampFieldName},
	}
	return &Logger{
		Logger:       zerolog.New(cw).Level(level),
		console:      w,
		consoleColor: color.New(color.Bold),
	}
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return &Logger{
		Logger:       zerolog.Nop(),
		console:      io.Discard,
		consoleColor: color.New(),
	}
}

// Quiet returns a copy of l whose console lines are discarded. Diagnostics are unchanged.
func (l *Logger) Quiet() *Logger {
	return &Logger{
		Logger:       l.Logger,
		console:      io.Discard,
		consoleColor: l.consoleColor,
	}
}

// Consolef prints a user-facing line. A trailing newline is added when missing.
func (l *Logger) Consolef(format string, args ...any) {
	if l == nil {
		return
	}
	line := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	_, _ = l.consoleColor.Fprint(l.console, line)
}

// ParseLevel maps a UMU_LOG value to a zerolog level. Empty selects warn.
func ParseLevel(raw string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.WarnLevel, nil
	case "1", "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	default:
		return zerolog.WarnLevel, fmt.Errorf(messages.ConfigInvalidLogLevelFmt, EnvLevel, raw)
	}
}
