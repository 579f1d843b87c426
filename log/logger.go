// Package log provides the harness loggers built on zerolog.
//
// Loggers are disabled until Init is called, so library code can log freely
// without producing output in tests or when embedded.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LoggerType selects the output encoding.
type LoggerType uint8

const (
	ConsoleLogger LoggerType = iota
	JSONLogger
)

var (
	Root    = zerolog.Nop()
	Harness = zerolog.Nop()
	Memory  = zerolog.Nop()
	CoSim   = zerolog.Nop()
)

// Options for Init.
type Options struct {
	LogLevel zerolog.Level
	Type     LoggerType

	// Out defaults to os.Stderr. The console is reserved for program output
	// and the trace table.
	Out io.Writer
}

// ParseLogLevel parses a level name such as "debug" or "warn".
func ParseLogLevel(level string) (zerolog.Level, error) {
	return zerolog.ParseLevel(level)
}

// Init builds the root logger and derives the component loggers from it.
func Init(opts Options) {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	switch opts.Type {
	case ConsoleLogger:
		Root = zerolog.New(newConsoleWriter(out)).Level(opts.LogLevel).
			With().Timestamp().Logger()
	default:
		Root = zerolog.New(out).Level(opts.LogLevel).
			With().Timestamp().Logger()
	}

	Harness = Root.With().Str("component", "harness").Logger()
	Memory = Root.With().Str("component", "memory").Logger()
	CoSim = Root.With().Str("component", "cosim").Logger()
}

func newConsoleWriter(out io.Writer) zerolog.ConsoleWriter {
	cw := zerolog.ConsoleWriter{Out: out, NoColor: true, TimeFormat: time.RFC3339}

	cw.FormatLevel = func(i interface{}) string {
		return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
	}

	cw.FormatFieldName = func(i interface{}) string {
		return fmt.Sprintf("%s=", i)
	}

	return cw
}
