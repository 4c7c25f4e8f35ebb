package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger with domain-specific helpers
type Logger struct {
	zerolog.Logger
	out io.Writer // User-facing output
}

// New creates a logger writing to stderr. Output is human-readable on a terminal
// and JSON otherwise, or always JSON when asJSON is set.
func New(level string, asJSON bool) *Logger {
	var w io.Writer = os.Stderr
	if !asJSON && isatty.IsTerminal(os.Stderr.Fd()) {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}
	return NewWithWriter(w, level)
}

// NewWithWriter creates a logger writing structured output to w
func NewWithWriter(w io.Writer, level string) *Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	zl := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	return &Logger{Logger: zl, out: os.Stdout}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop(), out: io.Discard}
}

// WithComponent adds a component field to the logger
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.With().Str("component", component).Logger(), out: l.out}
}

// LogStorageOperation logs a reading store operation
func (l *Logger) LogStorageOperation(operation string, id int64) {
	l.Debug().Str("operation", operation).Int64("id", id).Msg("Storage operation")
}

// LogDerivation logs the size of a derived consumption result
func (l *Logger) LogDerivation(kind string, readings, groups, rows int) {
	l.Debug().
		Str("kind", kind).
		Int("readings", readings).
		Int("groups", groups).
		Int("rows", rows).
		Msg("Consumption derived")
}

// LogPublish logs a publish attempt to an external sink
func (l *Logger) LogPublish(sink, target string, err error) {
	if err != nil {
		l.Error().Err(err).Str("sink", sink).Str("target", target).Msg("Publish failed")
		return
	}
	l.Info().Str("sink", sink).Str("target", target).Msg("Published")
}

// UserMessage outputs a message directly to stdout (bypassing structured logging)
func (l *Logger) UserMessage(format string, args ...any) {
	fmt.Fprintf(l.out, format+"\n", args...)
}
