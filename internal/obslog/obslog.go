// Package obslog constructs this module's zerolog.Logger: a colorized
// console writer when stderr is a terminal, file rotation via lumberjack
// when a log file path is configured, and a logbuf.Buffer tee so recent
// lines stay available in memory for a status/debug surface. Grounded on
// danmuck-edgectl's internal/observability/logger.go for the zerolog
// construction shape, and on the teacher's loggers.go for the
// lumberjack-or-stderr choice.
package obslog

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/minidsp/minidsp-go/internal/logbuf"
)

// Options configures New.
type Options struct {
	// App names the component in every log line's "app" field.
	App string

	// LogFile, if non-empty, rotates logs there via lumberjack instead of
	// writing to stderr.
	LogFile string

	// Verbose sets the minimum level to debug instead of info.
	Verbose bool

	// RingLines is how many recent lines logbuf.Buffer retains for
	// in-memory inspection. Zero disables the ring buffer tee.
	RingLines int
}

// New builds a zerolog.Logger per opts and returns it alongside the
// logbuf.Buffer it tees into, if RingLines > 0 (nil otherwise).
func New(opts Options) (zerolog.Logger, *logbuf.Buffer) {
	level := zerolog.InfoLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
	}

	var primary io.Writer
	if opts.LogFile != "" {
		primary = &lumberjack.Logger{
			Filename:   opts.LogFile,
			MaxSize:    20, // megabytes
			MaxBackups: 3,
		}
	} else {
		out := colorable.NewColorableStderr()
		if isatty.IsTerminal(os.Stderr.Fd()) {
			primary = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		} else {
			primary = out
		}
	}

	var ring *logbuf.Buffer
	writer := primary
	if opts.RingLines > 0 {
		ring = logbuf.New(opts.RingLines, 200)
		writer = io.MultiWriter(primary, ring)
	}

	logger := zerolog.New(writer).Level(level).With().
		Timestamp().
		Str("app", opts.App).
		Logger()
	return logger, ring
}
