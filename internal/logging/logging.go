// Package logging configures the engine's structured logger. All
// components accept a zerolog.Logger (or read one from a
// context.Context via zerolog.Ctx) rather than reaching for a package
// global, so the engine can be embedded and tested without leaking
// log state across builds.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// LogMaxSizeMB is the size in megabytes at which the rotating log file rolls over.
	LogMaxSizeMB = 20
	// LogMaxBackups is the number of rotated log files kept around.
	LogMaxBackups = 5
	// LogMaxAgeDays is how long rotated log files are retained.
	LogMaxAgeDays = 28
)

// Options controls how InitLogger builds the engine logger.
type Options struct {
	// Verbose selects debug-level logging.
	Verbose bool
	// Quiet selects warn-level logging (overridden by Verbose).
	Quiet bool
	// LogFile, if non-empty, additionally writes rotated JSON logs there.
	LogFile string
}

// InitLogger builds a zerolog.Logger appropriate for the current
// terminal: a colorized console writer for a TTY, JSON to stderr
// otherwise, optionally tee'd to a rotating log file.
func InitLogger(opts Options) zerolog.Logger {
	level := selectLevel(opts.Verbose, opts.Quiet)
	writer := selectOutput()

	if opts.LogFile != "" {
		if fw, err := newRotatingFileWriter(opts.LogFile); err == nil {
			writer = zerolog.MultiLevelWriter(writer, fw)
		}
	}

	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

func selectLevel(verbose, quiet bool) zerolog.Level {
	switch {
	case verbose:
		return zerolog.DebugLevel
	case quiet:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

func selectOutput() io.Writer {
	if term.IsTerminal(int(os.Stderr.Fd())) && os.Getenv("NO_COLOR") == "" {
		return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}
	return os.Stderr
}

func newRotatingFileWriter(path string) (io.Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, err
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    LogMaxSizeMB,
		MaxBackups: LogMaxBackups,
		MaxAge:     LogMaxAgeDays,
		Compress:   true,
	}, nil
}
