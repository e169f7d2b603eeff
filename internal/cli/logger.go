package cli

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/enri312/forge/internal/logging"
)

// globalLogger stores the logger initialized by the root command's
// PersistentPreRunE, for subcommand handlers that need it outside the
// context a cobra.Command carries.
var (
	globalLogger   zerolog.Logger //nolint:gochecknoglobals // CLI-wide logger access
	globalLoggerMu sync.RWMutex   //nolint:gochecknoglobals // protects globalLogger
)

// GetLogger returns the logger initialized for this process. It must
// only be called after the root command's PersistentPreRunE has run;
// calling it earlier returns a zero-value logger that discards output.
func GetLogger() zerolog.Logger {
	globalLoggerMu.RLock()
	defer globalLoggerMu.RUnlock()
	return globalLogger
}

func setGlobalLogger(l zerolog.Logger) {
	globalLoggerMu.Lock()
	globalLogger = l
	globalLoggerMu.Unlock()
}

func initLoggerFromFlags(flags *GlobalFlags) zerolog.Logger {
	l := logging.InitLogger(logging.Options{Verbose: flags.Verbose, Quiet: flags.Quiet})
	setGlobalLogger(l)
	return l
}
