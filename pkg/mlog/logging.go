// Package mlog configures modforge's structured logging. It mirrors the
// teacher's dual console+file zerolog setup: pretty console output for
// interactive use, an append-only log file for post-mortem debugging of
// transactions that aborted mid-flight.
package mlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global logger based on verbosity: 0=warn, 1=info,
// 2=debug (with caller info), 3+=trace.
func Setup(verbosity int) {
	switch {
	case verbosity <= 0:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case verbosity == 1:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case verbosity == 2:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.Kitchen,
	}

	writers := []io.Writer{consoleWriter}

	logFile := logFilePath()
	if handle, err := openLogFile(logFile); err == nil {
		writers = append(writers, handle)
	} else {
		log.Warn().Err(err).Str("path", logFile).Msg("could not open log file, logging to console only")
	}

	log.Logger = zerolog.New(io.MultiWriter(writers...)).With().Timestamp().Logger()

	if verbosity >= 2 {
		log.Logger = log.Logger.With().Caller().Logger()
	}

	log.Debug().Int("verbosity", verbosity).Str("logFile", logFile).Msg("logger initialized")
}

// Get returns a logger tagged with the given component name, whose own
// level is the global level in effect when Get is called.
func Get(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger().Level(zerolog.GlobalLevel())
}

func logFilePath() string {
	if xdg.StateHome == "" {
		return "modforge.log"
	}
	return filepath.Join(xdg.StateHome, "modforge", "modforge.log")
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
}

// OperationTimer logs the start of a named operation and returns a func to
// call on completion, which logs the elapsed duration. Used to bracket
// transaction prepare/commit phases and bulk enable/disable runs.
func OperationTimer(logger zerolog.Logger, operation string) func() {
	start := time.Now()
	logger.Debug().Str("operation", operation).Msg("operation started")
	return func() {
		logger.Debug().Str("operation", operation).Dur("duration", time.Since(start)).Msg("operation completed")
	}
}
