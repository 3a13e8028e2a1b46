package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mrz1836/checkin/internal/config"
	"github.com/mrz1836/checkin/internal/constants"
	"github.com/mrz1836/checkin/internal/engine"
	"github.com/mrz1836/checkin/internal/logging"
)

// logDirPerm is the permission of created log directories.
const logDirPerm = 0o750

// logFilePerm is the permission of the per-run log file.
const logFilePerm = 0o600

// zerologGlobalMu protects concurrent writes to the zerolog global logger.
var zerologGlobalMu sync.Mutex //nolint:gochecknoglobals // Protects zerolog global

// InitLogger creates the console logger used before a run's configuration
// is known.
//
// Log levels are set as follows:
//   - verbose=true: Debug level (most detailed)
//   - quiet=true: Warn level (errors and warnings only)
//   - default: Info level (normal operation)
//
// Output is a console writer on a TTY without NO_COLOR, JSON on stderr
// otherwise. Both pass through the sensitive data filter.
func InitLogger(verbose, quiet bool) zerolog.Logger {
	return InitLoggerWithWriter(verbose, quiet, selectOutput())
}

// InitLoggerWithWriter creates and configures a zerolog.Logger with a custom writer.
// This is primarily intended for testing purposes.
func InitLoggerWithWriter(verbose, quiet bool, w io.Writer) zerolog.Logger {
	logger := buildLogger(selectLevel(verbose, quiet), w)
	setGlobalLogger(logger)
	return logger
}

func buildLogger(level zerolog.Level, w io.Writer) zerolog.Logger {
	return zerolog.New(w).Level(level).Hook(logging.NewSensitiveDataHook()).With().Timestamp().Logger()
}

// setGlobalLogger points the zerolog/log package logger at ours.
func setGlobalLogger(cliLogger zerolog.Logger) {
	zerologGlobalMu.Lock()
	defer zerologGlobalMu.Unlock()
	log.Logger = cliLogger
}

// selectLevel determines the appropriate log level based on flags.
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

// selectOutput determines the console writer from terminal capabilities
// and environment settings.
func selectOutput() io.Writer {
	filtered := logging.NewFilteringWriter(os.Stderr)
	if term.IsTerminal(int(os.Stderr.Fd())) && os.Getenv("NO_COLOR") == "" {
		return zerolog.ConsoleWriter{
			Out:        filtered,
			TimeFormat: time.Kitchen,
		}
	}
	return filtered
}

// RunLogs is the set of sinks for one run: the console, the per-run log
// that is attached to the report, and the rotating history log.
type RunLogs struct {
	// Logger writes to every sink.
	Logger zerolog.Logger

	// RunLogPath is the per-run log file.
	RunLogPath string

	// HistoryPath is the history log, empty when disabled.
	HistoryPath string

	closers []io.Closer
}

// OpenRunLogs opens the per-run log in the scratch directory and, when
// enabled, the history log. The per-run log always records debug level so
// the attachment is complete whatever the console verbosity. A history log
// that cannot be opened is skipped with a warning.
func OpenRunLogs(cfg *config.Config, runID string, level zerolog.Level, console io.Writer) (*RunLogs, error) {
	logs := &RunLogs{RunLogPath: engine.LogPath(cfg.Artifacts.ScratchDir, runID)}

	if err := os.MkdirAll(filepath.Dir(logs.RunLogPath), logDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	runFile, err := os.OpenFile(logs.RunLogPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, logFilePerm) //#nosec G304 -- path is constructed internally
	if err != nil {
		return nil, fmt.Errorf("failed to open run log: %w", err)
	}
	logs.closers = append(logs.closers, runFile)

	writers := []io.Writer{
		zerolog.ConsoleWriter{Out: logging.NewFilteringWriter(runFile), NoColor: true, TimeFormat: time.RFC3339},
	}

	var historyErr error
	if cfg.Logging.History {
		history, path, err := openHistoryLog(&cfg.Logging)
		if err != nil {
			historyErr = err
		} else {
			logs.HistoryPath = path
			logs.closers = append(logs.closers, history)
			writers = append(writers, history)
		}
	}

	// The console keeps the requested verbosity; the files take everything.
	console = &zerolog.FilteredLevelWriter{
		Writer: zerolog.LevelWriterAdapter{Writer: console},
		Level:  level,
	}
	writers = append([]io.Writer{console}, writers...)

	logs.Logger = buildLogger(zerolog.DebugLevel, zerolog.MultiLevelWriter(writers...)).
		With().Str("run_id", runID).Logger()

	if historyErr != nil {
		logs.Logger.Warn().Err(historyErr).Msg("history log unavailable, continuing without it")
	}
	setGlobalLogger(logs.Logger)
	return logs, nil
}

// Close closes every file sink.
func (l *RunLogs) Close() error {
	var first error
	for _, c := range l.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	l.closers = nil
	return first
}

// openHistoryLog creates the rotating history log writer, wrapped with a
// filtering writer.
func openHistoryLog(cfg *config.LoggingConfig) (io.WriteCloser, string, error) {
	path, err := config.HistoryLogPath(cfg)
	if err != nil {
		return nil, "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), logDirPerm); err != nil {
		return nil, "", fmt.Errorf("failed to create log directory: %w", err)
	}

	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    constants.LogMaxSizeMB,
		MaxBackups: constants.LogMaxBackups,
		MaxAge:     constants.LogMaxAgeDays,
		Compress:   constants.LogCompress,
	}
	return logging.NewFilteringWriteCloser(lj), path, nil
}
