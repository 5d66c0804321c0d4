package log // import "github.com/dwarflint/dwarflint/internal/log"

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
)

// globalLogger holds a reference to the [slog.Logger] used within dwarflint.
//
// The default logger writes slog text records to stderr. This logger will
// show messages at the Info Level.
var (
	globalLevel  = func() *atomic.Pointer[slog.LevelVar] {
		lv := &slog.LevelVar{}
		lv.Set(slog.LevelInfo)
		p := new(atomic.Pointer[slog.LevelVar])
		p.Store(lv)
		return p
	}()
	globalLogger = func() *atomic.Pointer[slog.Logger] {
		l := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: globalLevel.Load(),
		}))

		p := new(atomic.Pointer[slog.Logger])
		p.Store(l)
		return p
	}()
)

// SetLogger sets the global Logger to l.
func SetLogger(l slog.Logger) {
	globalLogger.Store(&l)
}

// SetLevelLogger adjusts the minimum level the default handler emits.
// It has no effect if SetLogger installed a caller-supplied logger.
func SetLevelLogger(level slog.Level) {
	globalLevel.Load().Set(level)
}

// SetDebugLogger configures the global logger to write debug-level logs to stderr.
func SetDebugLogger() {
	SetLevelLogger(slog.LevelDebug)
}

// getLogger returns the global logger.
func getLogger() *slog.Logger {
	return globalLogger.Load()
}

// Infof logs informational messages about the validator's general state.
// This function is a wrapper around the structured slog-based logger,
// formatting the message as a string for backward compatibility with
// previous unstructured logging.
func Infof(msg string, keysAndValues ...any) {
	if getLogger().Enabled(context.Background(), slog.LevelInfo) {
		getLogger().Info(fmt.Sprintf(msg, keysAndValues...))
	}
}

// Info logs informational messages about the validator's general state.
// Unlike Infof, it logs msg as is, without formatting.
func Info(msg string) {
	if getLogger().Enabled(context.Background(), slog.LevelInfo) {
		getLogger().Info(msg)
	}
}

// Errorf logs error messages about exceptional, non-diagnostic states
// (I/O failures, corrupt containers) — never structural findings, which
// travel through internal/diag instead.
func Errorf(msg string, keysAndValues ...any) {
	if getLogger().Enabled(context.Background(), slog.LevelError) {
		getLogger().Error(fmt.Sprintf(msg, keysAndValues...))
	}
}

// Error logs error messages about exceptional states of the validator.
func Error(msg error) {
	if getLogger().Enabled(context.Background(), slog.LevelError) {
		getLogger().Error(msg.Error())
	}
}

// Debugf logs detailed debugging information about internal validator behavior.
func Debugf(msg string, keysAndValues ...any) {
	if getLogger().Enabled(context.Background(), slog.LevelDebug) {
		getLogger().Debug(fmt.Sprintf(msg, keysAndValues...))
	}
}

// Debug logs detailed debugging information about internal validator behavior.
func Debug(msg string) {
	if getLogger().Enabled(context.Background(), slog.LevelDebug) {
		getLogger().Debug(msg)
	}
}

// Warnf logs operational warnings — not structural findings, but likely
// more important than informational messages.
func Warnf(msg string, keysAndValues ...any) {
	if getLogger().Enabled(context.Background(), slog.LevelWarn) {
		getLogger().Warn(fmt.Sprintf(msg, keysAndValues...))
	}
}

// Warn logs operational warnings in the validator.
func Warn(msg string) {
	if getLogger().Enabled(context.Background(), slog.LevelWarn) {
		getLogger().Warn(msg)
	}
}

// Fatalf logs a fatal error message and exits the program.
func Fatalf(msg string, keysAndValues ...any) {
	Errorf(msg, keysAndValues...)
	os.Exit(1)
}
