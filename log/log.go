// Package log provides a public logging interface for the dwarflint validator.
package log // import "github.com/dwarflint/dwarflint/log"

import (
	"log/slog"

	"github.com/dwarflint/dwarflint/internal/log"
)

// SetLevel configures the log level for the validator's internal logger.
func SetLevel(level slog.Level) {
	log.SetLevelLogger(level)
}

// SetLogger configures the validator's internal logger.
func SetLogger(l slog.Logger) {
	log.SetLogger(l)
}
