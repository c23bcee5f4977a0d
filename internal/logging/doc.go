// Package logging assembles structured slog loggers and formatting helpers used
// across PetSync services.
//
// It owns the configurable console/JSON handlers, log file rotation, and
// context-aware helpers so sync code can automatically tag log lines with
// action IDs, action types, and correlation IDs. The package also provides a
// no-op logger for tests and wiring code that cannot fail.
package logging
