// Package logging builds the slog loggers used across recall and holds the
// canonical attribute helpers and field names components log with.
//
// Two output formats exist: a console handler for interactive use and a
// JSON handler for machine-readable logs. Components attach themselves via
// NewComponentLogger so every record carries a component attribute.
package logging
