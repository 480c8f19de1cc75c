// Package logging builds the slog loggers used across webcast.
//
// Two output formats exist: a compact console format for interactive runs
// and JSON for log shipping. Component loggers carry a "component" attribute
// that the console handler renders as a message prefix.
package logging
