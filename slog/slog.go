// Package slog provides structured logging decorators for the engine's
// service interfaces.
package slog
