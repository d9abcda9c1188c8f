// Package logging provides a minimal logging interface and adapters for
// CauseMesh.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) used by the registry and the causal lock decorator for
// diagnostics. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewLogger(&logging.Config{Level: logging.LogLevelDebug, Format: "text"})
//	reg := registry.New(func(o *registry.Options) { o.Logger = logger })
//
// The design intentionally keeps the interface minimal so any structured
// logger can be plugged in.
package logging
