// Package logging provides a minimal logging interface and adapters for agentmem.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the memory, runner and agent facades use for observability. Arguments after
// the message are slog-style key/value pairs. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - StructuredLogger with component / user context and domain helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	mem, _ := memory.New(provider, "u1", func(o *memory.Options) { o.Logger = logger })
package logging
