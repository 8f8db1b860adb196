// Package logx provides nekopara's structured logging on top of zerolog.
//
// It exposes a small Logger value type with in-order Field helpers and a
// Service that owns the sinks (console, file) and can swap levels and
// outputs at runtime via Apply(). Loggers handed out by the Service stay
// live across Apply() calls, so hot-reloading the log level never requires
// re-plumbing loggers through the program.
package logx
