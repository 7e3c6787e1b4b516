// Package vcslog provides the minimal optional logging hook used by
// the core. None of the teacher's own library code (as opposed to its
// CLI) pulls in a structured logging dependency, so this stays a thin
// interface with a no-op default rather than adopting a logging
// library the corpus never reaches for at this layer.
package vcslog

import "log"

// Logger is the diagnostic hook Repository accepts (via Options.Logger);
// backend factories take no Logger.
// Implementations must be safe to call from the single goroutine that
// owns a Repository; the core itself makes no concurrency guarantees
// around logging (see spec §5).
type Logger interface {
	Debugf(format string, args ...interface{})
}

// Nop discards everything logged through it; it is the default when a
// caller constructs a Repository without supplying a Logger.
var Nop Logger = nopLogger{}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}

// Std adapts the standard library's log.Logger to the Logger interface.
type Std struct {
	*log.Logger
}

func (s Std) Debugf(format string, args ...interface{}) {
	s.Logger.Printf(format, args...)
}
