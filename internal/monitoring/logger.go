// Package monitoring holds the process-wide diagnostic loggers used by the
// clustering engine and the over-cleaning filter.
package monitoring

import (
	"log"
	"sync/atomic"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

var verbose atomic.Bool

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetVerbose enables or disables Debugf output.
func SetVerbose(on bool) {
	verbose.Store(on)
}

// Verbose reports whether Debugf output is enabled.
func Verbose() bool {
	return verbose.Load()
}

// Debugf forwards to Logf only when verbose output is enabled. Per-hit and
// per-iteration diagnostics go through here so that the hot path stays quiet
// in production.
func Debugf(format string, v ...interface{}) {
	if !verbose.Load() {
		return
	}
	Logf(format, v...)
}
