// Package monitoring holds the diagnostic logger shared by the library
// packages.
package monitoring

import (
	"log"
	"time"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but
// may be replaced by SetLogger; tests usually mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// LogPhase logs how long a pipeline phase took.
func LogPhase(phase string, d time.Duration) {
	Logf("%s took %.2fs", phase, d.Seconds())
}
