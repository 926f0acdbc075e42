package monitoring

import (
	"log"
	"sync/atomic"
)

// Logf is the package-level diagnostic logger used by every estimation
// layer. It defaults to log.Printf; SetLogger redirects or mutes it.
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

// SetVerbose toggles Debugf output for all component loggers.
func SetVerbose(on bool) { verbose.Store(on) }

// Verbose reports whether debug output is enabled.
func Verbose() bool { return verbose.Load() }

// Logger prefixes messages with a component tag such as "[position]".
type Logger struct {
	prefix string
}

// Component returns a Logger that tags every line with name.
func Component(name string) Logger {
	return Logger{prefix: "[" + name + "] "}
}

// Printf always logs.
func (l Logger) Printf(format string, v ...interface{}) {
	Logf(l.prefix+format, v...)
}

// Debugf logs only when verbose output has been enabled.
func (l Logger) Debugf(format string, v ...interface{}) {
	if !verbose.Load() {
		return
	}
	Logf(l.prefix+format, v...)
}
