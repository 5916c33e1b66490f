package model

//
// Logger
//

// Logger receives the diagnostic messages that the serializers,
// parsers, and paginators emit while walking a shape graph. The
// interface is satisfied out of the box by `log.Log` in `apex/log`;
// any other structured logger adapts with a six-method shim.
//
// Library code never logs above warning: a condition worth more than
// a warning is returned as an error instead.
type Logger interface {
	// Debug emits a debug message.
	Debug(msg string)

	// Debugf formats and emits a debug message.
	Debugf(format string, v ...interface{})

	// Info emits an informational message.
	Info(msg string)

	// Infof formats and emits an informational message.
	Infof(format string, v ...interface{})

	// Warn emits a warning message.
	Warn(msg string)

	// Warnf formats and emits a warning message.
	Warnf(format string, v ...interface{})
}

// DiscardLogger is a [Logger] that drops every message. It is the
// logger used when a constructor receives nil.
var DiscardLogger Logger = logDiscarder{}

type logDiscarder struct{}

func (logDiscarder) Debug(msg string) {}
func (logDiscarder) Debugf(format string, v ...interface{}) {}
func (logDiscarder) Info(msg string) {}
func (logDiscarder) Infof(format string, v ...interface{}) {}
func (logDiscarder) Warn(msg string) {}
func (logDiscarder) Warnf(format string, v ...interface{}) {}

// ValidLoggerOrDefault returns logger when it is not nil and
// [DiscardLogger] otherwise.
func ValidLoggerOrDefault(logger Logger) Logger {
	if logger != nil {
		return logger
	}
	return DiscardLogger
}
