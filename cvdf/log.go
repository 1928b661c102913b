package cvdf

import "time"

// ModeFlag is a message severity.  The package drops anything below the
// current mode.
type ModeFlag uint

const (
	DebugMode ModeFlag = iota
	InfoMode
	WarningMode
	ErrorMode
	CriticalMode
	SilentMode
)

var mode = InfoMode

// Logger receives messages that pass the mode threshold.  Formatting follows
// fmt.Printf.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Criticalf(format string, args ...interface{})

	// Shutdown flushes and closes any log file.
	Shutdown()
}

// SetLogMode sets the lowest severity that still reaches the logger.
// SilentMode drops everything.
func SetLogMode(newMode ModeFlag) {
	mode = newMode
}

// LogMode returns the lowest severity that reaches the logger.
func LogMode() ModeFlag {
	return mode
}

// emit hands a message to l if its severity passes the current mode.
func emit(l Logger, level ModeFlag, format string, args []interface{}) {
	if level < mode {
		return
	}
	switch level {
	case DebugMode:
		l.Debugf(format, args...)
	case InfoMode:
		l.Infof(format, args...)
	case WarningMode:
		l.Warningf(format, args...)
	case ErrorMode:
		l.Errorf(format, args...)
	case CriticalMode:
		l.Criticalf(format, args...)
	}
}

func Debugf(format string, args ...interface{}) { emit(logger, DebugMode, format, args) }
func Infof(format string, args ...interface{}) { emit(logger, InfoMode, format, args) }
func Warningf(format string, args ...interface{}) { emit(logger, WarningMode, format, args) }
func Errorf(format string, args ...interface{}) { emit(logger, ErrorMode, format, args) }
func Criticalf(format string, args ...interface{}) { emit(logger, CriticalMode, format, args) }

// Shutdown closes the log file opened by LogConfig.SetLogger, if any.
func Shutdown() {
	logger.Shutdown()
}

// TimeLog suffixes each message with the time since NewTimeLog:
//
//	timedLog := cvdf.NewTimeLog()
//	...
//	timedLog.Infof("wrote %s", path) // "wrote /tmp/x.vdf: 1.2s"
type TimeLog struct {
	start time.Time
}

func NewTimeLog() TimeLog {
	return TimeLog{start: time.Now()}
}

func (t TimeLog) timed(level ModeFlag, format string, args []interface{}) {
	if level < mode {
		return
	}
	emit(logger, level, format+": %s\n", append(args, time.Since(t.start)))
}

func (t TimeLog) Debugf(format string, args ...interface{}) { t.timed(DebugMode, format, args) }
func (t TimeLog) Infof(format string, args ...interface{}) { t.timed(InfoMode, format, args) }
func (t TimeLog) Warningf(format string, args ...interface{}) { t.timed(WarningMode, format, args) }
