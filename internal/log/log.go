// Package log sets up the process-wide logger used by slimd.
package log

import (
	stdlog "log"
	"log/syslog"
	"os"
	"runtime/debug"

	"github.com/op/go-logging"
)

var Log = logging.MustGetLogger("slimd")

var syslogFormat = logging.MustStringFormatter(
	`%{time:15:04:05.000} %{level:.6s} ▶ %{message}`,
)
var stderrFormat = logging.MustStringFormatter(
	`%{color}slimd ▶ %{message}%{color:reset}`,
)

// SetupLogging installs a backend for prefix: syslog when trySyslog succeeds,
// otherwise colored stderr. The level can be overridden at runtime with the
// SLIMD_LOG_LEVEL environment variable.
func SetupLogging(prefix string, defaultLevel logging.Level, trySyslog bool) *logging.Logger {
	var backend logging.Backend
	if trySyslog {
		syslogBackend, err := logging.NewSyslogBackendPriority(prefix, syslog.LOG_NOTICE)
		if err == nil {
			backend = syslogBackend
			logging.SetFormatter(syslogFormat)
			stdlog.SetOutput(syslogBackend.Writer)
		}
	}
	if backend == nil {
		backend = logging.NewLogBackend(os.Stderr, prefix, 0)
		logging.SetFormatter(stderrFormat)
	}

	leveled := logging.AddModuleLevel(backend)
	switch os.Getenv("SLIMD_LOG_LEVEL") {
	case "CRITICAL":
		leveled.SetLevel(logging.CRITICAL, prefix)
	case "ERROR":
		leveled.SetLevel(logging.ERROR, prefix)
	case "WARNING":
		leveled.SetLevel(logging.WARNING, prefix)
	case "NOTICE":
		leveled.SetLevel(logging.NOTICE, prefix)
	case "INFO":
		leveled.SetLevel(logging.INFO, prefix)
	case "DEBUG":
		leveled.SetLevel(logging.DEBUG, prefix)
	default:
		leveled.SetLevel(defaultLevel, prefix)
	}

	logging.SetBackend(leveled)
	return Log
}

// RecoverToLog runs f, logging and swallowing any panic instead of letting
// it propagate. Used around each session lane so a panic in one lane does
// not take down the listener.
func RecoverToLog(f func(), log *logging.Logger) {
	defer func() {
		if x := recover(); x != nil {
			if log != nil {
				log.Errorf("run time panic: %v", x)
				log.Error(string(debug.Stack()))
			}
		}
	}()
	f()
}
