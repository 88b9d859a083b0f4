package shmem

import "github.com/srediag/shmem/internal/logx"

// Log levels for SetLogLevel.
const (
	LogLevelTrace = logx.LevelTrace
	LogLevelDebug = logx.LevelDebug
	LogLevelInfo  = logx.LevelInfo
	LogLevelWarn  = logx.LevelWarn
	LogLevelError = logx.LevelError
	LogLevelNone  = logx.LevelNoPrint
)

// SetLogLevel changes the internal logger's level; the default is Warn.
// The process env `SHMEM_LOG_LEVEL` could also set the log level.
func SetLogLevel(l int) {
	logx.SetLevel(l)
}
