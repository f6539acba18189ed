// Package logging builds the loggers the daybook processes share.
// Long-running processes log to a rotated file; interactive commands
// log to stderr.
package logging

import (
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a logger with the given bracketed prefix, e.g. "[sync] ".
// When path is non-empty the output goes to a size-rotated file,
// otherwise to stderr.
func New(prefix, path string) *log.Logger {
	if path == "" {
		return log.New(os.Stderr, prefix, log.LstdFlags)
	}
	return log.New(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}, prefix, log.LstdFlags)
}
