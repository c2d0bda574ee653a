// Package logging holds the process-wide structured logger.
package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var (
	once      sync.Once
	singleton *log.Logger
)

// Logger returns the shared logger, creating it on first use.
func Logger() *log.Logger {
	once.Do(func() {
		singleton = log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          "headfit",
		})
		singleton.SetLevel(log.InfoLevel)
	})
	return singleton
}

// SetLevel parses a level name such as "debug" or "warn" and applies it.
// Unknown names leave the level unchanged and return the parse error.
func SetLevel(name string) error {
	lvl, err := log.ParseLevel(name)
	if err != nil {
		return err
	}
	Logger().SetLevel(lvl)
	return nil
}

// SetOutput redirects the shared logger.
func SetOutput(w io.Writer) {
	Logger().SetOutput(w)
}

func Debug(msg string, keyvals ...interface{}) { Logger().Debug(msg, keyvals...) }
func Info(msg string, keyvals ...interface{})  { Logger().Info(msg, keyvals...) }
func Warn(msg string, keyvals ...interface{})  { Logger().Warn(msg, keyvals...) }
func Error(msg string, keyvals ...interface{}) { Logger().Error(msg, keyvals...) }
func Fatal(msg string, keyvals ...interface{}) { Logger().Fatal(msg, keyvals...) }
