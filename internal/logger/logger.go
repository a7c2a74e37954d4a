// Package logger keeps the plain log.Printf output used across the server
// and forwards errors to Rollbar when a token is configured.
package logger

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/rollbar/rollbar-go"
)

const (
	LevelError   = "error"
	LevelWarning = "warning"
)

// ReportFunc receives each reported item. err is the first error argument
// of the format call, if any.
type ReportFunc func(level, msg string, err error)

var (
	enabled atomic.Bool

	mu     sync.RWMutex
	report ReportFunc = rollbarReport
)

// Init configures Rollbar reporting. An empty token leaves reporting off.
func Init(token, env, codeVersion string) {
	if token == "" {
		rollbar.SetEnabled(false)
		enabled.Store(false)
		return
	}
	rollbar.SetToken(token)
	rollbar.SetEnvironment(env)
	rollbar.SetCodeVersion(codeVersion)
	rollbar.SetServerRoot("github.com/mcq-practice/backend")
	rollbar.SetEnabled(true)
	enabled.Store(true)
	log.Printf("[logger] rollbar reporting enabled (env=%s)", env)
}

// SetReporter enables reporting to fn in place of Rollbar and returns a
// func that restores the previous state.
func SetReporter(fn ReportFunc) (restore func()) {
	mu.Lock()
	prev, prevEnabled := report, enabled.Load()
	report = fn
	enabled.Store(true)
	mu.Unlock()

	return func() {
		mu.Lock()
		report = prev
		enabled.Store(prevEnabled)
		mu.Unlock()
	}
}

// Errorf logs the message and reports it as an error item.
func Errorf(format string, args ...interface{}) {
	emit(LevelError, format, args)
}

// Warnf logs the message and reports it as a warning item.
func Warnf(format string, args ...interface{}) {
	emit(LevelWarning, format, args)
}

// Close flushes queued items.
func Close() {
	if enabled.Load() {
		rollbar.Wait()
	}
}

func emit(level, format string, args []interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Print(msg)
	if !enabled.Load() {
		return
	}
	mu.RLock()
	fn := report
	mu.RUnlock()
	fn(level, msg, findError(args))
}

func rollbarReport(level, msg string, err error) {
	switch {
	case level == LevelWarning:
		rollbar.Warning(msg)
	case err != nil:
		rollbar.Error(err, map[string]interface{}{"message": msg})
	default:
		rollbar.Error(msg)
	}
}

func findError(args []interface{}) error {
	for _, a := range args {
		if err, ok := a.(error); ok {
			return err
		}
	}
	return nil
}
