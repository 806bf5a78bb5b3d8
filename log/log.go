// Package log provides a leveled, structured logging facade used across the
// whole module, backed by zerolog. It is initialized once via Init and used
// through package-level functions so callers never carry a logger around.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
	LogLevelFatal = "fatal"

	// logTestWriterName is a reserved output name which routes the log
	// output to logTestWriter. Used by tests and benchmarks.
	logTestWriterName = "_testWriter"
)

var (
	log   zerolog.Logger
	level string

	// logTestWriter is the writer used when Init is called with
	// logTestWriterName as output.
	logTestWriter io.Writer = io.Discard

	// panicOnInvalidChars makes the logging functions panic when a message
	// contains bytes that are not valid UTF-8, which usually means binary
	// data was logged without %x. Controlled by LOG_PANIC_ON_INVALIDCHARS.
	panicOnInvalidChars = os.Getenv("LOG_PANIC_ON_INVALIDCHARS") == "true"
)

// Init initializes the global logger with the given level and output. The
// output can be "stdout", "stderr" or a file path. If errorOutput is not nil,
// messages of level error or higher are duplicated to it.
func Init(logLevel, output string, errorOutput io.Writer) {
	var out io.Writer
	switch output {
	case "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	case logTestWriterName:
		out = logTestWriter
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			panic(fmt.Sprintf("cannot open log output %q: %v", output, err))
		}
		out = f
	}
	if out == os.Stdout || out == os.Stderr {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "3:04:05PM"}
	}
	if errorOutput != nil {
		out = zerolog.MultiLevelWriter(out, errWriter{errorOutput})
	}
	lvl, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		panic(fmt.Sprintf("invalid log level %q: %v", logLevel, err))
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log = zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	level = logLevel
}

// errWriter duplicates error-or-higher events to a secondary writer.
type errWriter struct{ w io.Writer }

func (e errWriter) Write(p []byte) (int, error) { return len(p), nil }

func (e errWriter) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	if l >= zerolog.ErrorLevel {
		return e.w.Write(p)
	}
	return len(p), nil
}

// Level returns the level the logger was initialized with.
func Level() string { return level }

// Logger returns the underlying zerolog logger.
func Logger() *zerolog.Logger { return &log }

func checkInvalidChars(s string) {
	if panicOnInvalidChars && !utf8.ValidString(s) {
		panic(fmt.Sprintf("log message with invalid chars: %q", s))
	}
}

func logf(ev *zerolog.Event, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	checkInvalidChars(msg)
	ev.Msg(msg)
}

func logw(ev *zerolog.Event, msg string, keysAndValues ...any) {
	checkInvalidChars(msg)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		ev = ev.Interface(key, keysAndValues[i+1])
	}
	ev.Msg(msg)
}

func Debugf(format string, args ...any) { logf(log.Debug(), format, args...) }
func Infof(format string, args ...any)  { logf(log.Info(), format, args...) }
func Warnf(format string, args ...any)  { logf(log.Warn(), format, args...) }
func Errorf(format string, args ...any) { logf(log.Error(), format, args...) }

func Debugw(msg string, keysAndValues ...any) { logw(log.Debug(), msg, keysAndValues...) }
func Infow(msg string, keysAndValues ...any)  { logw(log.Info(), msg, keysAndValues...) }
func Warnw(msg string, keysAndValues ...any)  { logw(log.Warn(), msg, keysAndValues...) }
func Errorw(msg string, keysAndValues ...any) { logw(log.Error(), msg, keysAndValues...) }

// Debug logs its arguments at debug level, space separated.
func Debug(args ...any) { logf(log.Debug(), "%s", strings.TrimSuffix(fmt.Sprintln(args...), "\n")) }

// Warn logs its arguments at warning level, space separated.
func Warn(args ...any) { logf(log.Warn(), "%s", strings.TrimSuffix(fmt.Sprintln(args...), "\n")) }

// Error logs its arguments at error level, space separated.
func Error(args ...any) { logf(log.Error(), "%s", strings.TrimSuffix(fmt.Sprintln(args...), "\n")) }

// Fatalf logs at fatal level and exits the process.
func Fatalf(format string, args ...any) {
	logf(log.WithLevel(zerolog.FatalLevel), format, args...)
	os.Exit(1)
}
