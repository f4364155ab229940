// Package log wraps zerolog with the small set of helpers used across the
// backend. Call Init once at startup; until then only errors are printed to
// stderr.
package log

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	gnarklogger "github.com/consensys/gnark/logger"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

var (
	log   zerolog.Logger
	level = LogLevelError

	// panicOnInvalidChars makes every log call panic if the resulting line
	// contains invalid UTF-8, which usually means raw bytes were formatted
	// with %s instead of %x.
	panicOnInvalidChars = os.Getenv("LOG_PANIC_ON_INVALIDCHARS") == "true"

	// logTestWriter is used by tests and benchmarks as output when Init is
	// called with logTestWriterName.
	logTestWriter     io.Writer = io.Discard
	logTestWriterName           = "log_test_writer"

	// zerolog escapes invalid UTF-8 as the replacement character.
	invalidCharMarkers = [][]byte{[]byte(`\ufffd`), []byte("\ufffd")}
)

func init() {
	Init(LogLevelError, "stderr", nil)
}

// invalidCharChecker sits in front of the real writer and looks for the
// replacement sequence zerolog emits for invalid UTF-8.
type invalidCharChecker struct {
	w io.Writer
}

func (c *invalidCharChecker) Write(p []byte) (int, error) {
	if panicOnInvalidChars {
		for _, m := range invalidCharMarkers {
			if bytes.Contains(p, m) {
				panic(fmt.Sprintf("log line contains invalid chars: %q", p))
			}
		}
	}
	return c.w.Write(p)
}

// errorLevelWriter copies error (and above) lines to a secondary writer.
type errorLevelWriter struct {
	io.Writer
}

func (w errorLevelWriter) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	if l < zerolog.ErrorLevel {
		return len(p), nil
	}
	return w.Write(p)
}

// Init configures the global logger. The level is one of debug, info, warn or
// error. The output can be stdout, stderr or a file path; files are rotated.
// If errorOutput is not nil, error lines are also written to it.
func Init(logLevel, output string, errorOutput io.Writer) {
	var out io.Writer
	switch output {
	case "stdout":
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339Nano}
	case "stderr":
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339Nano}
	case logTestWriterName:
		out = logTestWriter
	default:
		out = &lumberjack.Logger{
			Filename:   output,
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
		}
	}
	out = &invalidCharChecker{w: out}
	if errorOutput != nil {
		out = zerolog.MultiLevelWriter(out, errorLevelWriter{errorOutput})
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(logLevel))
	if err != nil || logLevel == "" {
		lvl = zerolog.InfoLevel
		logLevel = LogLevelInfo
	}
	level = logLevel
	log = zerolog.New(out).Level(lvl).With().Timestamp().Caller().Logger()
	// gnark prints compilation and proving progress through its own zerolog
	// logger, keep it on the same output but one level quieter.
	gnarklogger.Set(log.Level(max(lvl, zerolog.InfoLevel)))
}

// Level returns the current log level.
func Level() string {
	return level
}

// Logger returns the underlying zerolog logger.
func Logger() *zerolog.Logger {
	return &log
}

func Debug(args ...any) { log.Debug().CallerSkipFrame(1).Msg(fmt.Sprint(args...)) }
func Info(args ...any)  { log.Info().CallerSkipFrame(1).Msg(fmt.Sprint(args...)) }
func Warn(args ...any)  { log.Warn().CallerSkipFrame(1).Msg(fmt.Sprint(args...)) }
func Error(args ...any) { log.Error().CallerSkipFrame(1).Msg(fmt.Sprint(args...)) }
func Fatal(args ...any) { log.Fatal().CallerSkipFrame(1).Msg(fmt.Sprint(args...)) }

func Debugf(template string, args ...any) {
	log.Debug().CallerSkipFrame(1).Msgf(template, args...)
}

func Infof(template string, args ...any) {
	log.Info().CallerSkipFrame(1).Msgf(template, args...)
}

func Warnf(template string, args ...any) {
	log.Warn().CallerSkipFrame(1).Msgf(template, args...)
}

func Errorf(template string, args ...any) {
	log.Error().CallerSkipFrame(1).Msgf(template, args...)
}

func Fatalf(template string, args ...any) {
	log.Fatal().CallerSkipFrame(1).Msgf(template, args...)
}

// Debugw logs a message with key-value pairs.
func Debugw(msg string, keyvalues ...any) {
	log.Debug().CallerSkipFrame(1).Fields(keyvalues).Msg(msg)
}

// Infow logs a message with key-value pairs.
func Infow(msg string, keyvalues ...any) {
	log.Info().CallerSkipFrame(1).Fields(keyvalues).Msg(msg)
}

// Warnw logs a message with key-value pairs.
func Warnw(msg string, keyvalues ...any) {
	log.Warn().CallerSkipFrame(1).Fields(keyvalues).Msg(msg)
}

// Errorw logs an error with a message and optional key-value pairs.
func Errorw(err error, msg string, keyvalues ...any) {
	log.Error().CallerSkipFrame(1).Err(err).Fields(keyvalues).Msg(msg)
}
