// Package log provides a leveled, structured logging facade used across the
// module. It is initialized once at process start with Init and exposes
// package-level functions in plain, formatted (*f) and key-value (*w) forms.
package log

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Log levels accepted by Init.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

var logger zerolog.Logger

func init() {
	// Usable default before Init is called (tests, library consumers).
	logger = newLogger(os.Stderr, zerolog.InfoLevel)
}

func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

// Init initializes the global logger. Output may be "stdout", "stderr" or a
// file path. If errWriter is not nil, error-level messages are duplicated to
// it as well.
func Init(level, output string, errWriter io.Writer) {
	var w io.Writer
	switch output {
	case "stdout":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			panic(fmt.Sprintf("cannot open log output %q: %v", output, err))
		}
		w = f
	}
	lv, err := zerolog.ParseLevel(level)
	if err != nil {
		panic(fmt.Sprintf("invalid log level %q: %v", level, err))
	}
	if errWriter != nil {
		w = zerolog.MultiLevelWriter(w, errLevelWriter{errWriter})
	}
	logger = newLogger(w, lv)
	logger.Info().Msgf("logger construction succeeded at level %s with output %s", level, output)
}

// Level returns the level the global logger was initialized with.
func Level() string {
	return logger.GetLevel().String()
}

// errLevelWriter forwards only error-and-above entries.
type errLevelWriter struct {
	w io.Writer
}

func (e errLevelWriter) Write(p []byte) (int, error) {
	return len(p), nil
}

func (e errLevelWriter) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	if l >= zerolog.ErrorLevel {
		return e.w.Write(p)
	}
	return len(p), nil
}

func withFields(ev *zerolog.Event, keyvalues ...any) *zerolog.Event {
	for i := 0; i+1 < len(keyvalues); i += 2 {
		key, ok := keyvalues[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", keyvalues[i])
		}
		ev = ev.Interface(key, keyvalues[i+1])
	}
	return ev
}

func Debug(args ...any) { logger.Debug().Msg(fmt.Sprint(args...)) }
func Info(args ...any)  { logger.Info().Msg(fmt.Sprint(args...)) }
func Warn(args ...any)  { logger.Warn().Msg(fmt.Sprint(args...)) }
func Error(args ...any) { logger.Error().Msg(fmt.Sprint(args...)) }
func Fatal(args ...any) { logger.Fatal().Msg(fmt.Sprint(args...)) }

func Debugf(format string, args ...any) { logger.Debug().Msgf(format, args...) }
func Infof(format string, args ...any)  { logger.Info().Msgf(format, args...) }
func Warnf(format string, args ...any)  { logger.Warn().Msgf(format, args...) }
func Errorf(format string, args ...any) { logger.Error().Msgf(format, args...) }
func Fatalf(format string, args ...any) { logger.Fatal().Msgf(format, args...) }

func Debugw(msg string, keyvalues ...any) { withFields(logger.Debug(), keyvalues...).Msg(msg) }
func Infow(msg string, keyvalues ...any)  { withFields(logger.Info(), keyvalues...).Msg(msg) }
func Warnw(msg string, keyvalues ...any)  { withFields(logger.Warn(), keyvalues...).Msg(msg) }
func Errorw(err error, msg string) {
	logger.Error().Err(err).Msg(msg)
}
