package log

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
	Level(zerolog.InfoLevel).
	With().Timestamp().Logger()

// Setup .
func Setup(level, file string) (func(), error) {
	lv := zerolog.InfoLevel
	if len(level) > 0 {
		var err error
		if lv, err = zerolog.ParseLevel(level); err != nil {
			return nil, errors.Wrapf(err, "invalid log level %q", level)
		}
	}

	if len(file) < 1 {
		logger = logger.Level(lv)
		return func() {}, nil
	}

	f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "open log file %s", file)
	}
	SetOutput(f, lv)

	return func() { _ = f.Close() }, nil
}

// SetOutput replaces the sink with a JSON writer.
func SetOutput(w io.Writer, lv zerolog.Level) {
	logger = zerolog.New(w).Level(lv).With().Timestamp().Logger()
}

// Debugf .
func Debugf(format string, args ...any) {
	logger.Debug().Msgf(format, args...)
}

// Infof .
func Infof(format string, args ...any) {
	logger.Info().Msgf(format, args...)
}

// Warnf .
func Warnf(format string, args ...any) {
	logger.Warn().Msgf(format, args...)
}

// ErrorStack logs err with its full stack at debug level and its message at
// error level.
func ErrorStack(err error) {
	logger.Debug().Msg(fmt.Sprintf("%+v", err))
	logger.Error().Msg(err.Error())
}
