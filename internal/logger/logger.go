// Package logger provides the configured zerolog logger.
package logger

import (
	"io"
	"os"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	zpkgerrors "github.com/rs/zerolog/pkgerrors"
)

type stackTracer interface{ StackTrace() pkgerrors.StackTrace }

// New returns a logger tagged with the service name. Call sites should use
// .Stack() on error events to include stacks.
func New(serviceName, level string, pretty bool) zerolog.Logger {
	return NewWithWriter(os.Stdout, serviceName, level, pretty)
}

// NewWithWriter is New with an explicit output.
func NewWithWriter(w io.Writer, serviceName, level string, pretty bool) zerolog.Logger {
	zerolog.ErrorStackMarshaler = func(err error) interface{} {
		if _, ok := err.(stackTracer); !ok {
			err = pkgerrors.WithStack(err)
		}
		return zpkgerrors.MarshalStack(err)
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	out := w
	if pretty {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	return zerolog.New(out).Level(lvl).With().
		Str("service", serviceName).
		Timestamp().
		Logger()
}

// Component derives a child logger for a named component.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}
