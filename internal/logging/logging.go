package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"chatpage/internal/config"
)

// New builds the process logger. The text format writes human readable
// lines for local development; json writes one object per line.
func New(conf config.LogConfig) zerolog.Logger {
	return NewWithWriter(os.Stdout, conf)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, conf config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(conf.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if conf.Format == "text" {
		return zerolog.New(zerolog.NewConsoleWriter(func(cw *zerolog.ConsoleWriter) {
			cw.Out = w
			cw.TimeFormat = time.RFC3339
		})).Level(level).With().Timestamp().Logger()
	}

	return zerolog.New(w).Level(level).With().
		Str("service", "chatpage").
		Timestamp().
		Logger()
}
