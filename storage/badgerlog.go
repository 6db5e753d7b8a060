package storage

import (
	"strings"

	"github.com/rs/zerolog"
)

// badgerLogger routes Badger's own log lines through zerolog.
type badgerLogger struct {
	l zerolog.Logger
}

func newBadgerLogger(l zerolog.Logger) *badgerLogger {
	return &badgerLogger{l: l.With().Str("engine", EngineBadger).Logger()}
}

// Badger terminates most of its messages with a newline.
func trimMsg(s string) string {
	return strings.TrimRight(s, "\n")
}

func (b *badgerLogger) Errorf(f string, v ...interface{}) {
	b.l.Error().Msgf(trimMsg(f), v...)
}

func (b *badgerLogger) Warningf(f string, v ...interface{}) {
	b.l.Warn().Msgf(trimMsg(f), v...)
}

func (b *badgerLogger) Infof(f string, v ...interface{}) {
	b.l.Debug().Msgf(trimMsg(f), v...)
}

func (b *badgerLogger) Debugf(f string, v ...interface{}) {
	b.l.Debug().Msgf(trimMsg(f), v...)
}
