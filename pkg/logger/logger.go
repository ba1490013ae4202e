// Package logger builds the zerolog.Logger handed to tenantdb.WithLogger.
// Security events (blocked cross-tenant reads, audit findings) go through
// this logger, so deployments typically point it at a dedicated sink.
package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

const filePerm = 0o664

// Build configures a logger destination.
type Build struct {
	writer io.Writer
	path   string
	level  zerolog.Level
}

// New starts a logger build. Without further configuration, Make produces a
// stderr logger at info level.
func New() *Build {
	return &Build{level: zerolog.InfoLevel}
}

// FromPath appends log output to the file at path.
func (b *Build) FromPath(path string) *Build {
	b.path = path
	return b
}

// FromWriter sends log output to w. Tests use this with a bytes.Buffer to
// assert on emitted security events.
func (b *Build) FromWriter(w io.Writer) *Build {
	b.writer = w
	return b
}

// Level sets the minimum level.
func (b *Build) Level(level zerolog.Level) *Build {
	b.level = level
	return b
}

// Make produces the configured logger.
func (b *Build) Make() (zerolog.Logger, error) {
	writer := b.writer
	if b.path != "" {
		f, err := os.OpenFile(b.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
		if err != nil {
			return zerolog.Nop(), err
		}
		writer = zerolog.SyncWriter(f)
	}
	if writer == nil {
		writer = os.Stderr
	}
	return zerolog.New(writer).Level(b.level).With().Timestamp().Logger(), nil
}
