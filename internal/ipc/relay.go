package ipc

import (
	"io"

	"skyrating/internal/dump"

	"github.com/rs/zerolog"
)

const relayChunkSize = 4096

// Relay logs every line read from r at level until r is exhausted. Lines split
// across reads are joined before logging.
func Relay(r io.Reader, logger zerolog.Logger, level zerolog.Level) error {
	return dump.ReadLines(r, relayChunkSize, func(line []byte) error {
		logger.WithLevel(level).Msg(string(line))
		return nil
	})
}
