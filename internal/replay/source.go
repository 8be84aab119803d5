package replay

import (
	"skyrating/internal/domain"
	"skyrating/internal/dump"
)

// DumpInput builds an Input whose iterators read the NDJSON dumps at paths.
func DumpInput(season *domain.Season, users []*domain.User, paths dump.Paths) Input {
	return Input{
		Season: season,
		Users:  users,
		Kills: func(fn func(*domain.Kill) error) error {
			return dump.DecodeFile(paths.Kills, fn)
		},
		Deaths: func(fn func(*domain.Death) error) error {
			return dump.DecodeFile(paths.Deaths, fn)
		},
		Sessions: func(fn func(*domain.SessionAction) error) error {
			return dump.DecodeFile(paths.Sessions, fn)
		},
	}
}
