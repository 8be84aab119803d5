package domain

import "errors"

var (
	ErrMissingUser    = errors.New("user not found")
	ErrInvalidKill    = errors.New("kill failed sanity checks")
	ErrDroppedCFIT    = errors.New("cfit kill beyond weapon equivalence range")
	ErrReplayProcess  = errors.New("replay process failed")
	ErrStreamParse    = errors.New("malformed record in event stream")
	ErrSeasonNotFound = errors.New("season not found")
	ErrInvalidEvent   = errors.New("invalid event payload")
	ErrInvalidUserID  = errors.New("invalid user id")
)
