package exception

import "errors"

var (
	ErrRunnerClosed     = errors.New("runner: closed")
	ErrRunnerNilCommand = errors.New("runner: nil command")
	ErrRunnerEmptyID    = errors.New("runner: empty account identifier")
	ErrRunnerEntityDead = errors.New("runner: entity stopped")
)
