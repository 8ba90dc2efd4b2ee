package optimizer

import "errors"

var (
	ErrNoGames       = errors.New("no played games to fit")
	ErrInvalidConfig = errors.New("invalid optimizer configuration")
	ErrNoSolution    = errors.New("no valid solution found")
)
