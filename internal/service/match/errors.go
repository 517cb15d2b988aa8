package match

import "errors"

var (
	ErrMatchNotStarted = errors.New("match not started")
	ErrMatchCompleted  = errors.New("match already completed")
	ErrNotHumanTurn    = errors.New("not the human player's turn")
	ErrNoSearcher      = errors.New("no search engine configured")
	ErrClosed          = errors.New("match controller closed")
)
