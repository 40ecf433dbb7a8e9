package apperror

import "errors"

var (
	ErrGameFinished       = errors.New("game is already finished")
	ErrGameNotFound       = errors.New("game not found")
	ErrGameFull           = errors.New("game already has two players")
	ErrGameAlreadyExists  = errors.New("game already exists")
	ErrNotYourTurn        = errors.New("it's not your turn")
	ErrNotFound           = errors.New("not found")
	ErrStaleUpdate        = errors.New("game was updated by someone else")
	ErrMalformedBoard     = errors.New("malformed board")
	ErrSubscriptionClosed = errors.New("game subscription closed")
	ErrPlayerNotInGame    = errors.New("player is not part of the game")
	ErrGameNotWaiting     = errors.New("game is no longer waiting for an opponent")
	ErrUnchanged          = errors.New("game is unchanged")
)
