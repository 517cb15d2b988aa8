package rules

import "errors"

var (
	ErrIllegalMove      = errors.New("illegal move")
	ErrInvalidPromotion = errors.New("invalid promotion")
	ErrInvalidSquare    = errors.New("invalid square")
	ErrInvalidFEN       = errors.New("invalid FEN")
)
