package engine

import "errors"

// Engine errors are terminal for the request that triggered them: the
// caller commits nothing and the actor must resubmit after correcting
// state. Wrapped values carry context; match with errors.Is.
var (
	// ErrTurnViolation is returned for actions out of turn or by an
	// inactive player.
	ErrTurnViolation = errors.New("not this player's turn")

	// ErrInvalidBetState is returned for a bet while a bet is already
	// open, or a raise at or below the current watermark.
	ErrInvalidBetState = errors.New("invalid bet state")

	// ErrInsufficientBalance is returned when an action would move more
	// chips than the player holds.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrGameInactive is returned for any mutation after a game winner
	// has been declared.
	ErrGameInactive = errors.New("game is no longer active")

	// ErrInvalidRoundTransition is returned when advancing past river.
	ErrInvalidRoundTransition = errors.New("invalid round transition")

	// ErrValidation is returned for malformed requests.
	ErrValidation = errors.New("validation failed")
)
