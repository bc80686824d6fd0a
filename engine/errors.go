package engine

import "errors"

var (
	// ErrInvalidAction is returned when the applied action is not currently legal.
	// The state is left untouched.
	ErrInvalidAction = errors.New("invalid action")
	// ErrInternalInvariant signals a rules bug: applying a legal action broke a
	// state invariant. The state is rolled back to before the action.
	ErrInternalInvariant = errors.New("internal invariant violated")
	// ErrGameOver is returned by Apply once a team has finished.
	ErrGameOver = errors.New("game is already over")
)
