package model

import (
	"errors"
	"fmt"
)

// Common errors used across the application
var (
	// Input errors
	ErrInvalidInput    = errors.New("invalid input")
	ErrMissingWinner   = errors.New("winner id is required")
	ErrUnknownPlayer   = errors.New("player does not exist")
	ErrUnauthenticated = errors.New("authentication required")

	// User errors
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("username or email already exists")

	// Player errors
	ErrPlayerNotFound = errors.New("player not found")

	// Game errors
	ErrGameNotFound       = errors.New("game not found")
	ErrAlreadyMember      = errors.New("player already in game")
	ErrNotMember          = errors.New("player is not a member of the game")
	ErrCodeTaken          = errors.New("game code already in use")
	ErrCodeSpaceExhausted = errors.New("could not allocate a free game code")
)

// ErrNoActiveGame is returned where only active games qualify. It matches
// ErrGameNotFound with errors.Is.
var ErrNoActiveGame = fmt.Errorf("%w or inactive", ErrGameNotFound)

// ErrSessionNotFound is returned by session stores for unknown or expired tokens
var ErrSessionNotFound = errors.New("session not found")

// InvalidInputError carries a user-facing validation message.
// It matches ErrInvalidInput with errors.Is.
type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string {
	return e.Message
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// InvalidInput returns an error matching ErrInvalidInput with the given message
func InvalidInput(message string) error {
	return &InvalidInputError{Message: message}
}
