package apierr

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mcoot/mahjongtracker/internal/middleware"
	"github.com/mcoot/mahjongtracker/internal/model"
	"github.com/mcoot/mahjongtracker/internal/services/auth"
)

// ErrorResponse is the body of every error response. Error stays a plain
// string so browser clients can show it directly.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Common error codes
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeMissingWinner      = "MISSING_WINNER"
	CodeUnknownPlayer      = "UNKNOWN_PLAYER"
	CodeNotMember          = "NOT_MEMBER"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeGameNotFound       = "GAME_NOT_FOUND"
	CodePlayerNotFound     = "PLAYER_NOT_FOUND"
	CodeUserExists         = "USER_EXISTS"
	CodeAlreadyMember      = "ALREADY_MEMBER"
	CodeCodeSpaceExhausted = "CODE_SPACE_EXHAUSTED"
	CodeRateLimited        = "RATE_LIMITED"
	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeInternalError      = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with the response body
type httpError struct {
	status int
	body   ErrorResponse
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.body.Error
}

// WriteError writes the error response for err. Errors that map to a 5xx
// status are logged with the request logger; their detail is never sent.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	he := toHTTPError(err)
	if he.status >= http.StatusInternalServerError {
		middleware.Logger(r.Context(), slog.Default()).Error("request failed",
			slog.String("error", err.Error()),
			slog.String("code", he.body.Code),
		)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(he.body)
}

// Status returns the HTTP status WriteError would use for err
func Status(err error) int {
	return toHTTPError(err).status
}

func newError(status int, code, message string) *httpError {
	return &httpError{status: status, body: ErrorResponse{Error: message, Code: code}}
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}
	var invalid *model.InvalidInputError
	if errors.As(err, &invalid) {
		return newError(http.StatusBadRequest, CodeInvalidRequest, invalid.Message)
	}

	// Map model errors
	switch {
	case errors.Is(err, model.ErrMissingWinner):
		return newError(http.StatusBadRequest, CodeMissingWinner, "Winner ID is required")
	case errors.Is(err, model.ErrUnknownPlayer):
		return newError(http.StatusBadRequest, CodeUnknownPlayer, "Player not found")
	case errors.Is(err, model.ErrNotMember):
		return newError(http.StatusBadRequest, CodeNotMember, "Winner is not a player in this game")
	case errors.Is(err, model.ErrInvalidInput):
		return newError(http.StatusBadRequest, CodeInvalidRequest, "Invalid request")
	case errors.Is(err, model.ErrUnauthenticated):
		return newError(http.StatusUnauthorized, CodeUnauthorized, "Authentication required")
	case errors.Is(err, model.ErrNoActiveGame):
		return newError(http.StatusNotFound, CodeGameNotFound, "Game not found or inactive")
	case errors.Is(err, model.ErrGameNotFound):
		return newError(http.StatusNotFound, CodeGameNotFound, "Game not found")
	case errors.Is(err, model.ErrPlayerNotFound):
		return newError(http.StatusNotFound, CodePlayerNotFound, "Player not found")
	case errors.Is(err, model.ErrUserNotFound):
		return newError(http.StatusNotFound, CodeNotFound, "User not found")
	case errors.Is(err, model.ErrUserExists):
		return newError(http.StatusBadRequest, CodeUserExists, "Username or email already exists")
	case errors.Is(err, model.ErrAlreadyMember):
		return newError(http.StatusBadRequest, CodeAlreadyMember, "Player already in game")
	case errors.Is(err, model.ErrCodeSpaceExhausted):
		return newError(http.StatusServiceUnavailable, CodeCodeSpaceExhausted, "No game codes available, try again later")

	// Map auth errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		return newError(http.StatusUnauthorized, CodeInvalidCredentials, "Invalid username or password")
	case errors.Is(err, auth.ErrInvalidSession):
		return newError(http.StatusUnauthorized, CodeUnauthorized, "Authentication required")

	default:
		return newError(http.StatusInternalServerError, CodeInternalError, "Internal server error")
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return newError(http.StatusBadRequest, CodeInvalidRequest, message)
}

// NewUnauthorizedError creates an unauthorized error with the given message
func NewUnauthorizedError(message string) error {
	return newError(http.StatusUnauthorized, CodeUnauthorized, message)
}

// NewRateLimitedError creates a too many requests error
func NewRateLimitedError() error {
	return newError(http.StatusTooManyRequests, CodeRateLimited, "Too many requests")
}

// NewNotFoundError creates an error for unknown routes
func NewNotFoundError() error {
	return newError(http.StatusNotFound, CodeNotFound, "Not found")
}

// NewMethodNotAllowedError creates an error for known routes with the wrong method
func NewMethodNotAllowedError() error {
	return newError(http.StatusMethodNotAllowed, CodeMethodNotAllowed, "Method not allowed")
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return newError(http.StatusInternalServerError, CodeInternalError, "Internal server error")
}
