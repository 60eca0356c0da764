package domain

import "errors"

// ErrorKind classifies a domain error for the acknowledgement channel.
type ErrorKind string

const (
	KindValidation    ErrorKind = "VALIDATION"
	KindAuthorization ErrorKind = "AUTHORIZATION"
	KindStateConflict ErrorKind = "STATE_CONFLICT"
	KindInternal      ErrorKind = "INTERNAL"
)

// Domain errors
var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrNameTaken          = errors.New("display name already taken")
	ErrGameAlreadyStarted = errors.New("game already started")
	ErrRoundAlreadyActive = errors.New("a round is already active")
	ErrNoActiveRound      = errors.New("no active round")
	ErrAlreadyAnswered    = errors.New("already answered this round")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrNotOwner           = errors.New("only the owner can perform this action")
	ErrKickSelf           = errors.New("owner cannot kick their own connection")
	ErrEmptyName          = errors.New("display name cannot be empty")
	ErrInvalidQuestion    = errors.New("invalid question payload")
)

// Kind maps a domain error to its recoverable kind. Every error in this
// package is recoverable by the caller; anything else is internal.
func Kind(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrEmptyName), errors.Is(err, ErrInvalidQuestion), errors.Is(err, ErrKickSelf):
		return KindValidation
	case errors.Is(err, ErrNotOwner):
		return KindAuthorization
	case errors.Is(err, ErrRoomNotFound),
		errors.Is(err, ErrNameTaken),
		errors.Is(err, ErrGameAlreadyStarted),
		errors.Is(err, ErrRoundAlreadyActive),
		errors.Is(err, ErrNoActiveRound),
		errors.Is(err, ErrAlreadyAnswered),
		errors.Is(err, ErrPlayerNotFound):
		return KindStateConflict
	default:
		return KindInternal
	}
}
