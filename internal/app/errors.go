package app

import (
	"errors"
	"fmt"

	"rewear/internal/storage"
)

// Error kinds. Every error returned by App wraps exactly one of them;
// anything else reaching the transport is an internal failure.
var (
	// ErrUnauthenticated indicates a missing, invalid, expired or revoked credential.
	ErrUnauthenticated = errors.New("app: unauthenticated")
	// ErrForbidden indicates a valid credential without the right role or party membership.
	ErrForbidden = errors.New("app: forbidden")
	// ErrValidation indicates missing or malformed input.
	ErrValidation = errors.New("app: validation failed")
	// ErrNotFound indicates a resource that is absent or not visible to the caller.
	ErrNotFound = errors.New("app: not found")
	// ErrConflict indicates an illegal state transition or a lost concurrent update.
	ErrConflict = errors.New("app: conflict")
	// ErrRateLimited indicates too many attempts in the current window.
	ErrRateLimited = errors.New("app: rate limited")
	// ErrUpstream indicates a failure of the database, the blob store or the token store.
	ErrUpstream = errors.New("app: upstream failure")
)

// Error is a tagged, user-presentable failure.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

var errInvalidCredentials = newError(ErrUnauthenticated, "invalid credentials")

// upstream logs an unexpected storage failure and hides its details from the caller.
func (app *App) upstream(op string, err error) error {
	app.log.Sugar().Errorf("%s: %s", op, err)
	return newError(ErrUpstream, "storage is unavailable")
}

// storageError maps the storage layer's errors to application error kinds.
func (app *App) storageError(op string, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return newError(ErrNotFound, "not found")
	case errors.Is(err, storage.ErrStaleState):
		return newError(ErrConflict, "the resource was modified concurrently, reload and retry")
	case errors.Is(err, storage.ErrItemUnavailable):
		return newError(ErrConflict, "item is no longer available")
	case errors.Is(err, storage.ErrInsufficientPoints):
		return newError(ErrConflict, "insufficient points balance")
	case errors.Is(err, storage.ErrOpenSwapExists):
		return newError(ErrConflict, "an open swap for these items already exists")
	case errors.Is(err, storage.ErrUsernameTaken):
		return newError(ErrConflict, "username already taken")
	case errors.Is(err, storage.ErrEmailTaken):
		return newError(ErrConflict, "email already registered")
	default:
		return app.upstream(op, err)
	}
}
