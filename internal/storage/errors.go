package storage

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// Errors reported by the storage layer. Anything else is an unexpected database failure.
var (
	ErrNotFound           = errors.New("storage: not found")
	ErrUsernameTaken      = errors.New("storage: username already taken")
	ErrEmailTaken         = errors.New("storage: email already registered")
	ErrOpenSwapExists     = errors.New("storage: an open swap for these items already exists")
	ErrStaleState         = errors.New("storage: row changed concurrently")
	ErrItemUnavailable    = errors.New("storage: item is no longer available")
	ErrInsufficientPoints = errors.New("storage: insufficient points balance")
)

// classify translates PostgreSQL constraint violations into storage errors.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		switch pgErr.ConstraintName {
		case "profiles_username_key":
			return ErrUsernameTaken
		case "identities_email_key":
			return ErrEmailTaken
		case "swaps_open_pair_key":
			return ErrOpenSwapExists
		}
	case pgerrcode.CheckViolation:
		if pgErr.ConstraintName == "profiles_points_balance_check" {
			return ErrInsufficientPoints
		}
	}
	return err
}
