package service

import (
	"errors"
	"fmt"

	"campus_api/internal/repository"
)

var (
	ErrNotFound           = errors.New("resource not found")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("resource already exists")
	ErrInvalidTransition  = errors.New("operation not allowed in the current state")
	ErrAccountExists      = errors.New("an account with this email or phone already exists")
	ErrInvalidCredentials = errors.New("invalid login or password")
	ErrRoleNotAllowed     = errors.New("role cannot be self-assigned")
	ErrMissingLogin       = errors.New("email or phone is required")
	ErrInvalidRecord      = errors.New("invalid record")
)

// translate maps storage errors onto the service taxonomy.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrDuplicate):
		return ErrConflict
	case errors.Is(err, repository.ErrStale):
		return ErrInvalidTransition
	case errors.Is(err, repository.ErrRequired):
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	default:
		return err
	}
}
