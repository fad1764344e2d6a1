package services

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to the HTTP layer. Services wrap them with detail via
// fmt.Errorf("...: %w", ErrX); callers match with errors.Is.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrConflict           = errors.New("conflict")
	ErrNotFound           = errors.New("not found")
	ErrExpired            = errors.New("expired")
)

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
