// Package apperr defines the error taxonomy shared by the repository, the
// sync engine and the API layer.
package apperr

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrTransient marks a failure worth retrying (network blip, timeout).
	ErrTransient = errors.New("transient failure")
	// ErrPermission marks a rejection that retrying cannot fix.
	ErrPermission = errors.New("permission denied")
	// ErrDecode marks a malformed payload; callers treat it as no data.
	ErrDecode = errors.New("decode failure")
	// ErrNotFound is a no-op success for idempotent operations.
	ErrNotFound = errors.New("not found")
	// ErrBadRequest marks invalid caller input.
	ErrBadRequest = errors.New("bad request")
)

func Transient(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
}

func Permission(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPermission, err)
}

func Decode(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrDecode, err)
}

func NotFound(op string) error {
	return fmt.Errorf("%s: %w", op, ErrNotFound)
}

func IsTransient(err error) bool  { return errors.Is(err, ErrTransient) }
func IsPermission(err error) bool { return errors.Is(err, ErrPermission) }
func IsDecode(err error) bool     { return errors.Is(err, ErrDecode) }
func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }

// Retryable reports whether the sync engine should retry after err.
// Permission failures, invalid input and cancelled contexts are final:
// repeating them cannot succeed.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || IsPermission(err) || IsDecode(err) || errors.Is(err, ErrBadRequest) {
		return false
	}
	return true
}
