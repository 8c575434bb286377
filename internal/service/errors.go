package service

import (
	"errors"
	"fmt"
)

// Error kinds returned by the service. Handlers map these to HTTP statuses
// with errors.Is. Missing membership is reported as ErrNotFound, never
// ErrForbidden, so outsiders cannot enumerate which chats exist.
var (
	ErrNotFound    = errors.New("not found")
	ErrForbidden   = errors.New("forbidden")
	ErrBadRequest  = errors.New("bad request")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("temporarily unavailable")
)

func notFound(what string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, what)
}

func forbidden(reason string) error {
	return fmt.Errorf("%w: %s", ErrForbidden, reason)
}

func badRequest(reason string) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, reason)
}

func conflict(reason string) error {
	return fmt.Errorf("%w: %s", ErrConflict, reason)
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
