package domain

import "errors"

// Sentinel errors shared by services and repositories. Controllers map them to
// HTTP status codes with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidInput       = errors.New("invalid input")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEventFull          = errors.New("event is full")
	ErrRegistrationClosed = errors.New("registration closed")
	ErrInvalidTransition  = errors.New("invalid status transition")
)
