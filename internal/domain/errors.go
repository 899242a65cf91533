package domain

import "errors"

// Sentinel errors shared by services and adapters. Wrap them with
// fmt.Errorf("...: %w", ErrX) to add context; callers match with errors.Is.
var (
	// ErrInvalidInput is returned when a spec or request is malformed.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when a key does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the caller lacks a permission.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthorized is returned for bad credentials or a wrong access key.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrConflict is returned when a write lost against a concurrent one.
	ErrConflict = errors.New("conflict")
)
