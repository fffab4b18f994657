// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// parsing driver errors.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.  Handlers should translate this into an
// HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an operation cannot proceed because of
// conflicting state, such as crediting loyalty points twice for the same
// reservation.  Handlers should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrStaleStatus is returned when a compare-and-swap status update finds
// the reservation in a different state than the caller observed.  The
// losing side of a concurrent transition sees this instead of silently
// double-applying side effects.
var ErrStaleStatus = errors.New("stale status")

// ErrTokenExpired is returned when a refresh token exists but is past its
// expiry.  It is distinct from an unknown or revoked token so the client
// can be told to re-login rather than retry.
var ErrTokenExpired = errors.New("refresh token expired")

// ErrEmailExists is returned on registration with a taken email.
var ErrEmailExists = errors.New("email already exists")
