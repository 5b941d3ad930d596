package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrTripNotFound and ErrUserNotFound narrow ErrNotFound to a resource.
// errors.Is matches both the narrow and the generic sentinel.
var (
	ErrTripNotFound = fmt.Errorf("trip %w", ErrNotFound)
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)
)

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. missing required field, to_date before from_date).
// Handlers should map this to HTTP 400.
var ErrValidation = errors.New("validation error")

// ErrInvalidCredential is returned when a supplied password does not match
// the stored credential.
// Handlers should map this to HTTP 403.
var ErrInvalidCredential = errors.New("invalid credential")

// ErrForbidden is returned when the acting user holds no role on a trip, or
// a role that does not permit the requested action.
// Handlers should map this to HTTP 403.
var ErrForbidden = errors.New("forbidden")

// Conflict errors. Handlers should map these to HTTP 409.
var (
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrDuplicateMembership = errors.New("user is already a member of this trip")
	ErrAlreadyAttached     = errors.New("activity already attached to this trip")
)

// ErrNotAttached is returned when detaching an activity the trip does not have.
var ErrNotAttached = errors.New("activity not attached to this trip")

// Manager-protection errors. Handlers should map these to HTTP 403.
var (
	ErrInvalidPromotion    = errors.New("manager role cannot be granted or changed")
	ErrCannotRemoveManager = errors.New("the trip manager cannot be removed")
)

// ErrTransaction is returned when a multi-row protocol failed part-way and was
// rolled back. The underlying cause is wrapped alongside it.
var ErrTransaction = errors.New("transaction failed")
