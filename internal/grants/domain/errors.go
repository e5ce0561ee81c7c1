// Package domain defines core domain models and errors for access grants.
package domain

import (
	"github.com/medvault/grants/internal/errors"
)

// Grant-specific error definitions.
var (
	// ErrGrantNotFound indicates no grant row exists for the given id or key.
	ErrGrantNotFound = errors.Wrap(errors.ErrNotFound, "grant not found")

	// ErrNotGrantOwner indicates the caller does not own the grant being revoked.
	ErrNotGrantOwner = errors.Wrap(errors.ErrForbidden, "caller is not the grant owner")

	// ErrNotResourceOwner indicates the caller does not own the record being shared.
	ErrNotResourceOwner = errors.Wrap(errors.ErrForbidden, "caller is not the record owner")

	// ErrAlreadyRevoked indicates revoke was called on an inactive grant.
	// Callers whose intent is "ensure revoked" may treat it as success.
	ErrAlreadyRevoked = errors.Wrap(errors.ErrConflict, "grant already revoked")

	// ErrInvalidDuration indicates a zero or negative grant duration was supplied.
	ErrInvalidDuration = errors.Wrap(errors.ErrInvalidInput, "duration must be a positive number of hours")
)
