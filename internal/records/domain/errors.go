// Package domain defines core domain models and errors for the record catalog.
package domain

import (
	"github.com/medvault/grants/internal/errors"
)

// Record-specific error definitions.
var (
	// ErrRecordNotFound indicates the record does not exist or was deleted.
	ErrRecordNotFound = errors.Wrap(errors.ErrNotFound, "medical record not found")
)
