// Package domain defines the read-side model of the medical-record catalog.
// The grant engine consumes the catalog only to verify that a record exists
// and is owned by the claimed owner, and to populate notification text; record
// contents and file storage belong to other services.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Record is a catalog entry for a protected medical record.
type Record struct {
	// ID is the unique identifier of the record.
	ID uuid.UUID
	// OwnerID identifies the patient who owns the record.
	OwnerID uuid.UUID
	// Title is the human-readable record title used in notifications.
	Title string
	// RecordType classifies the record (e.g., "lab_report", "prescription").
	RecordType string
	// UploadedAt is the UTC timestamp when the record was uploaded.
	UploadedAt time.Time
	// DeletedAt marks when the record was soft-deleted (nil if present).
	DeletedAt *time.Time
}
