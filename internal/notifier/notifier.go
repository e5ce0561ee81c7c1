// Package notifier delivers grant lifecycle notifications to recipients.
package notifier

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType identifies the kind of grant lifecycle event being delivered
type EventType string

const (
	EventGrantCreated  EventType = "grant_created"
	EventGrantRevoked  EventType = "grant_revoked"
	EventExpiryWarning EventType = "expiry_warning"
)

// Event carries everything a delivery channel needs to render a notification
type Event struct {
	Type             EventType  `json:"type"`
	GrantID          uuid.UUID  `json:"grant_id"`
	OwnerID          uuid.UUID  `json:"owner_id"`
	GranteeID        uuid.UUID  `json:"grantee_id"`
	ResourceID       uuid.UUID  `json:"resource_id"`
	GranteeContact   string     `json:"grantee_contact,omitempty"`
	OwnerDisplayName string     `json:"owner_display_name,omitempty"`
	ResourceTitle    string     `json:"resource_title,omitempty"`
	AccessLevel      string     `json:"access_level"`
	Scope            string     `json:"scope,omitempty"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	HoursRemaining   int64      `json:"hours_remaining,omitempty"`
	OccurredAt       time.Time  `json:"occurred_at"`
}

// Notifier delivers grant lifecycle events. Delivery is best effort:
// callers log failures and never fail the triggering operation.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}
