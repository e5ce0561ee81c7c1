// Package domain defines the core domain model for time-bounded medical-record
// access grants. A grant links a record owner (patient), a grantee (doctor),
// and a medical record, and carries the scope and expiry of the authorization.
// History is append-friendly: a key may accumulate multiple rows over time and
// the most recently granted row is the authoritative one.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccessLevel is an opaque capability label stored and propagated with a grant.
// It is consumed by the resource server, not interpreted by this engine.
type AccessLevel string

// Supported access levels.
const (
	AccessLevelRead       AccessLevel = "READ"
	AccessLevelWrite      AccessLevel = "WRITE"
	AccessLevelFullAccess AccessLevel = "FULL_ACCESS"
)

// Grant represents a single authorization row linking an owner, a grantee,
// and a medical record.
type Grant struct {
	// ID is the unique identifier for this grant row, assigned at creation.
	ID uuid.UUID
	// OwnerID identifies the patient who owns the record.
	OwnerID uuid.UUID
	// GranteeID identifies the doctor the record is shared with.
	GranteeID uuid.UUID
	// ResourceID identifies the protected medical record.
	ResourceID uuid.UUID
	// AccessLevel is the capability label attached to the grant.
	AccessLevel AccessLevel
	// Scope restricts which record fields are visible to the grantee.
	// An empty scope means the full record is shared.
	Scope Scope
	// IsGranted reports whether this row currently represents an active
	// authorization, as opposed to a historical or superseded row.
	IsGranted bool
	// GrantedAt is set whenever the row becomes active (creation or re-grant).
	GrantedAt time.Time
	// ExpiresAt is when the grant auto-expires; nil means it never expires.
	ExpiresAt *time.Time
	// RevokedAt marks when the grant was explicitly or automatically
	// terminated; nil means it has not been revoked.
	RevokedAt *time.Time
	// CreatedAt is the UTC timestamp when this row was first inserted.
	CreatedAt time.Time
}

// IsExpired reports whether the grant's expiry has passed at the given instant.
// A grant with no expiry never expires. A grant is already expired at the
// exact expiry instant, matching the strict expires_at > now predicate the
// store queries use.
func (g *Grant) IsExpired(now time.Time) bool {
	return g.ExpiresAt != nil && !now.Before(*g.ExpiresAt)
}

// IsActive is the single predicate all authorization decisions must use:
// granted, not revoked, and not expired. Never check IsGranted alone.
func (g *Grant) IsActive(now time.Time) bool {
	return g.IsGranted && g.RevokedAt == nil && !g.IsExpired(now)
}

// HoursRemaining returns the whole hours until expiry at the given instant.
// Returns -1 for grants without an expiry and 0 for grants already expired.
func (g *Grant) HoursRemaining(now time.Time) int64 {
	if g.ExpiresAt == nil {
		return -1
	}
	if now.After(*g.ExpiresAt) {
		return 0
	}
	return int64(g.ExpiresAt.Sub(now).Hours())
}

// AccessDecision is the result of a single access check: a boolean outcome
// plus the scope the caller may serve. Deny carries no reason so the resource
// server cannot leak why access was refused.
type AccessDecision struct {
	Allowed bool
	Scope   Scope
}
