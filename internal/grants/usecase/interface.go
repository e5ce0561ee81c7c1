// Package usecase implements business logic orchestration for access grants.
// Use cases coordinate the grant repository, the record catalog and the
// notifier to manage time-bounded record sharing between account holders.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	grantsDomain "github.com/medvault/grants/internal/grants/domain"
	recordsDomain "github.com/medvault/grants/internal/records/domain"
)

// GrantRepository defines the interface for grant persistence operations.
type GrantRepository interface {
	Create(ctx context.Context, grant *grantsDomain.Grant) error
	Update(ctx context.Context, grant *grantsDomain.Grant) error
	Get(ctx context.Context, grantID uuid.UUID) (*grantsDomain.Grant, error)
	ListByKey(ctx context.Context, ownerID, granteeID, resourceID uuid.UUID) ([]*grantsDomain.Grant, error)
	ListActiveByOwnerGrantee(ctx context.Context, ownerID, granteeID uuid.UUID, now time.Time) ([]*grantsDomain.Grant, error)
	ListActiveByGrantee(ctx context.Context, granteeID uuid.UUID, now time.Time) ([]*grantsDomain.Grant, error)
	ListActiveByOwnerResource(ctx context.Context, ownerID, resourceID uuid.UUID, now time.Time) ([]*grantsDomain.Grant, error)
	ListActiveByResource(ctx context.Context, resourceID uuid.UUID, now time.Time) ([]*grantsDomain.Grant, error)
	ListExpiringBetween(ctx context.Context, from, to time.Time) ([]*grantsDomain.Grant, error)
	CountDue(ctx context.Context, now time.Time) (int64, error)
	ExpireAllDue(ctx context.Context, now time.Time) (int64, error)
	RevokeConditional(ctx context.Context, grantID uuid.UUID, now time.Time) (bool, error)
}

// RecordCatalog defines the record lookups the grant use cases depend on.
type RecordCatalog interface {
	Get(ctx context.Context, recordID uuid.UUID) (*recordsDomain.Record, error)
}

// GrantResolver picks the authoritative row among the grant history for a key.
type GrantResolver interface {
	ResolveAuthoritative(ctx context.Context, ownerID, granteeID, resourceID uuid.UUID) (*grantsDomain.Grant, error)
	ResolveActivePermissions(ctx context.Context, ownerID, granteeID uuid.UUID, now time.Time) ([]*grantsDomain.Grant, error)
	FilterCatalogued(ctx context.Context, grants []*grantsDomain.Grant) ([]*grantsDomain.Grant, error)
}

// GrantUseCase defines the interface for grant lifecycle business logic.
type GrantUseCase interface {
	Grant(ctx context.Context, input grantsDomain.GrantInput) (*grantsDomain.Grant, error)
	Revoke(ctx context.Context, grantID, requestingOwnerID uuid.UUID) error
	RevokeAllForResource(ctx context.Context, resourceID uuid.UUID) (int64, error)
	ListActiveForGrantee(ctx context.Context, granteeID uuid.UUID) ([]*grantsDomain.Grant, error)
	ListActiveForOwnerGrantee(ctx context.Context, ownerID, granteeID uuid.UUID) ([]*grantsDomain.Grant, error)
	ListActiveForOwnerResource(ctx context.Context, ownerID, resourceID uuid.UUID) ([]*grantsDomain.Grant, error)
}

// AccessUseCase defines the interface for access decisions.
type AccessUseCase interface {
	CheckAccess(ctx context.Context, ownerID, granteeID, resourceID uuid.UUID, now time.Time) (grantsDomain.AccessDecision, error)
}

// SweeperUseCase defines the interface for the background expiry sweeper.
type SweeperUseCase interface {
	Start(ctx context.Context) error
	ExpirePass(ctx context.Context, now time.Time) (int64, error)
	WarningPass(ctx context.Context, now time.Time) (int64, error)
}
