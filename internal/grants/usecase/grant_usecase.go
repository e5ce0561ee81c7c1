package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/medvault/grants/internal/database"
	apperrors "github.com/medvault/grants/internal/errors"
	grantsDomain "github.com/medvault/grants/internal/grants/domain"
	"github.com/medvault/grants/internal/notifier"
)

// grantUseCase implements the GrantUseCase interface for the grant lifecycle.
type grantUseCase struct {
	txManager       database.TxManager
	grantRepo       GrantRepository
	catalog         RecordCatalog
	resolver        GrantResolver
	eventNotifier   notifier.Notifier
	logger          *slog.Logger
	defaultDuration time.Duration
	now             func() time.Time
}

// NewGrantUseCase creates a new GrantUseCase. defaultDuration applies when
// the input carries no explicit duration.
func NewGrantUseCase(
	txManager database.TxManager,
	grantRepo GrantRepository,
	catalog RecordCatalog,
	resolver GrantResolver,
	eventNotifier notifier.Notifier,
	logger *slog.Logger,
	defaultDuration time.Duration,
) GrantUseCase {
	return &grantUseCase{
		txManager:       txManager,
		grantRepo:       grantRepo,
		catalog:         catalog,
		resolver:        resolver,
		eventNotifier:   eventNotifier,
		logger:          logger,
		defaultDuration: defaultDuration,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// Grant creates a grant or reactivates the authoritative row for the same
// owner, grantee and resource. The reactivated row keeps its id but gets a
// fresh granted_at and a recomputed expiry, so history stays a single row per
// decision.
func (g *grantUseCase) Grant(ctx context.Context, input grantsDomain.GrantInput) (*grantsDomain.Grant, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	record, err := g.catalog.Get(ctx, input.ResourceID)
	if err != nil {
		return nil, err
	}
	if record.OwnerID != input.OwnerID {
		return nil, grantsDomain.ErrNotResourceOwner
	}

	now := g.now()
	duration := g.defaultDuration
	if input.DurationHours != nil {
		duration = time.Duration(*input.DurationHours) * time.Hour
	}
	expiresAt := now.Add(duration)
	scope := grantsDomain.NewScope(input.SharedFields)

	var grant *grantsDomain.Grant
	err = g.txManager.WithTx(ctx, func(txCtx context.Context) error {
		existing, err := g.resolver.ResolveAuthoritative(txCtx, input.OwnerID, input.GranteeID, input.ResourceID)
		if err != nil && !apperrors.Is(err, grantsDomain.ErrGrantNotFound) {
			return err
		}

		if existing != nil {
			existing.AccessLevel = input.AccessLevel
			existing.Scope = scope
			existing.IsGranted = true
			existing.GrantedAt = now
			existing.ExpiresAt = &expiresAt
			existing.RevokedAt = nil
			if err := g.grantRepo.Update(txCtx, existing); err != nil {
				return err
			}
			grant = existing
			return nil
		}

		grant = &grantsDomain.Grant{
			ID:          uuid.Must(uuid.NewV7()),
			OwnerID:     input.OwnerID,
			GranteeID:   input.GranteeID,
			ResourceID:  input.ResourceID,
			AccessLevel: input.AccessLevel,
			Scope:       scope,
			IsGranted:   true,
			GrantedAt:   now,
			ExpiresAt:   &expiresAt,
			CreatedAt:   now,
		}
		return g.grantRepo.Create(txCtx, grant)
	})
	if err != nil {
		return nil, err
	}

	g.notify(ctx, buildGrantEvent(notifier.EventGrantCreated, grant, record.Title, now))
	return grant, nil
}

// Revoke marks a grant inactive on behalf of its owner. The update is
// conditional on the row still being active, so a revoke racing the expiry
// sweeper is applied exactly once.
func (g *grantUseCase) Revoke(ctx context.Context, grantID, requestingOwnerID uuid.UUID) error {
	grant, err := g.grantRepo.Get(ctx, grantID)
	if err != nil {
		return err
	}
	if grant.OwnerID != requestingOwnerID {
		return grantsDomain.ErrNotGrantOwner
	}

	now := g.now()
	revoked, err := g.grantRepo.RevokeConditional(ctx, grantID, now)
	if err != nil {
		return err
	}
	if !revoked {
		return grantsDomain.ErrAlreadyRevoked
	}

	g.notify(ctx, buildGrantEvent(notifier.EventGrantRevoked, grant, g.recordTitle(ctx, grant.ResourceID), now))
	return nil
}

// RevokeAllForResource revokes every active grant referencing the resource,
// across all owners. Used when a record is deleted from the catalog.
func (g *grantUseCase) RevokeAllForResource(ctx context.Context, resourceID uuid.UUID) (int64, error) {
	now := g.now()
	var revokedGrants []*grantsDomain.Grant

	err := g.txManager.WithTx(ctx, func(txCtx context.Context) error {
		active, err := g.grantRepo.ListActiveByResource(txCtx, resourceID, now)
		if err != nil {
			return err
		}
		for _, grant := range active {
			revoked, err := g.grantRepo.RevokeConditional(txCtx, grant.ID, now)
			if err != nil {
				return err
			}
			if revoked {
				revokedGrants = append(revokedGrants, grant)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	title := g.recordTitle(ctx, resourceID)
	for _, grant := range revokedGrants {
		g.notify(ctx, buildGrantEvent(notifier.EventGrantRevoked, grant, title, now))
	}
	return int64(len(revokedGrants)), nil
}

// ListActiveForGrantee returns the grants a grantee currently holds,
// filtered against the record catalog so deleted records never show up.
func (g *grantUseCase) ListActiveForGrantee(ctx context.Context, granteeID uuid.UUID) ([]*grantsDomain.Grant, error) {
	grants, err := g.grantRepo.ListActiveByGrantee(ctx, granteeID, g.now())
	if err != nil {
		return nil, err
	}
	return g.resolver.FilterCatalogued(ctx, grants)
}

// ListActiveForOwnerGrantee returns the records an owner currently shares
// with one grantee, one authoritative grant per record.
func (g *grantUseCase) ListActiveForOwnerGrantee(ctx context.Context, ownerID, granteeID uuid.UUID) ([]*grantsDomain.Grant, error) {
	return g.resolver.ResolveActivePermissions(ctx, ownerID, granteeID, g.now())
}

// ListActiveForOwnerResource returns the active grants an owner has issued
// for one resource, filtered against the record catalog.
func (g *grantUseCase) ListActiveForOwnerResource(ctx context.Context, ownerID, resourceID uuid.UUID) ([]*grantsDomain.Grant, error) {
	grants, err := g.grantRepo.ListActiveByOwnerResource(ctx, ownerID, resourceID, g.now())
	if err != nil {
		return nil, err
	}
	return g.resolver.FilterCatalogued(ctx, grants)
}

// notify delivers a lifecycle event best effort. Failures are logged and
// never propagated to the triggering operation.
func (g *grantUseCase) notify(ctx context.Context, event notifier.Event) {
	if err := g.eventNotifier.Notify(ctx, event); err != nil {
		g.logger.Error("failed to deliver grant notification",
			slog.String("event_type", string(event.Type)),
			slog.String("grant_id", event.GrantID.String()),
			slog.Any("error", err),
		)
	}
}

func (g *grantUseCase) recordTitle(ctx context.Context, resourceID uuid.UUID) string {
	record, err := g.catalog.Get(ctx, resourceID)
	if err != nil {
		return ""
	}
	return record.Title
}

func buildGrantEvent(eventType notifier.EventType, grant *grantsDomain.Grant, resourceTitle string, now time.Time) notifier.Event {
	return notifier.Event{
		Type:          eventType,
		GrantID:       grant.ID,
		OwnerID:       grant.OwnerID,
		GranteeID:     grant.GranteeID,
		ResourceID:    grant.ResourceID,
		ResourceTitle: resourceTitle,
		AccessLevel:   string(grant.AccessLevel),
		Scope:         grant.Scope.String(),
		ExpiresAt:     grant.ExpiresAt,
		OccurredAt:    now,
	}
}
