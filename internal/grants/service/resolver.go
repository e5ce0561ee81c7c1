// Package service implements grant resolution over the grant store.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/medvault/grants/internal/errors"
	"github.com/medvault/grants/internal/grants/domain"
	recordsDomain "github.com/medvault/grants/internal/records/domain"
)

// GrantReader defines the repository reads the resolver depends on
type GrantReader interface {
	ListByKey(ctx context.Context, ownerID, granteeID, resourceID uuid.UUID) ([]*domain.Grant, error)
	ListActiveByOwnerGrantee(ctx context.Context, ownerID, granteeID uuid.UUID, now time.Time) ([]*domain.Grant, error)
}

// RecordCatalog resolves resource ids against the record catalog
type RecordCatalog interface {
	Get(ctx context.Context, recordID uuid.UUID) (*recordsDomain.Record, error)
}

// Resolver picks the authoritative grant row when the store holds several
// rows for the same owner, grantee and resource.
type Resolver struct {
	grantReader GrantReader
	catalog     RecordCatalog
	logger      *slog.Logger
}

// NewResolver creates a new Resolver
func NewResolver(grantReader GrantReader, catalog RecordCatalog, logger *slog.Logger) *Resolver {
	return &Resolver{
		grantReader: grantReader,
		catalog:     catalog,
		logger:      logger,
	}
}

// ResolveAuthoritative returns the most recently granted row for the key,
// active or not. Historical rows never override the latest decision.
func (r *Resolver) ResolveAuthoritative(ctx context.Context, ownerID, granteeID, resourceID uuid.UUID) (*domain.Grant, error) {
	grants, err := r.grantReader.ListByKey(ctx, ownerID, granteeID, resourceID)
	if err != nil {
		return nil, err
	}
	if len(grants) == 0 {
		return nil, domain.ErrGrantNotFound
	}

	authoritative := grants[0]
	for _, grant := range grants[1:] {
		if grant.GrantedAt.After(authoritative.GrantedAt) {
			authoritative = grant
		}
	}
	return authoritative, nil
}

// ResolveActivePermissions returns every active authoritative grant the
// grantee holds from the owner at the given instant. Rows whose resource no
// longer resolves in the record catalog are skipped, not surfaced as errors.
func (r *Resolver) ResolveActivePermissions(ctx context.Context, ownerID, granteeID uuid.UUID, now time.Time) ([]*domain.Grant, error) {
	grants, err := r.grantReader.ListActiveByOwnerGrantee(ctx, ownerID, granteeID, now)
	if err != nil {
		return nil, err
	}

	latest := make(map[uuid.UUID]*domain.Grant, len(grants))
	order := make([]uuid.UUID, 0, len(grants))
	for _, grant := range grants {
		current, ok := latest[grant.ResourceID]
		if !ok {
			latest[grant.ResourceID] = grant
			order = append(order, grant.ResourceID)
			continue
		}
		if grant.GrantedAt.After(current.GrantedAt) {
			latest[grant.ResourceID] = grant
		}
	}

	ordered := make([]*domain.Grant, 0, len(order))
	for _, resourceID := range order {
		ordered = append(ordered, latest[resourceID])
	}
	return r.FilterCatalogued(ctx, ordered)
}

// FilterCatalogued drops grants whose resource no longer resolves in the
// record catalog. Orphaned rows are logged and skipped so a deleted record
// never fails a whole listing; catalog infrastructure failures still do.
func (r *Resolver) FilterCatalogued(ctx context.Context, grants []*domain.Grant) ([]*domain.Grant, error) {
	result := make([]*domain.Grant, 0, len(grants))
	for _, grant := range grants {
		if _, err := r.catalog.Get(ctx, grant.ResourceID); err != nil {
			if apperrors.Is(err, apperrors.ErrNotFound) {
				r.logger.Warn("skipping grant for missing record",
					slog.String("grant_id", grant.ID.String()),
					slog.String("resource_id", grant.ResourceID.String()),
				)
				continue
			}
			return nil, err
		}
		result = append(result, grant)
	}
	return result, nil
}
