package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	grantsDomain "github.com/medvault/grants/internal/grants/domain"
	"github.com/medvault/grants/internal/metrics"
)

// grantUseCaseWithMetrics decorates GrantUseCase with metrics instrumentation.
type grantUseCaseWithMetrics struct {
	next    GrantUseCase
	metrics metrics.BusinessMetrics
}

// NewGrantUseCaseWithMetrics wraps a GrantUseCase with metrics recording.
func NewGrantUseCaseWithMetrics(useCase GrantUseCase, m metrics.BusinessMetrics) GrantUseCase {
	return &grantUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (g *grantUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	g.metrics.RecordOperation(ctx, "grants", operation, status)
	g.metrics.RecordDuration(ctx, "grants", operation, time.Since(start), status)
}

// Grant records metrics for grant creation operations.
func (g *grantUseCaseWithMetrics) Grant(ctx context.Context, input grantsDomain.GrantInput) (*grantsDomain.Grant, error) {
	start := time.Now()
	grant, err := g.next.Grant(ctx, input)
	g.record(ctx, "grant_create", start, err)
	return grant, err
}

// Revoke records metrics for grant revocation operations.
func (g *grantUseCaseWithMetrics) Revoke(ctx context.Context, grantID, requestingOwnerID uuid.UUID) error {
	start := time.Now()
	err := g.next.Revoke(ctx, grantID, requestingOwnerID)
	g.record(ctx, "grant_revoke", start, err)
	return err
}

// RevokeAllForResource records metrics for cascade revocations.
func (g *grantUseCaseWithMetrics) RevokeAllForResource(ctx context.Context, resourceID uuid.UUID) (int64, error) {
	start := time.Now()
	count, err := g.next.RevokeAllForResource(ctx, resourceID)
	g.record(ctx, "grant_revoke_resource", start, err)
	return count, err
}

// ListActiveForGrantee records metrics for grantee listing operations.
func (g *grantUseCaseWithMetrics) ListActiveForGrantee(ctx context.Context, granteeID uuid.UUID) ([]*grantsDomain.Grant, error) {
	start := time.Now()
	grants, err := g.next.ListActiveForGrantee(ctx, granteeID)
	g.record(ctx, "grant_list_grantee", start, err)
	return grants, err
}

// ListActiveForOwnerGrantee records metrics for pair listing operations.
func (g *grantUseCaseWithMetrics) ListActiveForOwnerGrantee(
	ctx context.Context,
	ownerID, granteeID uuid.UUID,
) ([]*grantsDomain.Grant, error) {
	start := time.Now()
	grants, err := g.next.ListActiveForOwnerGrantee(ctx, ownerID, granteeID)
	g.record(ctx, "grant_list_owner_grantee", start, err)
	return grants, err
}

// ListActiveForOwnerResource records metrics for owner listing operations.
func (g *grantUseCaseWithMetrics) ListActiveForOwnerResource(
	ctx context.Context,
	ownerID, resourceID uuid.UUID,
) ([]*grantsDomain.Grant, error) {
	start := time.Now()
	grants, err := g.next.ListActiveForOwnerResource(ctx, ownerID, resourceID)
	g.record(ctx, "grant_list_owner_resource", start, err)
	return grants, err
}

// accessUseCaseWithMetrics decorates AccessUseCase with metrics instrumentation.
type accessUseCaseWithMetrics struct {
	next    AccessUseCase
	metrics metrics.BusinessMetrics
}

// NewAccessUseCaseWithMetrics wraps an AccessUseCase with metrics recording.
func NewAccessUseCaseWithMetrics(useCase AccessUseCase, m metrics.BusinessMetrics) AccessUseCase {
	return &accessUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// CheckAccess records metrics for access decisions. Denied decisions are not
// errors: the status label reflects infrastructure failures only.
func (a *accessUseCaseWithMetrics) CheckAccess(
	ctx context.Context,
	ownerID, granteeID, resourceID uuid.UUID,
	now time.Time,
) (grantsDomain.AccessDecision, error) {
	start := time.Now()
	decision, err := a.next.CheckAccess(ctx, ownerID, granteeID, resourceID, now)

	status := "success"
	if err != nil {
		status = "error"
	}
	a.metrics.RecordOperation(ctx, "access", "access_check", status)
	a.metrics.RecordDuration(ctx, "access", "access_check", time.Since(start), status)

	return decision, err
}
