package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/medvault/grants/internal/errors"
	grantsDomain "github.com/medvault/grants/internal/grants/domain"
)

// accessUseCase implements the AccessUseCase interface.
type accessUseCase struct {
	resolver GrantResolver
}

// NewAccessUseCase creates a new AccessUseCase
func NewAccessUseCase(resolver GrantResolver) AccessUseCase {
	return &accessUseCase{resolver: resolver}
}

// CheckAccess decides whether the grantee may read the owner's resource at
// the given instant. A missing row and an inactive row produce the same
// deny: the decision carries no reason.
func (a *accessUseCase) CheckAccess(
	ctx context.Context,
	ownerID, granteeID, resourceID uuid.UUID,
	now time.Time,
) (grantsDomain.AccessDecision, error) {
	grant, err := a.resolver.ResolveAuthoritative(ctx, ownerID, granteeID, resourceID)
	if err != nil {
		if apperrors.Is(err, grantsDomain.ErrGrantNotFound) {
			return grantsDomain.AccessDecision{}, nil
		}
		return grantsDomain.AccessDecision{}, err
	}
	if !grant.IsActive(now) {
		return grantsDomain.AccessDecision{}, nil
	}
	return grantsDomain.AccessDecision{Allowed: true, Scope: grant.Scope}, nil
}
