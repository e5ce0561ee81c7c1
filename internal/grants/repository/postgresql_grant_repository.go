// Package repository implements data persistence for access grants.
// Repositories support both PostgreSQL and MySQL. They contain no business
// rules: the lifecycle manager and sweeper own all transitions, and the store
// only guarantees atomic single-row writes, ordered key queries, and the
// conditional bulk updates the concurrency model relies on.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/medvault/grants/internal/database"
	apperrors "github.com/medvault/grants/internal/errors"
	grantsDomain "github.com/medvault/grants/internal/grants/domain"
)

// grantColumns is the canonical column list shared by all grant queries.
const grantColumns = `id, owner_id, grantee_id, resource_id, access_level, shared_fields,
			  is_granted, granted_at, expires_at, revoked_at, created_at`

// PostgreSQLGrantRepository implements Grant persistence for PostgreSQL.
type PostgreSQLGrantRepository struct {
	db *sql.DB
}

// Create inserts a new grant row into the PostgreSQL database.
func (p *PostgreSQLGrantRepository) Create(ctx context.Context, grant *grantsDomain.Grant) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO record_grants (` + grantColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := querier.ExecContext(
		ctx,
		query,
		grant.ID,
		grant.OwnerID,
		grant.GranteeID,
		grant.ResourceID,
		string(grant.AccessLevel),
		grant.Scope.String(),
		grant.IsGranted,
		grant.GrantedAt,
		grant.ExpiresAt,
		grant.RevokedAt,
		grant.CreatedAt,
	)
	if err != nil {
		return apperrors.Unavailable(err, "failed to create grant")
	}
	return nil
}

// Update rewrites the mutable fields of an existing grant row in a single
// statement, so concurrent readers never observe a partial update.
func (p *PostgreSQLGrantRepository) Update(ctx context.Context, grant *grantsDomain.Grant) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE record_grants
			  SET access_level = $1,
			  	  shared_fields = $2,
				  is_granted = $3,
				  granted_at = $4,
				  expires_at = $5,
				  revoked_at = $6
			  WHERE id = $7`

	_, err := querier.ExecContext(
		ctx,
		query,
		string(grant.AccessLevel),
		grant.Scope.String(),
		grant.IsGranted,
		grant.GrantedAt,
		grant.ExpiresAt,
		grant.RevokedAt,
		grant.ID,
	)
	if err != nil {
		return apperrors.Unavailable(err, "failed to update grant")
	}
	return nil
}

// Get retrieves a grant by ID. Returns ErrGrantNotFound if no row exists.
func (p *PostgreSQLGrantRepository) Get(ctx context.Context, grantID uuid.UUID) (*grantsDomain.Grant, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + grantColumns + ` FROM record_grants WHERE id = $1`

	grant, err := scanPostgresGrant(querier.QueryRowContext(ctx, query, grantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, grantsDomain.ErrGrantNotFound
		}
		return nil, apperrors.Unavailable(err, "failed to get grant")
	}
	return grant, nil
}

// ListByKey retrieves every historical row for an (owner, grantee, resource)
// key, most recently granted first. The resolver treats the first row as the
// authoritative grant.
func (p *PostgreSQLGrantRepository) ListByKey(
	ctx context.Context,
	ownerID, granteeID, resourceID uuid.UUID,
) ([]*grantsDomain.Grant, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + grantColumns + `
			  FROM record_grants
			  WHERE owner_id = $1 AND grantee_id = $2 AND resource_id = $3
			  ORDER BY granted_at DESC`

	rows, err := querier.QueryContext(ctx, query, ownerID, granteeID, resourceID)
	if err != nil {
		return nil, apperrors.Unavailable(err, "failed to list grants by key")
	}
	return collectPostgresGrants(rows)
}

// ListActiveByOwnerGrantee retrieves all active grants between an owner and a
// grantee across every resource.
func (p *PostgreSQLGrantRepository) ListActiveByOwnerGrantee(
	ctx context.Context,
	ownerID, granteeID uuid.UUID,
	now time.Time,
) ([]*grantsDomain.Grant, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + grantColumns + `
			  FROM record_grants
			  WHERE owner_id = $1 AND grantee_id = $2
			  AND is_granted = TRUE AND revoked_at IS NULL
			  AND (expires_at IS NULL OR expires_at > $3)
			  ORDER BY granted_at DESC`

	rows, err := querier.QueryContext(ctx, query, ownerID, granteeID, now)
	if err != nil {
		return nil, apperrors.Unavailable(err, "failed to list active grants by owner and grantee")
	}
	return collectPostgresGrants(rows)
}

// ListActiveByGrantee retrieves all active grants held by a grantee across
// every owner and resource.
func (p *PostgreSQLGrantRepository) ListActiveByGrantee(
	ctx context.Context,
	granteeID uuid.UUID,
	now time.Time,
) ([]*grantsDomain.Grant, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + grantColumns + `
			  FROM record_grants
			  WHERE grantee_id = $1
			  AND is_granted = TRUE AND revoked_at IS NULL
			  AND (expires_at IS NULL OR expires_at > $2)
			  ORDER BY granted_at DESC`

	rows, err := querier.QueryContext(ctx, query, granteeID, now)
	if err != nil {
		return nil, apperrors.Unavailable(err, "failed to list active grants by grantee")
	}
	return collectPostgresGrants(rows)
}

// ListActiveByOwnerResource retrieves all active grants an owner has issued
// for one resource.
func (p *PostgreSQLGrantRepository) ListActiveByOwnerResource(
	ctx context.Context,
	ownerID, resourceID uuid.UUID,
	now time.Time,
) ([]*grantsDomain.Grant, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + grantColumns + `
			  FROM record_grants
			  WHERE owner_id = $1 AND resource_id = $2
			  AND is_granted = TRUE AND revoked_at IS NULL
			  AND (expires_at IS NULL OR expires_at > $3)
			  ORDER BY granted_at DESC`

	rows, err := querier.QueryContext(ctx, query, ownerID, resourceID, now)
	if err != nil {
		return nil, apperrors.Unavailable(err, "failed to list active grants by owner and resource")
	}
	return collectPostgresGrants(rows)
}

// ListActiveByResource retrieves every active grant referencing a resource,
// regardless of owner. Used for cascade revoke when a record is deleted.
func (p *PostgreSQLGrantRepository) ListActiveByResource(
	ctx context.Context,
	resourceID uuid.UUID,
	now time.Time,
) ([]*grantsDomain.Grant, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + grantColumns + `
			  FROM record_grants
			  WHERE resource_id = $1
			  AND is_granted = TRUE AND revoked_at IS NULL
			  AND (expires_at IS NULL OR expires_at > $2)
			  ORDER BY granted_at DESC`

	rows, err := querier.QueryContext(ctx, query, resourceID, now)
	if err != nil {
		return nil, apperrors.Unavailable(err, "failed to list active grants by resource")
	}
	return collectPostgresGrants(rows)
}

// ListExpiringBetween retrieves active grants whose expiry falls inside the
// (from, to] window. Feeds the sweeper's warning pass.
func (p *PostgreSQLGrantRepository) ListExpiringBetween(
	ctx context.Context,
	from, to time.Time,
) ([]*grantsDomain.Grant, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + grantColumns + `
			  FROM record_grants
			  WHERE is_granted = TRUE AND revoked_at IS NULL
			  AND expires_at IS NOT NULL AND expires_at > $1 AND expires_at <= $2
			  ORDER BY expires_at ASC`

	rows, err := querier.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, apperrors.Unavailable(err, "failed to list expiring grants")
	}
	return collectPostgresGrants(rows)
}

// CountDue counts the active grants whose expiry has already passed. The
// predicate matches ExpireAllDue exactly, so the count is what a pass run at
// the same instant would close.
func (p *PostgreSQLGrantRepository) CountDue(ctx context.Context, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT COUNT(*) FROM record_grants
			  WHERE is_granted = TRUE AND revoked_at IS NULL
			  AND expires_at IS NOT NULL AND expires_at <= $1`

	var count int64
	if err := querier.QueryRowContext(ctx, query, now).Scan(&count); err != nil {
		return 0, apperrors.Unavailable(err, "failed to count due grants")
	}
	return count, nil
}

// ExpireAllDue flips every grant past its expiry to revoked in one conditional
// bulk statement and returns the number of rows affected. The WHERE clause
// re-checks is_granted and revoked_at inside the same atomic operation, so a
// row revoked or re-granted by a concurrent writer is skipped rather than
// resurrected or double-revoked.
func (p *PostgreSQLGrantRepository) ExpireAllDue(ctx context.Context, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE record_grants
			  SET is_granted = FALSE, revoked_at = $1
			  WHERE is_granted = TRUE AND revoked_at IS NULL
			  AND expires_at IS NOT NULL AND expires_at <= $1`

	result, err := querier.ExecContext(ctx, query, now)
	if err != nil {
		return 0, apperrors.Unavailable(err, "failed to expire due grants")
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Unavailable(err, "failed to read expired row count")
	}
	return count, nil
}

// RevokeConditional terminates a single grant only if it is still granted and
// unrevoked at write time. Returns false when the precondition no longer holds,
// which is how a manual revoke detects it lost the race against the sweeper.
func (p *PostgreSQLGrantRepository) RevokeConditional(
	ctx context.Context,
	grantID uuid.UUID,
	now time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE record_grants
			  SET is_granted = FALSE, revoked_at = $1
			  WHERE id = $2 AND is_granted = TRUE AND revoked_at IS NULL`

	result, err := querier.ExecContext(ctx, query, now, grantID)
	if err != nil {
		return false, apperrors.Unavailable(err, "failed to revoke grant")
	}

	count, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Unavailable(err, "failed to read revoked row count")
	}
	return count > 0, nil
}

// NewPostgreSQLGrantRepository creates a new PostgreSQL Grant repository.
func NewPostgreSQLGrantRepository(db *sql.DB) *PostgreSQLGrantRepository {
	return &PostgreSQLGrantRepository{db: db}
}

// scanner abstracts *sql.Row and *sql.Rows for the shared scan logic.
type scanner interface {
	Scan(dest ...any) error
}

// scanPostgresGrant scans one grant row using native UUID and timestamp types.
func scanPostgresGrant(s scanner) (*grantsDomain.Grant, error) {
	var (
		grant        grantsDomain.Grant
		accessLevel  string
		sharedFields string
	)
	err := s.Scan(
		&grant.ID,
		&grant.OwnerID,
		&grant.GranteeID,
		&grant.ResourceID,
		&accessLevel,
		&sharedFields,
		&grant.IsGranted,
		&grant.GrantedAt,
		&grant.ExpiresAt,
		&grant.RevokedAt,
		&grant.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	grant.AccessLevel = grantsDomain.AccessLevel(accessLevel)
	grant.Scope = grantsDomain.ParseScope(sharedFields)
	return &grant, nil
}

// collectPostgresGrants drains a result set into grant entities.
func collectPostgresGrants(rows *sql.Rows) ([]*grantsDomain.Grant, error) {
	defer func() { _ = rows.Close() }()

	var grants []*grantsDomain.Grant
	for rows.Next() {
		grant, err := scanPostgresGrant(rows)
		if err != nil {
			return nil, apperrors.Unavailable(err, "failed to scan grant row")
		}
		grants = append(grants, grant)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Unavailable(err, "failed to iterate grant rows")
	}
	return grants, nil
}
