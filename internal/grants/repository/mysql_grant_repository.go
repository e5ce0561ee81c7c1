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

// MySQLGrantRepository implements Grant persistence for MySQL.
// Uses BINARY(16) for UUIDs with transaction support via database.GetTx().
type MySQLGrantRepository struct {
	db *sql.DB
}

// Create inserts a new grant row into the MySQL database.
func (m *MySQLGrantRepository) Create(ctx context.Context, grant *grantsDomain.Grant) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO record_grants (` + grantColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	ids, err := marshalGrantIDs(grant)
	if err != nil {
		return err
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		ids.id,
		ids.ownerID,
		ids.granteeID,
		ids.resourceID,
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
func (m *MySQLGrantRepository) Update(ctx context.Context, grant *grantsDomain.Grant) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE record_grants
			  SET access_level = ?,
			  	  shared_fields = ?,
				  is_granted = ?,
				  granted_at = ?,
				  expires_at = ?,
				  revoked_at = ?
			  WHERE id = ?`

	id, err := grant.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal grant id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		string(grant.AccessLevel),
		grant.Scope.String(),
		grant.IsGranted,
		grant.GrantedAt,
		grant.ExpiresAt,
		grant.RevokedAt,
		id,
	)
	if err != nil {
		return apperrors.Unavailable(err, "failed to update grant")
	}
	return nil
}

// Get retrieves a grant by ID. Returns ErrGrantNotFound if no row exists.
func (m *MySQLGrantRepository) Get(ctx context.Context, grantID uuid.UUID) (*grantsDomain.Grant, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + grantColumns + ` FROM record_grants WHERE id = ?`

	id, err := grantID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal grant id")
	}

	grant, err := scanMySQLGrant(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, grantsDomain.ErrGrantNotFound
		}
		return nil, apperrors.Unavailable(err, "failed to get grant")
	}
	return grant, nil
}

// ListByKey retrieves every historical row for an (owner, grantee, resource)
// key, most recently granted first.
func (m *MySQLGrantRepository) ListByKey(
	ctx context.Context,
	ownerID, granteeID, resourceID uuid.UUID,
) ([]*grantsDomain.Grant, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + grantColumns + `
			  FROM record_grants
			  WHERE owner_id = ? AND grantee_id = ? AND resource_id = ?
			  ORDER BY granted_at DESC`

	owner, grantee, resource, err := marshalKeyIDs(ownerID, granteeID, resourceID)
	if err != nil {
		return nil, err
	}

	rows, err := querier.QueryContext(ctx, query, owner, grantee, resource)
	if err != nil {
		return nil, apperrors.Unavailable(err, "failed to list grants by key")
	}
	return collectMySQLGrants(rows)
}

// ListActiveByOwnerGrantee retrieves all active grants between an owner and a
// grantee across every resource.
func (m *MySQLGrantRepository) ListActiveByOwnerGrantee(
	ctx context.Context,
	ownerID, granteeID uuid.UUID,
	now time.Time,
) ([]*grantsDomain.Grant, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + grantColumns + `
			  FROM record_grants
			  WHERE owner_id = ? AND grantee_id = ?
			  AND is_granted = TRUE AND revoked_at IS NULL
			  AND (expires_at IS NULL OR expires_at > ?)
			  ORDER BY granted_at DESC`

	owner, err := ownerID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal owner id")
	}
	grantee, err := granteeID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal grantee id")
	}

	rows, err := querier.QueryContext(ctx, query, owner, grantee, now)
	if err != nil {
		return nil, apperrors.Unavailable(err, "failed to list active grants by owner and grantee")
	}
	return collectMySQLGrants(rows)
}

// ListActiveByGrantee retrieves all active grants held by a grantee.
func (m *MySQLGrantRepository) ListActiveByGrantee(
	ctx context.Context,
	granteeID uuid.UUID,
	now time.Time,
) ([]*grantsDomain.Grant, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + grantColumns + `
			  FROM record_grants
			  WHERE grantee_id = ?
			  AND is_granted = TRUE AND revoked_at IS NULL
			  AND (expires_at IS NULL OR expires_at > ?)
			  ORDER BY granted_at DESC`

	grantee, err := granteeID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal grantee id")
	}

	rows, err := querier.QueryContext(ctx, query, grantee, now)
	if err != nil {
		return nil, apperrors.Unavailable(err, "failed to list active grants by grantee")
	}
	return collectMySQLGrants(rows)
}

// ListActiveByOwnerResource retrieves all active grants an owner has issued
// for one resource.
func (m *MySQLGrantRepository) ListActiveByOwnerResource(
	ctx context.Context,
	ownerID, resourceID uuid.UUID,
	now time.Time,
) ([]*grantsDomain.Grant, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + grantColumns + `
			  FROM record_grants
			  WHERE owner_id = ? AND resource_id = ?
			  AND is_granted = TRUE AND revoked_at IS NULL
			  AND (expires_at IS NULL OR expires_at > ?)
			  ORDER BY granted_at DESC`

	owner, err := ownerID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal owner id")
	}
	resource, err := resourceID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal resource id")
	}

	rows, err := querier.QueryContext(ctx, query, owner, resource, now)
	if err != nil {
		return nil, apperrors.Unavailable(err, "failed to list active grants by owner and resource")
	}
	return collectMySQLGrants(rows)
}

// ListActiveByResource retrieves every active grant referencing a resource.
// Used for cascade revoke when a record is deleted.
func (m *MySQLGrantRepository) ListActiveByResource(
	ctx context.Context,
	resourceID uuid.UUID,
	now time.Time,
) ([]*grantsDomain.Grant, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + grantColumns + `
			  FROM record_grants
			  WHERE resource_id = ?
			  AND is_granted = TRUE AND revoked_at IS NULL
			  AND (expires_at IS NULL OR expires_at > ?)
			  ORDER BY granted_at DESC`

	resource, err := resourceID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal resource id")
	}

	rows, err := querier.QueryContext(ctx, query, resource, now)
	if err != nil {
		return nil, apperrors.Unavailable(err, "failed to list active grants by resource")
	}
	return collectMySQLGrants(rows)
}

// ListExpiringBetween retrieves active grants whose expiry falls inside the
// (from, to] window.
func (m *MySQLGrantRepository) ListExpiringBetween(
	ctx context.Context,
	from, to time.Time,
) ([]*grantsDomain.Grant, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + grantColumns + `
			  FROM record_grants
			  WHERE is_granted = TRUE AND revoked_at IS NULL
			  AND expires_at IS NOT NULL AND expires_at > ? AND expires_at <= ?
			  ORDER BY expires_at ASC`

	rows, err := querier.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, apperrors.Unavailable(err, "failed to list expiring grants")
	}
	return collectMySQLGrants(rows)
}

// CountDue counts the active grants whose expiry has already passed, using
// the same predicate as ExpireAllDue.
func (m *MySQLGrantRepository) CountDue(ctx context.Context, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT COUNT(*) FROM record_grants
			  WHERE is_granted = TRUE AND revoked_at IS NULL
			  AND expires_at IS NOT NULL AND expires_at <= ?`

	var count int64
	if err := querier.QueryRowContext(ctx, query, now).Scan(&count); err != nil {
		return 0, apperrors.Unavailable(err, "failed to count due grants")
	}
	return count, nil
}

// ExpireAllDue flips every grant past its expiry to revoked in one conditional
// bulk statement and returns the number of rows affected.
func (m *MySQLGrantRepository) ExpireAllDue(ctx context.Context, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE record_grants
			  SET is_granted = FALSE, revoked_at = ?
			  WHERE is_granted = TRUE AND revoked_at IS NULL
			  AND expires_at IS NOT NULL AND expires_at <= ?`

	result, err := querier.ExecContext(ctx, query, now, now)
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
// unrevoked at write time. Returns false when the precondition no longer holds.
func (m *MySQLGrantRepository) RevokeConditional(
	ctx context.Context,
	grantID uuid.UUID,
	now time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE record_grants
			  SET is_granted = FALSE, revoked_at = ?
			  WHERE id = ? AND is_granted = TRUE AND revoked_at IS NULL`

	id, err := grantID.MarshalBinary()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal grant id")
	}

	result, err := querier.ExecContext(ctx, query, now, id)
	if err != nil {
		return false, apperrors.Unavailable(err, "failed to revoke grant")
	}

	count, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Unavailable(err, "failed to read revoked row count")
	}
	return count > 0, nil
}

// NewMySQLGrantRepository creates a new MySQL Grant repository.
func NewMySQLGrantRepository(db *sql.DB) *MySQLGrantRepository {
	return &MySQLGrantRepository{db: db}
}

// grantIDs holds the BINARY(16) forms of a grant's identifier columns.
type grantIDs struct {
	id, ownerID, granteeID, resourceID []byte
}

// marshalGrantIDs converts all of a grant's UUIDs to their binary forms.
func marshalGrantIDs(grant *grantsDomain.Grant) (grantIDs, error) {
	var (
		ids grantIDs
		err error
	)
	if ids.id, err = grant.ID.MarshalBinary(); err != nil {
		return ids, apperrors.Wrap(err, "failed to marshal grant id")
	}
	if ids.ownerID, err = grant.OwnerID.MarshalBinary(); err != nil {
		return ids, apperrors.Wrap(err, "failed to marshal owner id")
	}
	if ids.granteeID, err = grant.GranteeID.MarshalBinary(); err != nil {
		return ids, apperrors.Wrap(err, "failed to marshal grantee id")
	}
	if ids.resourceID, err = grant.ResourceID.MarshalBinary(); err != nil {
		return ids, apperrors.Wrap(err, "failed to marshal resource id")
	}
	return ids, nil
}

// marshalKeyIDs converts an (owner, grantee, resource) key to binary forms.
func marshalKeyIDs(ownerID, granteeID, resourceID uuid.UUID) ([]byte, []byte, []byte, error) {
	owner, err := ownerID.MarshalBinary()
	if err != nil {
		return nil, nil, nil, apperrors.Wrap(err, "failed to marshal owner id")
	}
	grantee, err := granteeID.MarshalBinary()
	if err != nil {
		return nil, nil, nil, apperrors.Wrap(err, "failed to marshal grantee id")
	}
	resource, err := resourceID.MarshalBinary()
	if err != nil {
		return nil, nil, nil, apperrors.Wrap(err, "failed to marshal resource id")
	}
	return owner, grantee, resource, nil
}

// scanMySQLGrant scans one grant row, decoding BINARY(16) UUID columns.
func scanMySQLGrant(s scanner) (*grantsDomain.Grant, error) {
	var (
		grant        grantsDomain.Grant
		rawID        []byte
		rawOwner     []byte
		rawGrantee   []byte
		rawResource  []byte
		accessLevel  string
		sharedFields string
	)
	err := s.Scan(
		&rawID,
		&rawOwner,
		&rawGrantee,
		&rawResource,
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

	if grant.ID, err = uuid.FromBytes(rawID); err != nil {
		return nil, apperrors.Wrap(err, "failed to parse grant id")
	}
	if grant.OwnerID, err = uuid.FromBytes(rawOwner); err != nil {
		return nil, apperrors.Wrap(err, "failed to parse owner id")
	}
	if grant.GranteeID, err = uuid.FromBytes(rawGrantee); err != nil {
		return nil, apperrors.Wrap(err, "failed to parse grantee id")
	}
	if grant.ResourceID, err = uuid.FromBytes(rawResource); err != nil {
		return nil, apperrors.Wrap(err, "failed to parse resource id")
	}

	grant.AccessLevel = grantsDomain.AccessLevel(accessLevel)
	grant.Scope = grantsDomain.ParseScope(sharedFields)
	return &grant, nil
}

// collectMySQLGrants drains a result set into grant entities.
func collectMySQLGrants(rows *sql.Rows) ([]*grantsDomain.Grant, error) {
	defer func() { _ = rows.Close() }()

	var grants []*grantsDomain.Grant
	for rows.Next() {
		grant, err := scanMySQLGrant(rows)
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
