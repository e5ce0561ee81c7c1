// Package repository implements data persistence for the medical-record
// catalog. Repositories support both PostgreSQL and MySQL and only expose the
// narrow read surface the grant engine needs.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/medvault/grants/internal/database"
	apperrors "github.com/medvault/grants/internal/errors"
	recordsDomain "github.com/medvault/grants/internal/records/domain"
)

// PostgreSQLRecordRepository implements Record catalog lookups for PostgreSQL.
type PostgreSQLRecordRepository struct {
	db *sql.DB
}

// Create inserts a new record into the PostgreSQL database. Used by fixtures
// and the upload collaborator; the grant engine itself only reads.
func (p *PostgreSQLRecordRepository) Create(ctx context.Context, record *recordsDomain.Record) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO medical_records (id, owner_id, title, record_type, uploaded_at, deleted_at)
			  VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := querier.ExecContext(
		ctx,
		query,
		record.ID,
		record.OwnerID,
		record.Title,
		record.RecordType,
		record.UploadedAt,
		record.DeletedAt,
	)
	if err != nil {
		return apperrors.Unavailable(err, "failed to create record")
	}
	return nil
}

// Get retrieves a non-deleted record by ID. Returns ErrRecordNotFound if the
// record does not exist or was soft-deleted.
func (p *PostgreSQLRecordRepository) Get(ctx context.Context, recordID uuid.UUID) (*recordsDomain.Record, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, owner_id, title, record_type, uploaded_at, deleted_at
			  FROM medical_records
			  WHERE id = $1 AND deleted_at IS NULL`

	var record recordsDomain.Record
	err := querier.QueryRowContext(ctx, query, recordID).Scan(
		&record.ID,
		&record.OwnerID,
		&record.Title,
		&record.RecordType,
		&record.UploadedAt,
		&record.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, recordsDomain.ErrRecordNotFound
		}
		return nil, apperrors.Unavailable(err, "failed to get record")
	}

	return &record, nil
}

// NewPostgreSQLRecordRepository creates a new PostgreSQL Record repository.
func NewPostgreSQLRecordRepository(db *sql.DB) *PostgreSQLRecordRepository {
	return &PostgreSQLRecordRepository{db: db}
}
