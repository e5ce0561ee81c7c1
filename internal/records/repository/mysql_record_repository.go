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

// MySQLRecordRepository implements Record catalog lookups for MySQL.
// Uses BINARY(16) for UUIDs with transaction support via database.GetTx().
type MySQLRecordRepository struct {
	db *sql.DB
}

// Create inserts a new record into the MySQL database using BINARY(16) for UUIDs.
func (m *MySQLRecordRepository) Create(ctx context.Context, record *recordsDomain.Record) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO medical_records (id, owner_id, title, record_type, uploaded_at, deleted_at)
			  VALUES (?, ?, ?, ?, ?, ?)`

	id, err := record.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal record id")
	}

	ownerID, err := record.OwnerID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal owner id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		ownerID,
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
func (m *MySQLRecordRepository) Get(ctx context.Context, recordID uuid.UUID) (*recordsDomain.Record, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, owner_id, title, record_type, uploaded_at, deleted_at
			  FROM medical_records
			  WHERE id = ? AND deleted_at IS NULL`

	id, err := recordID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal record id")
	}

	var (
		record     recordsDomain.Record
		rawID      []byte
		rawOwnerID []byte
	)
	err = querier.QueryRowContext(ctx, query, id).Scan(
		&rawID,
		&rawOwnerID,
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

	if record.ID, err = uuid.FromBytes(rawID); err != nil {
		return nil, apperrors.Wrap(err, "failed to parse record id")
	}
	if record.OwnerID, err = uuid.FromBytes(rawOwnerID); err != nil {
		return nil, apperrors.Wrap(err, "failed to parse owner id")
	}

	return &record, nil
}

// NewMySQLRecordRepository creates a new MySQL Record repository.
func NewMySQLRecordRepository(db *sql.DB) *MySQLRecordRepository {
	return &MySQLRecordRepository{db: db}
}
