package domain

import (
	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	apperrors "github.com/medvault/grants/internal/errors"
)

// GrantInput carries the owner's grant request into the lifecycle manager.
type GrantInput struct {
	// OwnerID identifies the patient sharing the record.
	OwnerID uuid.UUID
	// GranteeID identifies the doctor receiving access.
	GranteeID uuid.UUID
	// ResourceID identifies the medical record being shared.
	ResourceID uuid.UUID
	// AccessLevel is the capability label to attach.
	AccessLevel AccessLevel
	// SharedFields restricts the visible record fields; empty means full record.
	SharedFields []string
	// DurationHours is the requested access duration. Nil applies the
	// configured default; zero or negative values are rejected.
	DurationHours *int
}

// Validate checks the grant input. Duration errors are reported as
// ErrInvalidDuration so callers can reject them before any write.
func (in *GrantInput) Validate() error {
	err := validation.ValidateStruct(in,
		validation.Field(&in.OwnerID, validation.Required, validation.By(nonNilUUID)),
		validation.Field(&in.GranteeID, validation.Required, validation.By(nonNilUUID)),
		validation.Field(&in.ResourceID, validation.Required, validation.By(nonNilUUID)),
		validation.Field(&in.AccessLevel,
			validation.Required,
			validation.In(AccessLevelRead, AccessLevelWrite, AccessLevelFullAccess),
		),
	)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
	}

	if in.OwnerID == in.GranteeID {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "owner and grantee must differ")
	}

	if in.DurationHours != nil && *in.DurationHours <= 0 {
		return ErrInvalidDuration
	}

	return nil
}

// nonNilUUID rejects the zero UUID, which validation.Required alone does not
// catch for the uuid.UUID value type.
func nonNilUUID(value any) error {
	id, ok := value.(uuid.UUID)
	if !ok || id == uuid.Nil {
		return validation.NewError("validation_uuid_required", "must be a non-zero UUID")
	}
	return nil
}
