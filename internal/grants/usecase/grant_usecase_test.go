package usecase

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	grantsDomain "github.com/medvault/grants/internal/grants/domain"
	"github.com/medvault/grants/internal/notifier"
	recordsDomain "github.com/medvault/grants/internal/records/domain"
)

// MockTxManager is a mock implementation of database.TxManager
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Get(0) != nil {
		return args.Error(0)
	}
	// Execute the function to test the logic inside
	return fn(ctx)
}

// MockGrantRepository is a mock implementation of GrantRepository
type MockGrantRepository struct {
	mock.Mock
}

func (m *MockGrantRepository) Create(ctx context.Context, grant *grantsDomain.Grant) error {
	args := m.Called(ctx, grant)
	return args.Error(0)
}

func (m *MockGrantRepository) Update(ctx context.Context, grant *grantsDomain.Grant) error {
	args := m.Called(ctx, grant)
	return args.Error(0)
}

func (m *MockGrantRepository) Get(ctx context.Context, grantID uuid.UUID) (*grantsDomain.Grant, error) {
	args := m.Called(ctx, grantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*grantsDomain.Grant), args.Error(1)
}

func (m *MockGrantRepository) ListByKey(
	ctx context.Context,
	ownerID, granteeID, resourceID uuid.UUID,
) ([]*grantsDomain.Grant, error) {
	args := m.Called(ctx, ownerID, granteeID, resourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*grantsDomain.Grant), args.Error(1)
}

func (m *MockGrantRepository) ListActiveByOwnerGrantee(
	ctx context.Context,
	ownerID, granteeID uuid.UUID,
	now time.Time,
) ([]*grantsDomain.Grant, error) {
	args := m.Called(ctx, ownerID, granteeID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*grantsDomain.Grant), args.Error(1)
}

func (m *MockGrantRepository) ListActiveByGrantee(
	ctx context.Context,
	granteeID uuid.UUID,
	now time.Time,
) ([]*grantsDomain.Grant, error) {
	args := m.Called(ctx, granteeID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*grantsDomain.Grant), args.Error(1)
}

func (m *MockGrantRepository) ListActiveByOwnerResource(
	ctx context.Context,
	ownerID, resourceID uuid.UUID,
	now time.Time,
) ([]*grantsDomain.Grant, error) {
	args := m.Called(ctx, ownerID, resourceID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*grantsDomain.Grant), args.Error(1)
}

func (m *MockGrantRepository) ListActiveByResource(
	ctx context.Context,
	resourceID uuid.UUID,
	now time.Time,
) ([]*grantsDomain.Grant, error) {
	args := m.Called(ctx, resourceID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*grantsDomain.Grant), args.Error(1)
}

func (m *MockGrantRepository) ListExpiringBetween(
	ctx context.Context,
	from, to time.Time,
) ([]*grantsDomain.Grant, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*grantsDomain.Grant), args.Error(1)
}

func (m *MockGrantRepository) CountDue(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockGrantRepository) ExpireAllDue(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockGrantRepository) RevokeConditional(
	ctx context.Context,
	grantID uuid.UUID,
	now time.Time,
) (bool, error) {
	args := m.Called(ctx, grantID, now)
	return args.Bool(0), args.Error(1)
}

// MockRecordCatalog is a mock implementation of RecordCatalog
type MockRecordCatalog struct {
	mock.Mock
}

func (m *MockRecordCatalog) Get(ctx context.Context, recordID uuid.UUID) (*recordsDomain.Record, error) {
	args := m.Called(ctx, recordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recordsDomain.Record), args.Error(1)
}

// MockGrantResolver is a mock implementation of GrantResolver
type MockGrantResolver struct {
	mock.Mock
}

func (m *MockGrantResolver) ResolveAuthoritative(
	ctx context.Context,
	ownerID, granteeID, resourceID uuid.UUID,
) (*grantsDomain.Grant, error) {
	args := m.Called(ctx, ownerID, granteeID, resourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*grantsDomain.Grant), args.Error(1)
}

func (m *MockGrantResolver) ResolveActivePermissions(
	ctx context.Context,
	ownerID, granteeID uuid.UUID,
	now time.Time,
) ([]*grantsDomain.Grant, error) {
	args := m.Called(ctx, ownerID, granteeID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*grantsDomain.Grant), args.Error(1)
}

func (m *MockGrantResolver) FilterCatalogued(
	ctx context.Context,
	grants []*grantsDomain.Grant,
) ([]*grantsDomain.Grant, error) {
	args := m.Called(ctx, grants)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*grantsDomain.Grant), args.Error(1)
}

// MockNotifier is a mock implementation of notifier.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, event notifier.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type grantFixture struct {
	txManager *MockTxManager
	grantRepo *MockGrantRepository
	catalog   *MockRecordCatalog
	resolver  *MockGrantResolver
	notifier  *MockNotifier
	useCase   *grantUseCase
	now       time.Time
}

func newGrantFixture(t *testing.T) *grantFixture {
	t.Helper()

	f := &grantFixture{
		txManager: &MockTxManager{},
		grantRepo: &MockGrantRepository{},
		catalog:   &MockRecordCatalog{},
		resolver:  &MockGrantResolver{},
		notifier:  &MockNotifier{},
		now:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	useCase := NewGrantUseCase(
		f.txManager,
		f.grantRepo,
		f.catalog,
		f.resolver,
		f.notifier,
		slog.Default(),
		24*time.Hour,
	)
	f.useCase = useCase.(*grantUseCase)
	f.useCase.now = func() time.Time { return f.now }
	return f
}

func validInput(ownerID, granteeID, resourceID uuid.UUID) grantsDomain.GrantInput {
	return grantsDomain.GrantInput{
		OwnerID:      ownerID,
		GranteeID:    granteeID,
		ResourceID:   resourceID,
		AccessLevel:  grantsDomain.AccessLevelRead,
		SharedFields: []string{"diagnosis", "medications"},
	}
}

func TestGrantUseCase_Grant(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.Must(uuid.NewV7())
	granteeID := uuid.Must(uuid.NewV7())
	resourceID := uuid.Must(uuid.NewV7())
	record := &recordsDomain.Record{ID: resourceID, OwnerID: ownerID, Title: "blood panel"}

	t.Run("creates a new grant with the default duration", func(t *testing.T) {
		f := newGrantFixture(t)
		input := validInput(ownerID, granteeID, resourceID)

		f.catalog.On("Get", ctx, resourceID).Return(record, nil)
		f.txManager.On("WithTx", ctx, mock.Anything).Return(nil)
		f.resolver.On("ResolveAuthoritative", ctx, ownerID, granteeID, resourceID).
			Return(nil, grantsDomain.ErrGrantNotFound)
		f.grantRepo.On("Create", ctx, mock.MatchedBy(func(g *grantsDomain.Grant) bool {
			return g.IsGranted && g.RevokedAt == nil &&
				g.ExpiresAt != nil && g.ExpiresAt.Equal(f.now.Add(24*time.Hour))
		})).Return(nil)
		f.notifier.On("Notify", ctx, mock.MatchedBy(func(e notifier.Event) bool {
			return e.Type == notifier.EventGrantCreated && e.ResourceTitle == "blood panel"
		})).Return(nil)

		grant, err := f.useCase.Grant(ctx, input)
		require.NoError(t, err)
		assert.Equal(t, f.now, grant.GrantedAt)
		assert.Equal(t, grantsDomain.Scope{"diagnosis", "medications"}, grant.Scope)
		f.grantRepo.AssertExpectations(t)
		f.notifier.AssertExpectations(t)
	})

	t.Run("reactivates the authoritative row in place", func(t *testing.T) {
		f := newGrantFixture(t)
		input := validInput(ownerID, granteeID, resourceID)
		hours := 6
		input.DurationHours = &hours

		revokedAt := f.now.Add(-time.Hour)
		existing := &grantsDomain.Grant{
			ID:          uuid.Must(uuid.NewV7()),
			OwnerID:     ownerID,
			GranteeID:   granteeID,
			ResourceID:  resourceID,
			AccessLevel: grantsDomain.AccessLevelFullAccess,
			IsGranted:   false,
			GrantedAt:   f.now.Add(-48 * time.Hour),
			RevokedAt:   &revokedAt,
			CreatedAt:   f.now.Add(-48 * time.Hour),
		}

		f.catalog.On("Get", ctx, resourceID).Return(record, nil)
		f.txManager.On("WithTx", ctx, mock.Anything).Return(nil)
		f.resolver.On("ResolveAuthoritative", ctx, ownerID, granteeID, resourceID).
			Return(existing, nil)
		f.grantRepo.On("Update", ctx, existing).Return(nil)
		f.notifier.On("Notify", ctx, mock.Anything).Return(nil)

		grant, err := f.useCase.Grant(ctx, input)
		require.NoError(t, err)
		assert.Equal(t, existing.ID, grant.ID)
		assert.True(t, grant.IsGranted)
		assert.Nil(t, grant.RevokedAt)
		assert.Equal(t, f.now, grant.GrantedAt)
		assert.Equal(t, grantsDomain.AccessLevelRead, grant.AccessLevel)
		require.NotNil(t, grant.ExpiresAt)
		assert.Equal(t, f.now.Add(6*time.Hour), *grant.ExpiresAt)
		f.grantRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("rejects a resource owned by someone else", func(t *testing.T) {
		f := newGrantFixture(t)
		otherOwner := &recordsDomain.Record{ID: resourceID, OwnerID: uuid.Must(uuid.NewV7())}
		f.catalog.On("Get", ctx, resourceID).Return(otherOwner, nil)

		_, err := f.useCase.Grant(ctx, validInput(ownerID, granteeID, resourceID))
		assert.ErrorIs(t, err, grantsDomain.ErrNotResourceOwner)
	})

	t.Run("rejects a missing resource", func(t *testing.T) {
		f := newGrantFixture(t)
		f.catalog.On("Get", ctx, resourceID).Return(nil, recordsDomain.ErrRecordNotFound)

		_, err := f.useCase.Grant(ctx, validInput(ownerID, granteeID, resourceID))
		assert.ErrorIs(t, err, recordsDomain.ErrRecordNotFound)
	})

	t.Run("rejects granting access to yourself", func(t *testing.T) {
		f := newGrantFixture(t)

		_, err := f.useCase.Grant(ctx, validInput(ownerID, ownerID, resourceID))
		assert.Error(t, err)
		f.catalog.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("rejects a non-positive duration", func(t *testing.T) {
		f := newGrantFixture(t)
		input := validInput(ownerID, granteeID, resourceID)
		zero := 0
		input.DurationHours = &zero

		_, err := f.useCase.Grant(ctx, input)
		assert.ErrorIs(t, err, grantsDomain.ErrInvalidDuration)
	})

	t.Run("notifier failure does not fail the grant", func(t *testing.T) {
		f := newGrantFixture(t)

		f.catalog.On("Get", ctx, resourceID).Return(record, nil)
		f.txManager.On("WithTx", ctx, mock.Anything).Return(nil)
		f.resolver.On("ResolveAuthoritative", ctx, ownerID, granteeID, resourceID).
			Return(nil, grantsDomain.ErrGrantNotFound)
		f.grantRepo.On("Create", ctx, mock.Anything).Return(nil)
		f.notifier.On("Notify", ctx, mock.Anything).Return(errors.New("smtp down"))

		_, err := f.useCase.Grant(ctx, validInput(ownerID, granteeID, resourceID))
		assert.NoError(t, err)
	})
}

func TestGrantUseCase_Revoke(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.Must(uuid.NewV7())
	grantID := uuid.Must(uuid.NewV7())
	resourceID := uuid.Must(uuid.NewV7())

	activeGrant := func() *grantsDomain.Grant {
		return &grantsDomain.Grant{
			ID:          grantID,
			OwnerID:     ownerID,
			GranteeID:   uuid.Must(uuid.NewV7()),
			ResourceID:  resourceID,
			AccessLevel: grantsDomain.AccessLevelRead,
			IsGranted:   true,
		}
	}

	t.Run("revokes an active grant", func(t *testing.T) {
		f := newGrantFixture(t)
		f.grantRepo.On("Get", ctx, grantID).Return(activeGrant(), nil)
		f.grantRepo.On("RevokeConditional", ctx, grantID, f.now).Return(true, nil)
		f.catalog.On("Get", ctx, resourceID).Return(nil, recordsDomain.ErrRecordNotFound)
		f.notifier.On("Notify", ctx, mock.MatchedBy(func(e notifier.Event) bool {
			return e.Type == notifier.EventGrantRevoked
		})).Return(nil)

		assert.NoError(t, f.useCase.Revoke(ctx, grantID, ownerID))
		f.notifier.AssertExpectations(t)
	})

	t.Run("unknown grant", func(t *testing.T) {
		f := newGrantFixture(t)
		f.grantRepo.On("Get", ctx, grantID).Return(nil, grantsDomain.ErrGrantNotFound)

		err := f.useCase.Revoke(ctx, grantID, ownerID)
		assert.ErrorIs(t, err, grantsDomain.ErrGrantNotFound)
	})

	t.Run("only the owner may revoke", func(t *testing.T) {
		f := newGrantFixture(t)
		f.grantRepo.On("Get", ctx, grantID).Return(activeGrant(), nil)

		err := f.useCase.Revoke(ctx, grantID, uuid.Must(uuid.NewV7()))
		assert.ErrorIs(t, err, grantsDomain.ErrNotGrantOwner)
		f.grantRepo.AssertNotCalled(t, "RevokeConditional", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("second revoke is a conflict", func(t *testing.T) {
		f := newGrantFixture(t)
		f.grantRepo.On("Get", ctx, grantID).Return(activeGrant(), nil)
		f.grantRepo.On("RevokeConditional", ctx, grantID, f.now).Return(false, nil)

		err := f.useCase.Revoke(ctx, grantID, ownerID)
		assert.ErrorIs(t, err, grantsDomain.ErrAlreadyRevoked)
		f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
	})
}

func TestGrantUseCase_RevokeAllForResource(t *testing.T) {
	ctx := context.Background()
	resourceID := uuid.Must(uuid.NewV7())
	ownerID := uuid.Must(uuid.NewV7())

	t.Run("revokes every active grant and reports the count", func(t *testing.T) {
		f := newGrantFixture(t)
		first := &grantsDomain.Grant{ID: uuid.Must(uuid.NewV7()), OwnerID: ownerID, ResourceID: resourceID, IsGranted: true}
		second := &grantsDomain.Grant{ID: uuid.Must(uuid.NewV7()), OwnerID: ownerID, ResourceID: resourceID, IsGranted: true}

		f.txManager.On("WithTx", ctx, mock.Anything).Return(nil)
		f.grantRepo.On("ListActiveByResource", ctx, resourceID, f.now).
			Return([]*grantsDomain.Grant{first, second}, nil)
		f.grantRepo.On("RevokeConditional", ctx, first.ID, f.now).Return(true, nil)
		// Second row lost the race to a concurrent revoke.
		f.grantRepo.On("RevokeConditional", ctx, second.ID, f.now).Return(false, nil)
		f.catalog.On("Get", ctx, resourceID).Return(nil, recordsDomain.ErrRecordNotFound)
		f.notifier.On("Notify", ctx, mock.Anything).Return(nil)

		count, err := f.useCase.RevokeAllForResource(ctx, resourceID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
		f.notifier.AssertNumberOfCalls(t, "Notify", 1)
	})

	t.Run("nothing active", func(t *testing.T) {
		f := newGrantFixture(t)
		f.txManager.On("WithTx", ctx, mock.Anything).Return(nil)
		f.grantRepo.On("ListActiveByResource", ctx, resourceID, f.now).
			Return([]*grantsDomain.Grant{}, nil)

		count, err := f.useCase.RevokeAllForResource(ctx, resourceID)
		require.NoError(t, err)
		assert.Zero(t, count)
		f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
	})
}

func TestGrantUseCase_ListActive(t *testing.T) {
	ctx := context.Background()
	granteeID := uuid.Must(uuid.NewV7())
	ownerID := uuid.Must(uuid.NewV7())
	resourceID := uuid.Must(uuid.NewV7())

	t.Run("for grantee filters deleted records", func(t *testing.T) {
		f := newGrantFixture(t)
		stored := []*grantsDomain.Grant{
			{ID: uuid.Must(uuid.NewV7())},
			{ID: uuid.Must(uuid.NewV7())},
		}
		surviving := stored[:1]
		f.grantRepo.On("ListActiveByGrantee", ctx, granteeID, f.now).Return(stored, nil)
		f.resolver.On("FilterCatalogued", ctx, stored).Return(surviving, nil)

		got, err := f.useCase.ListActiveForGrantee(ctx, granteeID)
		require.NoError(t, err)
		assert.Equal(t, surviving, got)
	})

	t.Run("for grantee store failure", func(t *testing.T) {
		f := newGrantFixture(t)
		f.grantRepo.On("ListActiveByGrantee", ctx, granteeID, f.now).
			Return(nil, assert.AnError)

		_, err := f.useCase.ListActiveForGrantee(ctx, granteeID)
		require.Error(t, err)
		f.resolver.AssertNotCalled(t, "FilterCatalogued", mock.Anything, mock.Anything)
	})

	t.Run("for owner and grantee resolves the pair", func(t *testing.T) {
		f := newGrantFixture(t)
		expected := []*grantsDomain.Grant{{ID: uuid.Must(uuid.NewV7())}}
		f.resolver.On("ResolveActivePermissions", ctx, ownerID, granteeID, f.now).Return(expected, nil)

		got, err := f.useCase.ListActiveForOwnerGrantee(ctx, ownerID, granteeID)
		require.NoError(t, err)
		assert.Equal(t, expected, got)
	})

	t.Run("for owner and resource filters deleted records", func(t *testing.T) {
		f := newGrantFixture(t)
		stored := []*grantsDomain.Grant{{ID: uuid.Must(uuid.NewV7())}}
		f.grantRepo.On("ListActiveByOwnerResource", ctx, ownerID, resourceID, f.now).Return(stored, nil)
		f.resolver.On("FilterCatalogued", ctx, stored).Return(stored, nil)

		got, err := f.useCase.ListActiveForOwnerResource(ctx, ownerID, resourceID)
		require.NoError(t, err)
		assert.Equal(t, stored, got)
	})
}
