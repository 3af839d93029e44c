package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qongirat/appeals-api/internal/dto"
	"github.com/qongirat/appeals-api/internal/models"
	appErrors "github.com/qongirat/appeals-api/pkg/errors"
)

type appealStoreStub struct {
	record     *models.AppealRecord
	byIntake   *models.Appeal
	listItems  []models.AppealRecord
	listTotal  int
	listFilter *models.AppealFilter
	created    *models.Appeal
	updated    *models.Appeal
	history    []*models.AppealHistory
	views      []int64
	listErr    error
	createErr  error
}

func (s *appealStoreStub) FindByID(ctx context.Context, id int64) (*models.AppealRecord, error) {
	if s.record == nil {
		return nil, sql.ErrNoRows
	}
	return s.record, nil
}

func (s *appealStoreStub) FindByIntakeID(ctx context.Context, intakeID int64) (*models.Appeal, error) {
	if s.byIntake == nil {
		return nil, sql.ErrNoRows
	}
	return s.byIntake, nil
}

func (s *appealStoreStub) List(ctx context.Context, filter models.AppealFilter) ([]models.AppealRecord, int, error) {
	s.listFilter = &filter
	return s.listItems, s.listTotal, s.listErr
}

func (s *appealStoreStub) Create(ctx context.Context, appeal *models.Appeal) error {
	if s.createErr != nil {
		return s.createErr
	}
	appeal.ID = 7
	s.created = appeal
	s.record = &models.AppealRecord{Appeal: *appeal}
	return nil
}

func (s *appealStoreStub) Update(ctx context.Context, appeal *models.Appeal) error {
	s.updated = appeal
	s.record = &models.AppealRecord{Appeal: *appeal}
	return nil
}

func (s *appealStoreStub) RecordView(ctx context.Context, appealID, userID int64) error {
	s.views = append(s.views, userID)
	return nil
}

func (s *appealStoreStub) ListViews(ctx context.Context, appealID int64) ([]models.AppealView, error) {
	return nil, nil
}

func (s *appealStoreStub) InsertHistory(ctx context.Context, entry *models.AppealHistory) error {
	s.history = append(s.history, entry)
	return nil
}

func (s *appealStoreStub) ListHistory(ctx context.Context, appealID int64) ([]models.AppealHistory, error) {
	return nil, nil
}

func (s *appealStoreStub) LatestAnswer(ctx context.Context, appealID int64) (*models.OrgAnswer, error) {
	return nil, sql.ErrNoRows
}

func (s *appealStoreStub) ListComments(ctx context.Context, appealID int64) ([]models.AuthorityComment, error) {
	return nil, nil
}

type appealIntakeStub struct {
	intake  *models.IntakeAppeal
	updates []models.IntakeStatus
}

func (s *appealIntakeStub) FindByID(ctx context.Context, id int64) (*models.IntakeAppeal, error) {
	if s.intake == nil {
		return nil, sql.ErrNoRows
	}
	return s.intake, nil
}

func (s *appealIntakeStub) UpdateStatus(ctx context.Context, intakeID int64, status models.IntakeStatus, userID *int64, text *string) error {
	s.updates = append(s.updates, status)
	return nil
}

func createAppealRequest(intakeID *int64) dto.CreateAppealRequest {
	return dto.CreateAppealRequest{
		FullName:  "Aliya Karimova",
		Gender:    models.GenderFemale,
		Phone:     "+998901234567",
		Text:      "street lighting has been out for two weeks",
		MahallaID: 3,
		OrgID:     1,
		IntakeID:  intakeID,
	}
}

func TestAppealServiceCreateDefaultsDeadline(t *testing.T) {
	store := &appealStoreStub{}
	service := NewAppealService(store, &appealIntakeStub{}, nil, zap.NewNop(), 0)

	result, err := service.Create(context.Background(), authorityClaims(), createAppealRequest(nil))
	require.NoError(t, err)
	require.NotNil(t, store.created)
	assert.Equal(t, models.StatusWaiting, store.created.Status)
	assert.Equal(t, store.created.CreatedAt.AddDate(0, 0, 15), store.created.Deadline)
	assert.Equal(t, int64(7), result.ID)
	require.Len(t, store.history, 1)
	require.NotNil(t, store.history[0].Status)
	assert.Equal(t, models.StatusWaiting, *store.history[0].Status)
}

func TestAppealServiceCreatePromotesIntake(t *testing.T) {
	intakeID := int64(42)
	store := &appealStoreStub{}
	intakes := &appealIntakeStub{intake: &models.IntakeAppeal{ID: 42, Status: models.IntakeStatusNew}}
	service := NewAppealService(store, intakes, nil, zap.NewNop(), 0)

	_, err := service.Create(context.Background(), authorityClaims(), createAppealRequest(&intakeID))
	require.NoError(t, err)
	require.Len(t, intakes.updates, 1)
	assert.Equal(t, models.IntakeStatusInProgress, intakes.updates[0])
}

func TestAppealServiceCreateCanceledIntakeRejected(t *testing.T) {
	intakeID := int64(42)
	store := &appealStoreStub{}
	intakes := &appealIntakeStub{intake: &models.IntakeAppeal{ID: 42, Status: models.IntakeStatusCanceled}}
	service := NewAppealService(store, intakes, nil, zap.NewNop(), 0)

	_, err := service.Create(context.Background(), authorityClaims(), createAppealRequest(&intakeID))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, store.created)
}

func TestAppealServiceCreateDuplicateIntakeConflict(t *testing.T) {
	intakeID := int64(42)
	store := &appealStoreStub{byIntake: &models.Appeal{ID: 5, IntakeID: &intakeID}}
	intakes := &appealIntakeStub{intake: &models.IntakeAppeal{ID: 42, Status: models.IntakeStatusNew}}
	service := NewAppealService(store, intakes, nil, zap.NewNop(), 0)

	_, err := service.Create(context.Background(), authorityClaims(), createAppealRequest(&intakeID))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAppealServiceListScopesStaffToOwnOrg(t *testing.T) {
	store := &appealStoreStub{listItems: []models.AppealRecord{*appealFixture(models.StatusWaiting, 4, nil)}, listTotal: 1}
	service := NewAppealService(store, &appealIntakeStub{}, nil, zap.NewNop(), 0)

	other := int64(9)
	_, _, err := service.List(context.Background(), orgClaims(4), dto.AppealListQuery{OrgID: &other})
	require.NoError(t, err)
	require.NotNil(t, store.listFilter)
	require.NotNil(t, store.listFilter.OrgID)
	assert.Equal(t, int64(4), *store.listFilter.OrgID)
}

func TestAppealServiceListUnboundStaffForbidden(t *testing.T) {
	store := &appealStoreStub{}
	service := NewAppealService(store, &appealIntakeStub{}, nil, zap.NewNop(), 0)

	claims := &models.JWTClaims{UserID: 3, Role: models.RoleUser}
	_, _, err := service.List(context.Background(), claims, dto.AppealListQuery{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAppealServiceListRejectsUnknownStatus(t *testing.T) {
	store := &appealStoreStub{}
	service := NewAppealService(store, &appealIntakeStub{}, nil, zap.NewNop(), 0)

	_, _, err := service.List(context.Background(), authorityClaims(), dto.AppealListQuery{Status: "resolved"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAppealServiceGetRecordsView(t *testing.T) {
	store := &appealStoreStub{record: appealFixture(models.StatusInProgress, 4, nil)}
	service := NewAppealService(store, &appealIntakeStub{}, nil, zap.NewNop(), 0)

	detail, err := service.Get(context.Background(), orgClaims(4), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), detail.ID)
	require.Len(t, store.views, 1)
	assert.Equal(t, int64(11), store.views[0])
}

func TestAppealServiceGetForeignOrgForbidden(t *testing.T) {
	store := &appealStoreStub{record: appealFixture(models.StatusInProgress, 4, nil)}
	service := NewAppealService(store, &appealIntakeStub{}, nil, zap.NewNop(), 0)

	_, err := service.Get(context.Background(), orgClaims(5), 7)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.views)
}

func TestAppealServiceUpdateNeverTouchesStatus(t *testing.T) {
	store := &appealStoreStub{record: appealFixture(models.StatusConfirm, 4, nil)}
	service := NewAppealService(store, &appealIntakeStub{}, nil, zap.NewNop(), 0)

	phone := "+998907654321"
	result, err := service.Update(context.Background(), authorityClaims(), 7, dto.UpdateAppealRequest{Phone: &phone})
	require.NoError(t, err)
	require.NotNil(t, store.updated)
	assert.Equal(t, models.StatusConfirm, store.updated.Status)
	assert.Equal(t, phone, result.Phone)

	require.Len(t, store.history, 1)
	assert.Nil(t, store.history[0].Status)
}
