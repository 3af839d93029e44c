package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qongirat/appeals-api/internal/dto"
	"github.com/qongirat/appeals-api/internal/models"
	"github.com/qongirat/appeals-api/internal/repository"
	appErrors "github.com/qongirat/appeals-api/pkg/errors"
	"github.com/qongirat/appeals-api/pkg/jobs"
)

type workflowAppealStub struct {
	record        *models.AppealRecord
	findErr       error
	transitions   []repository.TransitionParams
	transitionErr error
}

func (s *workflowAppealStub) FindByID(ctx context.Context, id int64) (*models.AppealRecord, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.record == nil {
		return nil, sql.ErrNoRows
	}
	return s.record, nil
}

func (s *workflowAppealStub) Transition(ctx context.Context, params repository.TransitionParams) error {
	if s.transitionErr != nil {
		return s.transitionErr
	}
	s.transitions = append(s.transitions, params)
	s.record.Status = params.StoredStatus
	return nil
}

type workflowIntakeStub struct {
	intake *models.IntakeAppeal
	err    error
}

func (s *workflowIntakeStub) FindByID(ctx context.Context, id int64) (*models.IntakeAppeal, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.intake == nil {
		return nil, sql.ErrNoRows
	}
	return s.intake, nil
}

type queueStub struct {
	jobs []jobs.Job
	err  error
}

func (s *queueStub) Enqueue(job jobs.Job) error {
	if s.err != nil {
		return s.err
	}
	s.jobs = append(s.jobs, job)
	return nil
}

func appealFixture(status models.AppealStatus, orgID int64, intakeID *int64) *models.AppealRecord {
	return &models.AppealRecord{
		Appeal: models.Appeal{
			ID:        7,
			FullName:  "Aliya Karimova",
			Status:    status,
			OrgID:     orgID,
			MahallaID: 3,
			IntakeID:  intakeID,
			Deadline:  time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
		},
		OrgName:     "City Water Department",
		MahallaName: "Birlik",
	}
}

func orgClaims(orgID int64) *models.JWTClaims {
	return &models.JWTClaims{UserID: 11, Role: models.RoleUser, OrgID: &orgID}
}

func authorityClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: 21, Role: models.RoleAdmin}
}

func newWorkflowService(appeals *workflowAppealStub, intakes *workflowIntakeStub, queue *queueStub) *WorkflowService {
	return NewWorkflowService(appeals, intakes, queue, nil, nil, zap.NewNop())
}

func TestWorkflowSubmitAnswerAppliesTransition(t *testing.T) {
	appeals := &workflowAppealStub{record: appealFixture(models.StatusInProgress, 1, nil)}
	service := newWorkflowService(appeals, &workflowIntakeStub{}, &queueStub{})

	text := "water main replaced"
	report := "reports/citizen-7.pdf"
	result, err := service.SubmitAnswer(context.Background(), orgClaims(1), 7, dto.AnswerRequest{
		Status:        models.StatusConfirm,
		Text:          &text,
		CitizenReport: &report,
	})
	require.NoError(t, err)
	require.Len(t, appeals.transitions, 1)

	params := appeals.transitions[0]
	assert.Equal(t, models.StatusInProgress, params.FromStatus)
	assert.Equal(t, models.StatusConfirm, params.StoredStatus)
	assert.Equal(t, models.StatusConfirm, params.RecordedStatus)
	assert.Equal(t, int64(11), params.UserID)
	require.NotNil(t, params.Answer)
	assert.Equal(t, &text, params.Answer.Text)
	assert.Equal(t, &report, params.Answer.CitizenReport)
	assert.Equal(t, models.StatusConfirm, result.Status)
}

func TestWorkflowSubmitAnswerTerminalRejected(t *testing.T) {
	appeals := &workflowAppealStub{record: appealFixture(models.StatusSuccessDone, 1, nil)}
	service := newWorkflowService(appeals, &workflowIntakeStub{}, &queueStub{})

	_, err := service.SubmitAnswer(context.Background(), orgClaims(1), 7, dto.AnswerRequest{Status: models.StatusInProgress})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
	assert.Empty(t, appeals.transitions)
}

func TestWorkflowSubmitAnswerOffTable(t *testing.T) {
	appeals := &workflowAppealStub{record: appealFixture(models.StatusInProgress, 1, nil)}
	service := newWorkflowService(appeals, &workflowIntakeStub{}, &queueStub{})

	_, err := service.SubmitAnswer(context.Background(), orgClaims(1), 7, dto.AnswerRequest{Status: models.StatusSuccessDone})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestWorkflowSubmitAnswerWrongOrgForbidden(t *testing.T) {
	appeals := &workflowAppealStub{record: appealFixture(models.StatusWaiting, 1, nil)}
	service := newWorkflowService(appeals, &workflowIntakeStub{}, &queueStub{})

	_, err := service.SubmitAnswer(context.Background(), orgClaims(2), 7, dto.AnswerRequest{Status: models.StatusInProgress})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestWorkflowSubmitAnswerRejectsAuthorityTier(t *testing.T) {
	intakeID := int64(42)
	appeals := &workflowAppealStub{record: appealFixture(models.StatusConfirm, 1, &intakeID)}
	queue := &queueStub{}
	service := newWorkflowService(appeals, &workflowIntakeStub{}, queue)

	_, err := service.SubmitAnswer(context.Background(), authorityClaims(), 7, dto.AnswerRequest{Status: models.StatusSuccessDone})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, appeals.transitions)
	assert.Empty(t, queue.jobs)
}

func TestWorkflowSubmitAnswerConcurrentConflict(t *testing.T) {
	appeals := &workflowAppealStub{
		record:        appealFixture(models.StatusInProgress, 1, nil),
		transitionErr: sql.ErrNoRows,
	}
	service := newWorkflowService(appeals, &workflowIntakeStub{}, &queueStub{})

	_, err := service.SubmitAnswer(context.Background(), orgClaims(1), 7, dto.AnswerRequest{Status: models.StatusConfirm})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestWorkflowReviewStoredStatusMapping(t *testing.T) {
	appeals := &workflowAppealStub{record: appealFixture(models.StatusConfirm, 1, nil)}
	queue := &queueStub{}
	service := newWorkflowService(appeals, &workflowIntakeStub{}, queue)

	result, err := service.Review(context.Background(), authorityClaims(), 7, dto.ReviewRequest{Status: models.StatusSuccess50})
	require.NoError(t, err)
	require.Len(t, appeals.transitions, 1)

	params := appeals.transitions[0]
	assert.Equal(t, models.StatusInProgress, params.StoredStatus)
	assert.Equal(t, models.StatusSuccess50, params.RecordedStatus)
	assert.Nil(t, params.Intake)
	assert.Empty(t, queue.jobs)
	assert.Equal(t, models.StatusInProgress, result.Status)
}

func TestWorkflowReviewTimeExtendedRequiresDeadline(t *testing.T) {
	appeals := &workflowAppealStub{record: appealFixture(models.StatusTimeRequest, 1, nil)}
	service := newWorkflowService(appeals, &workflowIntakeStub{}, &queueStub{})

	_, err := service.Review(context.Background(), authorityClaims(), 7, dto.ReviewRequest{Status: models.StatusTimeExtended})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, appeals.transitions)
}

func TestWorkflowReviewTimeExtendedSetsDeadline(t *testing.T) {
	appeals := &workflowAppealStub{record: appealFixture(models.StatusTimeRequest, 1, nil)}
	service := newWorkflowService(appeals, &workflowIntakeStub{}, &queueStub{})

	deadline := "2026-09-30"
	_, err := service.Review(context.Background(), authorityClaims(), 7, dto.ReviewRequest{
		Status:   models.StatusTimeExtended,
		Deadline: &deadline,
	})
	require.NoError(t, err)
	require.Len(t, appeals.transitions, 1)

	params := appeals.transitions[0]
	require.NotNil(t, params.Deadline)
	assert.Equal(t, time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC), *params.Deadline)
	assert.Equal(t, models.StatusInProgress, params.StoredStatus)
	assert.Equal(t, models.StatusTimeExtended, params.RecordedStatus)
}

func TestWorkflowReviewRejectedMirrorsIntake(t *testing.T) {
	intakeID := int64(42)
	appeals := &workflowAppealStub{record: appealFixture(models.StatusConfirm, 1, &intakeID)}
	intakes := &workflowIntakeStub{intake: &models.IntakeAppeal{ID: 42, ChatID: 900100, Status: models.IntakeStatusInProgress}}
	queue := &queueStub{}
	service := newWorkflowService(appeals, intakes, queue)

	comment := "evidence does not match the claim"
	_, err := service.Review(context.Background(), authorityClaims(), 7, dto.ReviewRequest{
		Status:  models.StatusRejected,
		Comment: &comment,
	})
	require.NoError(t, err)
	require.Len(t, appeals.transitions, 1)

	params := appeals.transitions[0]
	require.NotNil(t, params.Intake)
	assert.Equal(t, int64(42), params.Intake.IntakeID)
	assert.Equal(t, models.IntakeStatusRejected, params.Intake.Status)
	require.NotNil(t, params.Comment)
	assert.Equal(t, comment, params.Comment.Text)
	assert.Empty(t, queue.jobs)
}

func TestWorkflowReviewDoneEnqueuesDelivery(t *testing.T) {
	intakeID := int64(42)
	appeals := &workflowAppealStub{record: appealFixture(models.StatusConfirm50, 1, &intakeID)}
	intakes := &workflowIntakeStub{intake: &models.IntakeAppeal{ID: 42, ChatID: 900100, Status: models.IntakeStatusInProgress}}
	queue := &queueStub{}
	service := newWorkflowService(appeals, intakes, queue)

	_, err := service.Review(context.Background(), authorityClaims(), 7, dto.ReviewRequest{Status: models.StatusSuccessDone})
	require.NoError(t, err)
	require.Len(t, appeals.transitions, 1)

	params := appeals.transitions[0]
	require.NotNil(t, params.Intake)
	assert.Equal(t, models.IntakeStatusDone, params.Intake.Status)

	require.Len(t, queue.jobs, 1)
	assert.Equal(t, JobTypeAnswerDelivery, queue.jobs[0].Type)
	payload, ok := queue.jobs[0].Payload.(DeliveryPayload)
	require.True(t, ok)
	assert.Equal(t, int64(900100), payload.ChatID)
	assert.Equal(t, int64(7), payload.AppealID)
}

func TestWorkflowReviewEnqueueFailureStillSucceeds(t *testing.T) {
	intakeID := int64(42)
	appeals := &workflowAppealStub{record: appealFixture(models.StatusConfirm, 1, &intakeID)}
	intakes := &workflowIntakeStub{intake: &models.IntakeAppeal{ID: 42, ChatID: 900100, Status: models.IntakeStatusInProgress}}
	queue := &queueStub{err: assert.AnError}
	service := newWorkflowService(appeals, intakes, queue)

	result, err := service.Review(context.Background(), authorityClaims(), 7, dto.ReviewRequest{Status: models.StatusTextDone})
	require.NoError(t, err)
	require.Len(t, appeals.transitions, 1)
	assert.Equal(t, models.StatusTextDone, result.Status)
}

func TestWorkflowReviewRequiresAuthority(t *testing.T) {
	appeals := &workflowAppealStub{record: appealFixture(models.StatusConfirm, 1, nil)}
	service := newWorkflowService(appeals, &workflowIntakeStub{}, &queueStub{})

	_, err := service.Review(context.Background(), orgClaims(1), 7, dto.ReviewRequest{Status: models.StatusRejected})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestWorkflowReviewInProgressHasNoVerdicts(t *testing.T) {
	appeals := &workflowAppealStub{record: appealFixture(models.StatusInProgress, 1, nil)}
	service := newWorkflowService(appeals, &workflowIntakeStub{}, &queueStub{})

	_, err := service.Review(context.Background(), authorityClaims(), 7, dto.ReviewRequest{Status: models.StatusArchive})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestCanAccessAppeal(t *testing.T) {
	assert.True(t, CanAccessAppeal(authorityClaims(), 99))
	assert.True(t, CanAccessAppeal(orgClaims(4), 4))
	assert.False(t, CanAccessAppeal(orgClaims(4), 5))
	assert.False(t, CanAccessAppeal(&models.JWTClaims{UserID: 1, Role: models.RoleUser}, 4))
	assert.False(t, CanAccessAppeal(nil, 4))
}
