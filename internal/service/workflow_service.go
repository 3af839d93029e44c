package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qongirat/appeals-api/internal/dto"
	"github.com/qongirat/appeals-api/internal/models"
	"github.com/qongirat/appeals-api/internal/repository"
	appErrors "github.com/qongirat/appeals-api/pkg/errors"
	"github.com/qongirat/appeals-api/pkg/jobs"
)

const dateLayout = "2006-01-02"

// CanAccessAppeal is the single ownership predicate for appeal reads:
// the review tier sees everything, organization staff only their own org.
func CanAccessAppeal(claims *models.JWTClaims, orgID int64) bool {
	if claims == nil {
		return false
	}
	if claims.Role.Authority() {
		return true
	}
	return claims.OrgID != nil && *claims.OrgID == orgID
}

type workflowAppealStore interface {
	FindByID(ctx context.Context, id int64) (*models.AppealRecord, error)
	Transition(ctx context.Context, params repository.TransitionParams) error
}

type workflowIntakeStore interface {
	FindByID(ctx context.Context, id int64) (*models.IntakeAppeal, error)
}

type deliveryEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// DeliveryPayload identifies the answer document to push to a citizen.
type DeliveryPayload struct {
	ChatID   int64 `json:"chat_id"`
	AppealID int64 `json:"appeal_id"`
}

// JobTypeAnswerDelivery tags answer delivery jobs on the queue.
const JobTypeAnswerDelivery = "answer_delivery"

// WorkflowService drives the appeal status state machine for both tiers.
type WorkflowService struct {
	appeals   workflowAppealStore
	intakes   workflowIntakeStore
	queue     deliveryEnqueuer
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewWorkflowService constructs a WorkflowService. The queue may be nil, in
// which case terminal verdicts skip document delivery.
func NewWorkflowService(appeals workflowAppealStore, intakes workflowIntakeStore, queue deliveryEnqueuer, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *WorkflowService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &WorkflowService{appeals: appeals, intakes: intakes, queue: queue, metrics: metrics, validator: validate, logger: logger}
}

// SubmitAnswer applies an organization-side transition with an attached answer.
func (s *WorkflowService) SubmitAnswer(ctx context.Context, claims *models.JWTClaims, appealID int64, req dto.AnswerRequest) (*models.AppealRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid answer payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", req.Status))
	}

	appeal, err := s.loadAppeal(ctx, appealID)
	if err != nil {
		return nil, err
	}
	// Answers come from the responsible organization only. The authority tier
	// acts through Review, never here.
	if claims == nil || claims.Role.Authority() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "answers require organization staff")
	}
	if claims.OrgID == nil || *claims.OrgID != appeal.OrgID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "appeal belongs to another organization")
	}
	if !models.TransitionAllowed(claims.Role, appeal.Status, req.Status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot move appeal from %s to %s", appeal.Status, req.Status))
	}

	evidence := models.EvidenceFiles{
		TimeFile:         req.TimeFile,
		CitizenReport:    req.CitizenReport,
		GovernmentReport: req.GovernmentReport,
		ReportPhoto:      req.ReportPhoto,
	}
	params := repository.TransitionParams{
		AppealID:       appealID,
		FromStatus:     appeal.Status,
		StoredStatus:   models.StoredStatus(claims.Role, req.Status),
		RecordedStatus: req.Status,
		UserID:         claims.UserID,
		Answer:         &models.OrgAnswer{Text: req.Text, EvidenceFiles: evidence},
		HistoryText:    req.Text,
		Evidence:       evidence,
	}

	if err := s.appeals.Transition(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "appeal status changed concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply transition")
	}
	s.metrics.RecordTransition("organization", string(req.Status))

	return s.loadAppeal(ctx, appealID)
}

// Review applies an authority-side verdict.
func (s *WorkflowService) Review(ctx context.Context, claims *models.JWTClaims, appealID int64, req dto.ReviewRequest) (*models.AppealRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	if claims == nil || !claims.Role.Authority() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "review requires the authority tier")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", req.Status))
	}

	appeal, err := s.loadAppeal(ctx, appealID)
	if err != nil {
		return nil, err
	}
	if !models.TransitionAllowed(claims.Role, appeal.Status, req.Status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot move appeal from %s to %s", appeal.Status, req.Status))
	}

	var deadline *time.Time
	if req.Status == models.StatusTimeExtended {
		if req.Deadline == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "time_extended requires a new deadline")
		}
		parsed, err := time.Parse(dateLayout, *req.Deadline)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "deadline must be YYYY-MM-DD")
		}
		deadline = &parsed
	}

	params := repository.TransitionParams{
		AppealID:       appealID,
		FromStatus:     appeal.Status,
		StoredStatus:   models.StoredStatus(claims.Role, req.Status),
		RecordedStatus: req.Status,
		UserID:         claims.UserID,
		Deadline:       deadline,
		HistoryText:    req.Comment,
	}
	if req.Comment != nil && *req.Comment != "" {
		params.Comment = &models.AuthorityComment{Text: *req.Comment}
	}

	var intake *models.IntakeAppeal
	if appeal.IntakeID != nil {
		if mirrored, ok := intakeMirrorStatus(req.Status); ok {
			intake, err = s.intakes.FindByID(ctx, *appeal.IntakeID)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load linked intake")
			}
			if intake != nil {
				params.Intake = &repository.IntakeMirror{
					IntakeID: intake.ID,
					Status:   mirrored,
					UserID:   &claims.UserID,
					Text:     req.Comment,
				}
			}
		}
	}

	if err := s.appeals.Transition(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "appeal status changed concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply transition")
	}
	s.metrics.RecordTransition("authority", string(req.Status))

	if intake != nil && req.Status.Terminal() {
		s.enqueueDelivery(intake.ChatID, appealID)
	}

	return s.loadAppeal(ctx, appealID)
}

func (s *WorkflowService) loadAppeal(ctx context.Context, appealID int64) (*models.AppealRecord, error) {
	appeal, err := s.appeals.FindByID(ctx, appealID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appeal not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appeal")
	}
	return appeal, nil
}

// intakeMirrorStatus maps a verdict onto the linked intake status, if the
// verdict bridges at all.
func intakeMirrorStatus(target models.AppealStatus) (models.IntakeStatus, bool) {
	switch target {
	case models.StatusArchive:
		return models.IntakeStatusArchive, true
	case models.StatusRejected:
		return models.IntakeStatusRejected, true
	case models.StatusSuccessDone, models.StatusTextDone:
		return models.IntakeStatusDone, true
	default:
		return "", false
	}
}

// enqueueDelivery schedules a best-effort answer document push. Failures are
// logged and never surface; the transition is already committed.
func (s *WorkflowService) enqueueDelivery(chatID, appealID int64) {
	if s.queue == nil {
		return
	}
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    JobTypeAnswerDelivery,
		Payload: DeliveryPayload{ChatID: chatID, AppealID: appealID},
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue answer delivery",
			zap.Int64("appeal_id", appealID),
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}
}
