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
	appErrors "github.com/qongirat/appeals-api/pkg/errors"
	"github.com/qongirat/appeals-api/pkg/jobs"
)

type intakeRepository interface {
	FindUserByChatID(ctx context.Context, chatID int64) (*models.IntakeUser, error)
	CreateUser(ctx context.Context, user *models.IntakeUser) error
	FindByID(ctx context.Context, id int64) (*models.IntakeAppeal, error)
	List(ctx context.Context, filter models.IntakeFilter) ([]models.IntakeAppeal, int, error)
	Create(ctx context.Context, intake *models.IntakeAppeal) error
	UpdateStatus(ctx context.Context, intakeID int64, status models.IntakeStatus, userID *int64, text *string) error
	ListHistory(ctx context.Context, intakeID int64) ([]models.IntakeHistory, error)
}

type intakeAppealLookup interface {
	FindByIntakeID(ctx context.Context, intakeID int64) (*models.Appeal, error)
}

// IntakeService manages bot-submitted citizens and their raw appeals.
type IntakeService struct {
	repo      intakeRepository
	appeals   intakeAppealLookup
	queue     deliveryEnqueuer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewIntakeService creates an instance of IntakeService. The queue may be
// nil, in which case answer documents are never re-sent.
func NewIntakeService(repo intakeRepository, appeals intakeAppealLookup, queue deliveryEnqueuer, validate *validator.Validate, logger *zap.Logger) *IntakeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &IntakeService{repo: repo, appeals: appeals, queue: queue, validator: validate, logger: logger}
}

// RegisterUser registers a citizen by chat id, returning the existing record
// when the citizen is already known.
func (s *IntakeService) RegisterUser(ctx context.Context, req dto.RegisterIntakeUserRequest) (*models.IntakeUser, bool, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid register payload")
	}

	existing, err := s.repo.FindUserByChatID(ctx, req.ChatID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up citizen")
	}

	user := &models.IntakeUser{ChatID: req.ChatID, Phone: req.Phone}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register citizen")
	}
	return user, true, nil
}

// UserByChatID returns a registered citizen.
func (s *IntakeService) UserByChatID(ctx context.Context, chatID int64) (*models.IntakeUser, error) {
	user, err := s.repo.FindUserByChatID(ctx, chatID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "citizen is not registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up citizen")
	}
	return user, nil
}

// CreateAppeal records a raw bot submission. The optional filePath points at
// an attachment already persisted by the upload layer.
func (s *IntakeService) CreateAppeal(ctx context.Context, req dto.CreateIntakeAppealRequest, filePath *string) (*models.IntakeAppeal, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid intake payload")
	}

	if _, err := s.UserByChatID(ctx, req.ChatID); err != nil {
		return nil, err
	}

	var birthday *time.Time
	if req.Birthday != nil && *req.Birthday != "" {
		parsed, err := time.Parse(dateLayout, *req.Birthday)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "birthday must be YYYY-MM-DD")
		}
		birthday = &parsed
	}

	intake := &models.IntakeAppeal{
		ChatID:   req.ChatID,
		FullName: req.FullName,
		Phone:    req.Phone,
		Document: req.Document,
		Birthday: birthday,
		Address:  req.Address,
		Mahalla:  req.Mahalla,
		Text:     req.Text,
		FilePath: filePath,
		Status:   models.IntakeStatusNew,
	}
	if err := s.repo.Create(ctx, intake); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create intake appeal")
	}
	return intake, nil
}

// List returns paginated intake appeals.
func (s *IntakeService) List(ctx context.Context, filter models.IntakeFilter) ([]models.IntakeAppeal, *models.Pagination, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", *filter.Status))
	}

	intakes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list intake appeals")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	return intakes, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get returns an intake appeal by ID.
func (s *IntakeService) Get(ctx context.Context, id int64) (*models.IntakeAppeal, error) {
	intake, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "intake appeal not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load intake appeal")
	}
	return intake, nil
}

// Sort manually moves an intake record to a status and records history.
func (s *IntakeService) Sort(ctx context.Context, claims *models.JWTClaims, id int64, req dto.SortIntakeRequest) (*models.IntakeAppeal, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid sort payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", req.Status))
	}

	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	var userID *int64
	if claims != nil {
		userID = &claims.UserID
	}
	if err := s.repo.UpdateStatus(ctx, id, req.Status, userID, req.Text); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "intake appeal not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update intake status")
	}

	return s.Get(ctx, id)
}

// History returns the status trail of an intake appeal.
func (s *IntakeService) History(ctx context.Context, id int64) ([]models.IntakeHistory, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	history, err := s.repo.ListHistory(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list intake history")
	}
	return history, nil
}

// CitizenAppeals lists a citizen's intake records together with their
// promoted appeals. Appeals already carrying a final done verdict get their
// answer document re-sent to the chat.
func (s *IntakeService) CitizenAppeals(ctx context.Context, chatID int64) (*dto.CitizenAppealsResponse, error) {
	user, err := s.UserByChatID(ctx, chatID)
	if err != nil {
		return nil, err
	}

	intakes, _, err := s.repo.List(ctx, models.IntakeFilter{ChatID: &chatID, PageSize: 200})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list citizen appeals")
	}

	entries := make([]dto.CitizenAppealEntry, 0, len(intakes))
	for _, intake := range intakes {
		entry := dto.CitizenAppealEntry{Intake: intake}
		appeal, err := s.appeals.FindByIntakeID(ctx, intake.ID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load promoted appeal")
		}
		if appeal != nil {
			entry.Appeal = appeal
			if appeal.Status.Terminal() {
				s.resendAnswer(chatID, appeal.ID)
			}
		}
		entries = append(entries, entry)
	}

	return &dto.CitizenAppealsResponse{User: *user, Appeals: entries}, nil
}

// resendAnswer schedules a best-effort re-delivery of the answer document.
func (s *IntakeService) resendAnswer(chatID, appealID int64) {
	if s.queue == nil {
		return
	}
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    JobTypeAnswerDelivery,
		Payload: DeliveryPayload{ChatID: chatID, AppealID: appealID},
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue answer re-delivery",
			zap.Int64("appeal_id", appealID),
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}
}
