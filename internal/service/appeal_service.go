package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/qongirat/appeals-api/internal/dto"
	"github.com/qongirat/appeals-api/internal/models"
	appErrors "github.com/qongirat/appeals-api/pkg/errors"
)

type appealStore interface {
	FindByID(ctx context.Context, id int64) (*models.AppealRecord, error)
	FindByIntakeID(ctx context.Context, intakeID int64) (*models.Appeal, error)
	List(ctx context.Context, filter models.AppealFilter) ([]models.AppealRecord, int, error)
	Create(ctx context.Context, appeal *models.Appeal) error
	Update(ctx context.Context, appeal *models.Appeal) error
	RecordView(ctx context.Context, appealID, userID int64) error
	ListViews(ctx context.Context, appealID int64) ([]models.AppealView, error)
	InsertHistory(ctx context.Context, entry *models.AppealHistory) error
	ListHistory(ctx context.Context, appealID int64) ([]models.AppealHistory, error)
	LatestAnswer(ctx context.Context, appealID int64) (*models.OrgAnswer, error)
	ListComments(ctx context.Context, appealID int64) ([]models.AuthorityComment, error)
}

type appealIntakeStore interface {
	FindByID(ctx context.Context, id int64) (*models.IntakeAppeal, error)
	UpdateStatus(ctx context.Context, intakeID int64, status models.IntakeStatus, userID *int64, text *string) error
}

// AppealService manages appeal registration, listing and administrative edits.
type AppealService struct {
	appeals         appealStore
	intakes         appealIntakeStore
	validator       *validator.Validate
	logger          *zap.Logger
	defaultDeadline time.Duration
}

// NewAppealService constructs an AppealService.
func NewAppealService(appeals appealStore, intakes appealIntakeStore, validate *validator.Validate, logger *zap.Logger, defaultDeadline time.Duration) *AppealService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if defaultDeadline <= 0 {
		defaultDeadline = 15 * 24 * time.Hour
	}
	return &AppealService{appeals: appeals, intakes: intakes, validator: validate, logger: logger, defaultDeadline: defaultDeadline}
}

// Create registers an appeal, optionally promoting a linked intake record.
func (s *AppealService) Create(ctx context.Context, claims *models.JWTClaims, req dto.CreateAppealRequest) (*models.AppealRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid appeal payload")
	}
	if !req.Gender.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown gender %q", req.Gender))
	}

	birthday, err := parseOptionalDate(req.Birthday)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "birthday must be YYYY-MM-DD")
	}

	now := time.Now().UTC()
	deadline := now.Add(s.defaultDeadline)
	if req.Deadline != nil {
		parsed, err := time.Parse(dateLayout, *req.Deadline)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "deadline must be YYYY-MM-DD")
		}
		deadline = parsed
	}

	if req.IntakeID != nil {
		intake, err := s.intakes.FindByID(ctx, *req.IntakeID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "intake record not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load intake record")
		}
		if intake.Status == models.IntakeStatusCanceled {
			return nil, appErrors.Clone(appErrors.ErrValidation, "intake record was canceled by the citizen")
		}
		if _, err := s.appeals.FindByIntakeID(ctx, *req.IntakeID); err == nil {
			return nil, appErrors.Clone(appErrors.ErrConflict, "intake record already promoted to an appeal")
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check intake linkage")
		}
	}

	appeal := &models.Appeal{
		FullName:  req.FullName,
		Gender:    req.Gender,
		Phone:     req.Phone,
		DocSeries: req.DocSeries,
		DocNumber: req.DocNumber,
		Address:   req.Address,
		Birthday:  birthday,
		FilePath:  req.FilePath,
		Text:      req.Text,
		Status:    models.StatusWaiting,
		Deadline:  deadline,
		IntakeID:  req.IntakeID,
		MahallaID: req.MahallaID,
		OrgID:     req.OrgID,
		CreatedAt: now,
	}
	if err := s.appeals.Create(ctx, appeal); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create appeal")
	}

	status := models.StatusWaiting
	if err := s.appeals.InsertHistory(ctx, &models.AppealHistory{
		AppealID: appeal.ID,
		UserID:   &claims.UserID,
		Status:   &status,
	}); err != nil {
		s.logger.Warn("failed to record creation history", zap.Int64("appeal_id", appeal.ID), zap.Error(err))
	}

	if req.IntakeID != nil {
		if err := s.intakes.UpdateStatus(ctx, *req.IntakeID, models.IntakeStatusInProgress, &claims.UserID, nil); err != nil {
			s.logger.Warn("failed to mirror intake promotion", zap.Int64("intake_id", *req.IntakeID), zap.Error(err))
		}
	}

	return s.appeals.FindByID(ctx, appeal.ID)
}

// List returns appeals visible to the caller. Organization staff are scoped
// to their own organization regardless of the requested filter.
func (s *AppealService) List(ctx context.Context, claims *models.JWTClaims, query dto.AppealListQuery) ([]models.AppealRecord, *models.Pagination, error) {
	filter, err := s.scopedFilter(claims, query)
	if err != nil {
		return nil, nil, err
	}

	appeals, total, err := s.appeals.List(ctx, *filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appeals")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return appeals, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get returns an appeal with its workflow records and marks it viewed.
func (s *AppealService) Get(ctx context.Context, claims *models.JWTClaims, appealID int64) (*dto.AppealDetailResponse, error) {
	appeal, err := s.appeals.FindByID(ctx, appealID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appeal not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appeal")
	}
	if !CanAccessAppeal(claims, appeal.OrgID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "appeal belongs to another organization")
	}

	if err := s.appeals.RecordView(ctx, appealID, claims.UserID); err != nil {
		s.logger.Warn("failed to record appeal view", zap.Int64("appeal_id", appealID), zap.Error(err))
	}

	history, err := s.appeals.ListHistory(ctx, appealID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load history")
	}
	comments, err := s.appeals.ListComments(ctx, appealID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load comments")
	}
	views, err := s.appeals.ListViews(ctx, appealID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load views")
	}

	detail := &dto.AppealDetailResponse{
		AppealRecord: *appeal,
		History:      history,
		Comments:     comments,
		Views:        views,
	}
	answer, err := s.appeals.LatestAnswer(ctx, appealID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load answer")
	}
	detail.LatestAnswer = answer
	return detail, nil
}

// Update patches administrative fields and records a null-status annotation.
// Status never changes here; the workflow endpoints own status moves.
func (s *AppealService) Update(ctx context.Context, claims *models.JWTClaims, appealID int64, req dto.UpdateAppealRequest) (*models.AppealRecord, error) {
	record, err := s.appeals.FindByID(ctx, appealID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appeal not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appeal")
	}

	appeal := record.Appeal
	if req.FullName != nil {
		appeal.FullName = *req.FullName
	}
	if req.Gender != nil {
		if !req.Gender.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown gender %q", *req.Gender))
		}
		appeal.Gender = *req.Gender
	}
	if req.Phone != nil {
		appeal.Phone = *req.Phone
	}
	if req.DocSeries != nil {
		appeal.DocSeries = req.DocSeries
	}
	if req.DocNumber != nil {
		appeal.DocNumber = req.DocNumber
	}
	if req.Address != nil {
		appeal.Address = req.Address
	}
	if req.Birthday != nil {
		birthday, err := parseOptionalDate(req.Birthday)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "birthday must be YYYY-MM-DD")
		}
		appeal.Birthday = birthday
	}
	if req.FilePath != nil {
		appeal.FilePath = req.FilePath
	}
	if req.Text != nil {
		appeal.Text = *req.Text
	}
	if req.Deadline != nil {
		deadline, err := time.Parse(dateLayout, *req.Deadline)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "deadline must be YYYY-MM-DD")
		}
		appeal.Deadline = deadline
	}
	if req.MahallaID != nil {
		appeal.MahallaID = *req.MahallaID
	}
	if req.OrgID != nil {
		appeal.OrgID = *req.OrgID
	}

	if err := s.appeals.Update(ctx, &appeal); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update appeal")
	}

	note := "details updated"
	if req.Note != nil && *req.Note != "" {
		note = *req.Note
	}
	if err := s.appeals.InsertHistory(ctx, &models.AppealHistory{
		AppealID: appealID,
		UserID:   &claims.UserID,
		Text:     &note,
	}); err != nil {
		s.logger.Warn("failed to record edit annotation", zap.Int64("appeal_id", appealID), zap.Error(err))
	}

	return s.appeals.FindByID(ctx, appealID)
}

// History returns the workflow trail of an appeal, newest first.
func (s *AppealService) History(ctx context.Context, claims *models.JWTClaims, appealID int64) ([]models.AppealHistory, error) {
	appeal, err := s.appeals.FindByID(ctx, appealID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appeal not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appeal")
	}
	if !CanAccessAppeal(claims, appeal.OrgID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "appeal belongs to another organization")
	}
	history, err := s.appeals.ListHistory(ctx, appealID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load history")
	}
	return history, nil
}

func (s *AppealService) scopedFilter(claims *models.JWTClaims, query dto.AppealListQuery) (*models.AppealFilter, error) {
	filter := models.AppealFilter{
		OrgID:    query.OrgID,
		Status:   query.Status,
		DateFrom: query.DateFrom,
		DateTo:   query.DateTo,
		Search:   query.Search,
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	if filter.Status != "" && filter.Status != models.StatusFilterDone && !models.AppealStatus(filter.Status).Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", filter.Status))
	}
	if claims == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing credentials")
	}
	if !claims.Role.Authority() {
		if claims.OrgID == nil {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "user is not assigned to an organization")
		}
		filter.OrgID = claims.OrgID
	}
	return &filter, nil
}

func parseOptionalDate(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(dateLayout, *raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
