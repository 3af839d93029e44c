package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/qongirat/appeals-api/internal/dto"
	"github.com/qongirat/appeals-api/internal/models"
	appErrors "github.com/qongirat/appeals-api/pkg/errors"
)

type orgRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Organization, error)
	List(ctx context.Context, filter models.OrganizationFilter) ([]models.Organization, int, error)
	Options(ctx context.Context) ([]models.Option, error)
	Create(ctx context.Context, org *models.Organization) error
	Update(ctx context.Context, org *models.Organization) error
	Delete(ctx context.Context, id int64) error
	AssignStaff(ctx context.Context, orgID int64, userIDs []int64) error
	Staff(ctx context.Context, orgID int64) ([]models.User, error)
}

type orgStaffLookup interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

// OrgService manages responsible organizations and their staff assignments.
type OrgService struct {
	repo      orgRepository
	users     orgStaffLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewOrgService creates an instance of OrgService.
func NewOrgService(repo orgRepository, users orgStaffLookup, validate *validator.Validate, logger *zap.Logger) *OrgService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &OrgService{repo: repo, users: users, validator: validate, logger: logger}
}

// List returns paginated organizations.
func (s *OrgService) List(ctx context.Context, filter models.OrganizationFilter) ([]models.Organization, *models.Pagination, error) {
	orgs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list organizations")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	return orgs, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Options lists organizations as id/name pairs.
func (s *OrgService) Options(ctx context.Context) ([]models.Option, error) {
	options, err := s.repo.Options(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list organization options")
	}
	return options, nil
}

// Get returns an organization with its staff.
func (s *OrgService) Get(ctx context.Context, id int64) (*dto.OrganizationDetailResponse, error) {
	org, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "organization not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load organization")
	}

	staff, err := s.repo.Staff(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load organization staff")
	}

	return &dto.OrganizationDetailResponse{Organization: *org, Staff: staff}, nil
}

// Create registers an organization and assigns the given staff to it.
func (s *OrgService) Create(ctx context.Context, req dto.CreateOrganizationRequest) (*dto.OrganizationDetailResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create organization payload")
	}
	if err := s.checkStaff(ctx, req.StaffIDs); err != nil {
		return nil, err
	}

	org := &models.Organization{Name: req.Name, Address: req.Address}
	if err := s.repo.Create(ctx, org); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create organization")
	}

	if len(req.StaffIDs) > 0 {
		if err := s.repo.AssignStaff(ctx, org.ID, req.StaffIDs); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign staff")
		}
	}

	return s.Get(ctx, org.ID)
}

// Update patches an organization. A non-nil StaffIDs replaces the whole
// staff assignment.
func (s *OrgService) Update(ctx context.Context, id int64, req dto.UpdateOrganizationRequest) (*dto.OrganizationDetailResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update organization payload")
	}

	org, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "organization not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load organization")
	}

	if req.Name != nil {
		org.Name = *req.Name
	}
	if req.Address != nil {
		org.Address = req.Address
	}

	if err := s.repo.Update(ctx, org); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update organization")
	}

	if req.StaffIDs != nil {
		if err := s.checkStaff(ctx, *req.StaffIDs); err != nil {
			return nil, err
		}
		if err := s.repo.AssignStaff(ctx, id, *req.StaffIDs); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign staff")
		}
	}

	return s.Get(ctx, id)
}

// Delete removes an organization. Appeals referencing it keep their history.
func (s *OrgService) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "organization not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load organization")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete organization")
	}
	return nil
}

// checkStaff verifies every candidate exists and is organization-tier.
func (s *OrgService) checkStaff(ctx context.Context, userIDs []int64) error {
	for _, userID := range userIDs {
		user, err := s.users.FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrValidation, "staff user not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff user")
		}
		if user.Role.Authority() {
			return appErrors.Clone(appErrors.ErrValidation, "authority tier accounts cannot be assigned as staff")
		}
	}
	return nil
}
