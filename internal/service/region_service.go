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

type regionRepository interface {
	FindMahallaByID(ctx context.Context, id int64) (*models.MahallaRecord, error)
	ListMahallas(ctx context.Context, filter models.MahallaFilter) ([]models.MahallaRecord, int, error)
	MahallaOptions(ctx context.Context) ([]models.Option, error)
	CreateMahalla(ctx context.Context, mahalla *models.Mahalla) error
	UpdateMahalla(ctx context.Context, mahalla *models.Mahalla) error
	DeleteMahalla(ctx context.Context, id int64) error
	ListSectors(ctx context.Context) ([]models.Sector, error)
	SectorOptions(ctx context.Context) ([]models.Option, error)
	CreateSector(ctx context.Context, sector *models.Sector) error
}

// RegionService manages the sector and mahalla directories.
type RegionService struct {
	repo      regionRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRegionService creates an instance of RegionService.
func NewRegionService(repo regionRepository, validate *validator.Validate, logger *zap.Logger) *RegionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &RegionService{repo: repo, validator: validate, logger: logger}
}

// ListMahallas returns paginated mahallas with their sector names.
func (s *RegionService) ListMahallas(ctx context.Context, filter models.MahallaFilter) ([]models.MahallaRecord, *models.Pagination, error) {
	mahallas, total, err := s.repo.ListMahallas(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list mahallas")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	return mahallas, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// MahallaOptions lists mahallas as id/name pairs.
func (s *RegionService) MahallaOptions(ctx context.Context) ([]models.Option, error) {
	options, err := s.repo.MahallaOptions(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list mahalla options")
	}
	return options, nil
}

// GetMahalla returns a mahalla by ID.
func (s *RegionService) GetMahalla(ctx context.Context, id int64) (*models.MahallaRecord, error) {
	mahalla, err := s.repo.FindMahallaByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mahalla not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mahalla")
	}
	return mahalla, nil
}

// CreateMahalla registers a mahalla within an existing sector.
func (s *RegionService) CreateMahalla(ctx context.Context, req dto.CreateMahallaRequest) (*models.MahallaRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create mahalla payload")
	}

	mahalla := &models.Mahalla{Name: req.Name, SectorID: req.SectorID}
	if err := s.repo.CreateMahalla(ctx, mahalla); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create mahalla")
	}

	return s.GetMahalla(ctx, mahalla.ID)
}

// UpdateMahalla patches a mahalla.
func (s *RegionService) UpdateMahalla(ctx context.Context, id int64, req dto.UpdateMahallaRequest) (*models.MahallaRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update mahalla payload")
	}

	record, err := s.GetMahalla(ctx, id)
	if err != nil {
		return nil, err
	}

	mahalla := record.Mahalla
	if req.Name != nil {
		mahalla.Name = *req.Name
	}
	if req.SectorID != nil {
		mahalla.SectorID = *req.SectorID
	}

	if err := s.repo.UpdateMahalla(ctx, &mahalla); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mahalla not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update mahalla")
	}

	return s.GetMahalla(ctx, id)
}

// DeleteMahalla removes a mahalla.
func (s *RegionService) DeleteMahalla(ctx context.Context, id int64) error {
	if _, err := s.GetMahalla(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteMahalla(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete mahalla")
	}
	return nil
}

// ListSectors returns all sectors.
func (s *RegionService) ListSectors(ctx context.Context) ([]models.Sector, error) {
	sectors, err := s.repo.ListSectors(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sectors")
	}
	return sectors, nil
}

// SectorOptions lists sectors as id/name pairs.
func (s *RegionService) SectorOptions(ctx context.Context) ([]models.Option, error) {
	options, err := s.repo.SectorOptions(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sector options")
	}
	return options, nil
}

// CreateSector registers a sector.
func (s *RegionService) CreateSector(ctx context.Context, req dto.CreateSectorRequest) (*models.Sector, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create sector payload")
	}

	sector := &models.Sector{Name: req.Name}
	if err := s.repo.CreateSector(ctx, sector); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create sector")
	}
	return sector, nil
}
