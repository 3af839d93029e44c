package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/qongirat/appeals-api/internal/models"
)

// RegionRepository provides database access for mahallas and sectors.
type RegionRepository struct {
	db *sqlx.DB
}

// NewRegionRepository creates a new instance of RegionRepository.
func NewRegionRepository(db *sqlx.DB) *RegionRepository {
	return &RegionRepository{db: db}
}

// FindMahallaByID returns a mahalla with its sector name.
func (r *RegionRepository) FindMahallaByID(ctx context.Context, id int64) (*models.MahallaRecord, error) {
	const query = `SELECT m.id, m.name, m.sector_id, s.name AS sector_name
	FROM mahallas m JOIN sectors s ON s.id = m.sector_id WHERE m.id = $1 LIMIT 1`
	var mahalla models.MahallaRecord
	if err := r.db.GetContext(ctx, &mahalla, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find mahalla by id: %w", err)
	}
	return &mahalla, nil
}

// ListMahallas returns mahallas matching the filter with total count.
func (r *RegionRepository) ListMahallas(ctx context.Context, filter models.MahallaFilter) ([]models.MahallaRecord, int, error) {
	baseQuery := `FROM mahallas m JOIN sectors s ON s.id = m.sector_id WHERE 1=1`
	var args []interface{}

	if filter.SectorID != nil {
		baseQuery += fmt.Sprintf(" AND m.sector_id = $%d", len(args)+1)
		args = append(args, *filter.SectorID)
	}
	if filter.Search != "" {
		baseQuery += fmt.Sprintf(" AND LOWER(m.name) LIKE $%d", len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT m.id, m.name, m.sector_id, s.name AS sector_name %s ORDER BY m.name LIMIT %d OFFSET %d", baseQuery, pageSize, offset)
	var mahallas []models.MahallaRecord
	if err := r.db.SelectContext(ctx, &mahallas, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list mahallas: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count mahallas: %w", err)
	}

	return mahallas, total, nil
}

// MahallaOptions returns all mahallas as id/name pairs.
func (r *RegionRepository) MahallaOptions(ctx context.Context) ([]models.Option, error) {
	const query = `SELECT id, name FROM mahallas ORDER BY name`
	var options []models.Option
	if err := r.db.SelectContext(ctx, &options, query); err != nil {
		return nil, fmt.Errorf("list mahalla options: %w", err)
	}
	return options, nil
}

// CreateMahalla inserts a new mahalla and returns the generated identifier.
func (r *RegionRepository) CreateMahalla(ctx context.Context, mahalla *models.Mahalla) error {
	const query = `INSERT INTO mahallas (name, sector_id) VALUES (:name, :sector_id) RETURNING id`
	stmt, err := r.db.PrepareNamedContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare create mahalla: %w", err)
	}
	defer stmt.Close() //nolint:errcheck
	if err := stmt.GetContext(ctx, &mahalla.ID, mahalla); err != nil {
		return fmt.Errorf("create mahalla: %w", err)
	}
	return nil
}

// UpdateMahalla updates mutable fields of a mahalla.
func (r *RegionRepository) UpdateMahalla(ctx context.Context, mahalla *models.Mahalla) error {
	const query = `UPDATE mahallas SET name = :name, sector_id = :sector_id WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, mahalla); err != nil {
		return fmt.Errorf("update mahalla: %w", err)
	}
	return nil
}

// DeleteMahalla removes a mahalla.
func (r *RegionRepository) DeleteMahalla(ctx context.Context, id int64) error {
	const query = `DELETE FROM mahallas WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete mahalla: %w", err)
	}
	return nil
}

// ListSectors returns every sector.
func (r *RegionRepository) ListSectors(ctx context.Context) ([]models.Sector, error) {
	const query = `SELECT id, name FROM sectors ORDER BY name`
	var sectors []models.Sector
	if err := r.db.SelectContext(ctx, &sectors, query); err != nil {
		return nil, fmt.Errorf("list sectors: %w", err)
	}
	return sectors, nil
}

// SectorOptions returns all sectors as id/name pairs.
func (r *RegionRepository) SectorOptions(ctx context.Context) ([]models.Option, error) {
	const query = `SELECT id, name FROM sectors ORDER BY name`
	var options []models.Option
	if err := r.db.SelectContext(ctx, &options, query); err != nil {
		return nil, fmt.Errorf("list sector options: %w", err)
	}
	return options, nil
}

// CreateSector inserts a new sector and returns the generated identifier.
func (r *RegionRepository) CreateSector(ctx context.Context, sector *models.Sector) error {
	const query = `INSERT INTO sectors (name) VALUES (:name) RETURNING id`
	stmt, err := r.db.PrepareNamedContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare create sector: %w", err)
	}
	defer stmt.Close() //nolint:errcheck
	if err := stmt.GetContext(ctx, &sector.ID, sector); err != nil {
		return fmt.Errorf("create sector: %w", err)
	}
	return nil
}
