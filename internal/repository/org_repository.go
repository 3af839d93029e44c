package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/qongirat/appeals-api/internal/models"
)

// OrgRepository provides database access for organizations and their staff.
type OrgRepository struct {
	db *sqlx.DB
}

// NewOrgRepository creates a new instance of OrgRepository.
func NewOrgRepository(db *sqlx.DB) *OrgRepository {
	return &OrgRepository{db: db}
}

// FindByID returns an organization by identifier.
func (r *OrgRepository) FindByID(ctx context.Context, id int64) (*models.Organization, error) {
	const query = `SELECT id, name, address, created_at FROM organizations WHERE id = $1 LIMIT 1`
	var org models.Organization
	if err := r.db.GetContext(ctx, &org, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find organization by id: %w", err)
	}
	return &org, nil
}

// List returns organizations matching the filter with total count.
func (r *OrgRepository) List(ctx context.Context, filter models.OrganizationFilter) ([]models.Organization, int, error) {
	baseQuery := `FROM organizations WHERE 1=1`
	var args []interface{}

	if filter.Search != "" {
		baseQuery += fmt.Sprintf(" AND LOWER(name) LIKE $%d", len(args)+1)
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

	listQuery := fmt.Sprintf("SELECT id, name, address, created_at %s ORDER BY name LIMIT %d OFFSET %d", baseQuery, pageSize, offset)
	var orgs []models.Organization
	if err := r.db.SelectContext(ctx, &orgs, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list organizations: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count organizations: %w", err)
	}

	return orgs, total, nil
}

// Options returns all organizations as id/name pairs.
func (r *OrgRepository) Options(ctx context.Context) ([]models.Option, error) {
	const query = `SELECT id, name FROM organizations ORDER BY name`
	var options []models.Option
	if err := r.db.SelectContext(ctx, &options, query); err != nil {
		return nil, fmt.Errorf("list organization options: %w", err)
	}
	return options, nil
}

// Create inserts a new organization and returns the generated identifier.
func (r *OrgRepository) Create(ctx context.Context, org *models.Organization) error {
	if org.CreatedAt.IsZero() {
		org.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO organizations (name, address, created_at) VALUES (:name, :address, :created_at) RETURNING id`
	stmt, err := r.db.PrepareNamedContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare create organization: %w", err)
	}
	defer stmt.Close() //nolint:errcheck
	if err := stmt.GetContext(ctx, &org.ID, org); err != nil {
		return fmt.Errorf("create organization: %w", err)
	}
	return nil
}

// Update updates mutable fields of an organization.
func (r *OrgRepository) Update(ctx context.Context, org *models.Organization) error {
	const query = `UPDATE organizations SET name = :name, address = :address WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, org); err != nil {
		return fmt.Errorf("update organization: %w", err)
	}
	return nil
}

// Delete removes an organization.
func (r *OrgRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM organizations WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete organization: %w", err)
	}
	return nil
}

// AssignStaff points the given users at the organization. Users previously
// assigned but absent from the list are detached.
func (r *OrgRepository) AssignStaff(ctx context.Context, orgID int64, userIDs []int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assign staff: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `UPDATE users SET org_id = NULL WHERE org_id = $1`, orgID); err != nil {
		return fmt.Errorf("detach staff: %w", err)
	}
	if len(userIDs) > 0 {
		query, args, err := sqlx.In(`UPDATE users SET org_id = ? WHERE id IN (?)`, orgID, userIDs)
		if err != nil {
			return fmt.Errorf("build attach staff: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("attach staff: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit assign staff: %w", err)
	}
	return nil
}

// Staff returns the users assigned to an organization.
func (r *OrgRepository) Staff(ctx context.Context, orgID int64) ([]models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE org_id = $1 ORDER BY full_name`, userColumns)
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, orgID); err != nil {
		return nil, fmt.Errorf("list organization staff: %w", err)
	}
	return users, nil
}
