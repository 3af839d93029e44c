package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/qongirat/appeals-api/internal/models"
)

// StatsRepository aggregates appeal counters for the dashboard.
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository constructs the repository.
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// Summary returns appeal counts grouped into dashboard buckets. When orgID is
// non-nil the counts are scoped to that organization.
func (r *StatsRepository) Summary(ctx context.Context, orgID *int64) (*models.AppealStatistics, error) {
	query := `SELECT
	COUNT(*) AS total,
	COUNT(*) FILTER (WHERE status = $1) AS waiting,
	COUNT(*) FILTER (WHERE status NOT IN ($1, $2, $3, $4, $5)) AS active,
	COUNT(*) FILTER (WHERE status IN ($2, $3)) AS done,
	COUNT(*) FILTER (WHERE status = $4) AS rejected,
	COUNT(*) FILTER (WHERE status = $5) AS archived
	FROM appeals`
	args := []interface{}{
		models.StatusWaiting,
		models.StatusSuccessDone,
		models.StatusTextDone,
		models.StatusRejected,
		models.StatusArchive,
	}
	if orgID != nil {
		query += " WHERE org_id = $6"
		args = append(args, *orgID)
	}

	var stats models.AppealStatistics
	if err := r.db.GetContext(ctx, &stats, query, args...); err != nil {
		return nil, fmt.Errorf("appeal statistics: %w", err)
	}
	stats.GeneratedAt = time.Now().UTC()
	return &stats, nil
}

// TopOrganizations returns the organizations with the most appeals.
func (r *StatsRepository) TopOrganizations(ctx context.Context, limit int) ([]models.OrgAppealCount, error) {
	if limit <= 0 || limit > 50 {
		limit = 5
	}
	query := fmt.Sprintf(`SELECT o.id AS org_id, o.name AS org_name, COUNT(a.id) AS count
	FROM organizations o
	LEFT JOIN appeals a ON a.org_id = o.id
	GROUP BY o.id, o.name
	ORDER BY count DESC, o.name
	LIMIT %d`, limit)

	var counts []models.OrgAppealCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("top organizations: %w", err)
	}
	return counts, nil
}
