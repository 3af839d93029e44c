package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/qongirat/appeals-api/internal/models"
	appErrors "github.com/qongirat/appeals-api/pkg/errors"
)

const (
	statsSummaryKeyAll  = "stats:summary:all"
	statsSummaryKeyOrg  = "stats:summary:org:%d"
	statsTopOrgsKey     = "stats:top_orgs"
	statsTopOrgsDefault = 5
)

type statsRepository interface {
	Summary(ctx context.Context, orgID *int64) (*models.AppealStatistics, error)
	TopOrganizations(ctx context.Context, limit int) ([]models.OrgAppealCount, error)
}

// StatsService serves dashboard aggregates, cached in Redis when enabled.
type StatsService struct {
	repo   statsRepository
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
}

// NewStatsService creates an instance of StatsService.
func NewStatsService(repo statsRepository, cache *CacheService, ttl time.Duration, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &StatsService{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// Summary returns appeal counts. Organization staff are scoped to their org.
func (s *StatsService) Summary(ctx context.Context, claims *models.JWTClaims) (*models.AppealStatistics, error) {
	var orgID *int64
	key := statsSummaryKeyAll
	if claims != nil && !claims.Role.Authority() {
		if claims.OrgID == nil {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "account is not bound to an organization")
		}
		orgID = claims.OrgID
		key = fmt.Sprintf(statsSummaryKeyOrg, *claims.OrgID)
	}

	var cached models.AppealStatistics
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}

	stats, err := s.repo.Summary(ctx, orgID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build statistics")
	}
	stats.GeneratedAt = time.Now().UTC()

	if err := s.cache.Set(ctx, key, stats, s.ttl); err != nil {
		s.logger.Warn("failed to cache statistics", zap.String("key", key), zap.Error(err))
	}

	return stats, nil
}

// TopOrganizations ranks organizations by appeal volume.
func (s *StatsService) TopOrganizations(ctx context.Context) ([]models.OrgAppealCount, error) {
	var cached []models.OrgAppealCount
	if hit, err := s.cache.Get(ctx, statsTopOrgsKey, &cached); err == nil && hit {
		return cached, nil
	}

	counts, err := s.repo.TopOrganizations(ctx, statsTopOrgsDefault)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rank organizations")
	}

	if err := s.cache.Set(ctx, statsTopOrgsKey, counts, s.ttl); err != nil {
		s.logger.Warn("failed to cache organization ranking", zap.Error(err))
	}

	return counts, nil
}

// InvalidateCache drops every cached statistics entry.
func (s *StatsService) InvalidateCache(ctx context.Context) error {
	return s.cache.Invalidate(ctx, "stats:*")
}
