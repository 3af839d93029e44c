package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qongirat/appeals-api/internal/models"
	appErrors "github.com/qongirat/appeals-api/pkg/errors"
)

type statsRepoStub struct {
	summary     *models.AppealStatistics
	top         []models.OrgAppealCount
	summaryCall int
	lastOrgID   *int64
	lastLimit   int
}

func (s *statsRepoStub) Summary(ctx context.Context, orgID *int64) (*models.AppealStatistics, error) {
	s.summaryCall++
	s.lastOrgID = orgID
	return s.summary, nil
}

func (s *statsRepoStub) TopOrganizations(ctx context.Context, limit int) ([]models.OrgAppealCount, error) {
	s.lastLimit = limit
	return s.top, nil
}

type cacheRepoStub struct {
	entries map[string][]byte
}

func newCacheRepoStub() *cacheRepoStub {
	return &cacheRepoStub{entries: map[string][]byte{}}
}

func (s *cacheRepoStub) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := s.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *cacheRepoStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.entries[key] = raw
	return nil
}

func (s *cacheRepoStub) DeleteByPattern(ctx context.Context, pattern string) error {
	s.entries = map[string][]byte{}
	return nil
}

func TestStatsServiceSummaryScopesStaff(t *testing.T) {
	repo := &statsRepoStub{summary: &models.AppealStatistics{Total: 3, Active: 2, Done: 1}}
	service := NewStatsService(repo, nil, time.Minute, zap.NewNop())

	stats, err := service.Summary(context.Background(), orgClaims(4))
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	require.NotNil(t, repo.lastOrgID)
	assert.Equal(t, int64(4), *repo.lastOrgID)
}

func TestStatsServiceSummaryUnboundStaffForbidden(t *testing.T) {
	repo := &statsRepoStub{summary: &models.AppealStatistics{}}
	service := NewStatsService(repo, nil, time.Minute, zap.NewNop())

	claims := &models.JWTClaims{UserID: 3, Role: models.RoleUser}
	_, err := service.Summary(context.Background(), claims)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Zero(t, repo.summaryCall)
}

func TestStatsServiceSummaryUsesCache(t *testing.T) {
	repo := &statsRepoStub{summary: &models.AppealStatistics{Total: 10}}
	cache := NewCacheService(newCacheRepoStub(), nil, time.Minute, zap.NewNop(), true)
	service := NewStatsService(repo, cache, time.Minute, zap.NewNop())

	first, err := service.Summary(context.Background(), authorityClaims())
	require.NoError(t, err)
	second, err := service.Summary(context.Background(), authorityClaims())
	require.NoError(t, err)

	assert.Equal(t, first.Total, second.Total)
	assert.Equal(t, 1, repo.summaryCall)
}

func TestStatsServiceTopOrganizationsDefaultLimit(t *testing.T) {
	repo := &statsRepoStub{top: []models.OrgAppealCount{{OrgID: 1, OrgName: "City Water Department", Count: 12}}}
	service := NewStatsService(repo, nil, time.Minute, zap.NewNop())

	counts, err := service.TopOrganizations(context.Background())
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, 5, repo.lastLimit)
}

func TestStatsServiceInvalidateClearsCache(t *testing.T) {
	repo := &statsRepoStub{summary: &models.AppealStatistics{Total: 10}}
	cache := NewCacheService(newCacheRepoStub(), nil, time.Minute, zap.NewNop(), true)
	service := NewStatsService(repo, cache, time.Minute, zap.NewNop())

	_, err := service.Summary(context.Background(), authorityClaims())
	require.NoError(t, err)
	require.NoError(t, service.InvalidateCache(context.Background()))

	_, err = service.Summary(context.Background(), authorityClaims())
	require.NoError(t, err)
	assert.Equal(t, 2, repo.summaryCall)
}
