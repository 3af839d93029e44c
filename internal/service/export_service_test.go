package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qongirat/appeals-api/internal/models"
	appErrors "github.com/qongirat/appeals-api/pkg/errors"
)

type exportStoreStub struct {
	record     *models.AppealRecord
	items      []models.AppealRecord
	answer     *models.OrgAnswer
	lastFilter *models.AppealFilter
}

func (s *exportStoreStub) FindByID(ctx context.Context, id int64) (*models.AppealRecord, error) {
	if s.record == nil {
		return nil, sql.ErrNoRows
	}
	return s.record, nil
}

func (s *exportStoreStub) ListAll(ctx context.Context, filter models.AppealFilter) ([]models.AppealRecord, error) {
	s.lastFilter = &filter
	return s.items, nil
}

func (s *exportStoreStub) LatestAnswer(ctx context.Context, appealID int64) (*models.OrgAnswer, error) {
	if s.answer == nil {
		return nil, sql.ErrNoRows
	}
	return s.answer, nil
}

func TestExportServiceAppealsCSV(t *testing.T) {
	store := &exportStoreStub{items: []models.AppealRecord{*appealFixture(models.StatusInProgress, 1, nil)}}
	service := NewExportService(store, zap.NewNop())

	data, err := service.AppealsCSV(context.Background(), authorityClaims(), models.AppealFilter{})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "full_name")
	assert.Contains(t, lines[1], "Aliya Karimova")
	assert.Contains(t, lines[1], "City Water Department")
	assert.Contains(t, lines[1], "in_progress")
}

func TestExportServiceAppealsCSVScopesStaff(t *testing.T) {
	store := &exportStoreStub{}
	service := NewExportService(store, zap.NewNop())

	other := int64(9)
	_, err := service.AppealsCSV(context.Background(), orgClaims(4), models.AppealFilter{OrgID: &other})
	require.NoError(t, err)
	require.NotNil(t, store.lastFilter)
	require.NotNil(t, store.lastFilter.OrgID)
	assert.Equal(t, int64(4), *store.lastFilter.OrgID)
}

func TestExportServiceAppealPDF(t *testing.T) {
	answerText := "water main replaced"
	store := &exportStoreStub{
		record: appealFixture(models.StatusSuccessDone, 1, nil),
		answer: &models.OrgAnswer{AppealID: 7, Text: &answerText},
	}
	service := NewExportService(store, zap.NewNop())

	data, err := service.AppealPDF(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))
}

func TestExportServiceAppealPDFNotFound(t *testing.T) {
	service := NewExportService(&exportStoreStub{}, zap.NewNop())

	_, err := service.AppealPDF(context.Background(), 404)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
