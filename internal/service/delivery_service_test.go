package service

import (
	"context"
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qongirat/appeals-api/internal/models"
	"github.com/qongirat/appeals-api/pkg/jobs"
)

type notifierStub struct {
	documents []string
	messages  []string
	chatIDs   []int64
	err       error
}

func (s *notifierStub) SendDocument(ctx context.Context, chatID int64, filename string, document io.Reader, caption string) error {
	if s.err != nil {
		return s.err
	}
	s.chatIDs = append(s.chatIDs, chatID)
	s.documents = append(s.documents, filename)
	return nil
}

func (s *notifierStub) SendMessage(ctx context.Context, chatID int64, text string) error {
	if s.err != nil {
		return s.err
	}
	s.chatIDs = append(s.chatIDs, chatID)
	s.messages = append(s.messages, text)
	return nil
}

type deliveryStoreStub struct {
	record *models.AppealRecord
	answer *models.OrgAnswer
}

func (s *deliveryStoreStub) FindByID(ctx context.Context, id int64) (*models.AppealRecord, error) {
	return s.record, nil
}

func (s *deliveryStoreStub) LatestAnswer(ctx context.Context, appealID int64) (*models.OrgAnswer, error) {
	if s.answer == nil {
		return nil, sql.ErrNoRows
	}
	return s.answer, nil
}

type dirFileStore struct {
	dir string
}

func (s dirFileStore) Open(filename string) (*os.File, error) {
	return os.Open(filepath.Join(s.dir, filename))
}

func TestDeliveryServicePrefersDocument(t *testing.T) {
	dir := t.TempDir()
	report := "report-7.pdf"
	require.NoError(t, os.WriteFile(filepath.Join(dir, report), []byte("pdf"), 0o600))

	text := "issue resolved"
	store := &deliveryStoreStub{
		record: appealFixture(models.StatusSuccessDone, 1, nil),
		answer: &models.OrgAnswer{AppealID: 7, Text: &text, EvidenceFiles: models.EvidenceFiles{CitizenReport: &report}},
	}
	notifier := &notifierStub{}
	service := NewDeliveryService(store, dirFileStore{dir: dir}, notifier, zap.NewNop())

	err := service.Deliver(context.Background(), DeliveryPayload{ChatID: 900100, AppealID: 7})
	require.NoError(t, err)
	require.Len(t, notifier.documents, 1)
	assert.Equal(t, report, notifier.documents[0])
	assert.Equal(t, int64(900100), notifier.chatIDs[0])
	assert.Empty(t, notifier.messages)
}

func TestDeliveryServiceFallsBackToAnswerText(t *testing.T) {
	text := "pipe replaced, water supply restored"
	store := &deliveryStoreStub{
		record: appealFixture(models.StatusSuccessDone, 1, nil),
		answer: &models.OrgAnswer{AppealID: 7, Text: &text},
	}
	notifier := &notifierStub{}
	service := NewDeliveryService(store, dirFileStore{dir: t.TempDir()}, notifier, zap.NewNop())

	err := service.Deliver(context.Background(), DeliveryPayload{ChatID: 900100, AppealID: 7})
	require.NoError(t, err)
	require.Len(t, notifier.messages, 1)
	assert.Equal(t, text, notifier.messages[0])
}

func TestDeliveryServiceHandleSkipsUnknownPayload(t *testing.T) {
	notifier := &notifierStub{}
	service := NewDeliveryService(&deliveryStoreStub{}, dirFileStore{}, notifier, zap.NewNop())

	err := service.Handle(context.Background(), jobs.Job{ID: "j-1", Type: JobTypeAnswerDelivery, Payload: "bogus"})
	require.NoError(t, err)
	assert.Empty(t, notifier.messages)
	assert.Empty(t, notifier.documents)
}
