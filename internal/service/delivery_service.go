package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/qongirat/appeals-api/internal/models"
	"github.com/qongirat/appeals-api/pkg/jobs"
)

// Notifier pushes answer documents and messages to citizens over the bot
// channel. Implementations must be safe for concurrent use.
type Notifier interface {
	SendDocument(ctx context.Context, chatID int64, filename string, document io.Reader, caption string) error
	SendMessage(ctx context.Context, chatID int64, text string) error
}

type deliveryAppealStore interface {
	FindByID(ctx context.Context, id int64) (*models.AppealRecord, error)
	LatestAnswer(ctx context.Context, appealID int64) (*models.OrgAnswer, error)
}

type deliveryFileStore interface {
	Open(filename string) (*os.File, error)
}

// DeliveryService pushes the operative organization answer to the citizen who
// filed the appeal through the bot. It runs as the handler of the answer
// delivery queue.
type DeliveryService struct {
	appeals  deliveryAppealStore
	files    deliveryFileStore
	notifier Notifier
	logger   *zap.Logger
}

// NewDeliveryService constructs a DeliveryService.
func NewDeliveryService(appeals deliveryAppealStore, files deliveryFileStore, notifier Notifier, logger *zap.Logger) *DeliveryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeliveryService{appeals: appeals, files: files, notifier: notifier, logger: logger}
}

// Handle consumes one answer delivery job.
func (s *DeliveryService) Handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(DeliveryPayload)
	if !ok {
		s.logger.Error("unexpected delivery payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.Deliver(ctx, payload)
}

// Deliver sends the latest answer for the appeal to the citizen. The citizen
// report document is preferred; a plain message carries the answer text when
// no document was attached.
func (s *DeliveryService) Deliver(ctx context.Context, payload DeliveryPayload) error {
	if s.notifier == nil {
		return nil
	}

	appeal, err := s.appeals.FindByID(ctx, payload.AppealID)
	if err != nil {
		return fmt.Errorf("load appeal %d for delivery: %w", payload.AppealID, err)
	}

	answer, err := s.appeals.LatestAnswer(ctx, payload.AppealID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("load answer for appeal %d: %w", payload.AppealID, err)
	}

	caption := fmt.Sprintf("Appeal #%d: %s", appeal.ID, appeal.Status)
	if answer != nil && answer.CitizenReport != nil && *answer.CitizenReport != "" {
		file, err := s.files.Open(*answer.CitizenReport)
		if err != nil {
			return fmt.Errorf("open citizen report for appeal %d: %w", payload.AppealID, err)
		}
		defer file.Close() //nolint:errcheck
		return s.notifier.SendDocument(ctx, payload.ChatID, *answer.CitizenReport, file, caption)
	}

	text := caption
	if answer != nil && answer.Text != nil && *answer.Text != "" {
		text = *answer.Text
	}
	return s.notifier.SendMessage(ctx, payload.ChatID, text)
}
