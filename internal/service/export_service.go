package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/qongirat/appeals-api/internal/models"
	appErrors "github.com/qongirat/appeals-api/pkg/errors"
	"github.com/qongirat/appeals-api/pkg/export"
)

type exportAppealStore interface {
	FindByID(ctx context.Context, id int64) (*models.AppealRecord, error)
	ListAll(ctx context.Context, filter models.AppealFilter) ([]models.AppealRecord, error)
	LatestAnswer(ctx context.Context, appealID int64) (*models.OrgAnswer, error)
}

// ExportService renders appeal data as CSV listings and per-appeal PDFs.
type ExportService struct {
	appeals exportAppealStore
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	logger  *zap.Logger
}

// NewExportService creates an instance of ExportService.
func NewExportService(appeals exportAppealStore, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		appeals: appeals,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
	}
}

var appealCSVHeaders = []string{
	"id", "full_name", "phone", "mahalla", "organization",
	"status", "deadline", "created_at", "text",
}

// AppealsCSV renders the filtered appeal listing as CSV. Non-authority
// callers must already be scoped to their own organization by the filter.
func (s *ExportService) AppealsCSV(ctx context.Context, claims *models.JWTClaims, filter models.AppealFilter) ([]byte, error) {
	if claims != nil && !claims.Role.Authority() {
		if claims.OrgID == nil {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "account is not bound to an organization")
		}
		filter.OrgID = claims.OrgID
	}

	appeals, err := s.appeals.ListAll(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appeals for export")
	}

	rows := make([]map[string]string, 0, len(appeals))
	for _, appeal := range appeals {
		rows = append(rows, map[string]string{
			"id":           strconv.FormatInt(appeal.ID, 10),
			"full_name":    appeal.FullName,
			"phone":        appeal.Phone,
			"mahalla":      appeal.MahallaName,
			"organization": appeal.OrgName,
			"status":       string(appeal.Status),
			"deadline":     appeal.Deadline.Format(dateLayout),
			"created_at":   appeal.CreatedAt.Format(dateLayout),
			"text":         appeal.Text,
		})
	}

	data, err := s.csv.Render(export.Dataset{Headers: appealCSVHeaders, Rows: rows})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return data, nil
}

// AppealPDF renders a single appeal as a printable PDF document.
func (s *ExportService) AppealPDF(ctx context.Context, appealID int64) ([]byte, error) {
	appeal, err := s.appeals.FindByID(ctx, appealID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appeal not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appeal")
	}

	doc := export.Document{
		Title: fmt.Sprintf("Appeal #%d", appeal.ID),
		Fields: []export.Field{
			{Label: "Full name", Value: appeal.FullName},
			{Label: "Gender", Value: string(appeal.Gender)},
			{Label: "Phone", Value: appeal.Phone},
			{Label: "Address", Value: stringOrDash(appeal.Address)},
			{Label: "Mahalla", Value: appeal.MahallaName},
			{Label: "Organization", Value: appeal.OrgName},
			{Label: "Status", Value: string(appeal.Status)},
			{Label: "Deadline", Value: appeal.Deadline.Format(dateLayout)},
			{Label: "Submitted", Value: appeal.CreatedAt.Format(dateLayout)},
		},
		Sections: []export.Section{
			{Heading: "Appeal text", Body: appeal.Text},
		},
	}

	answer, err := s.appeals.LatestAnswer(ctx, appealID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load latest answer")
	}
	if answer != nil && answer.Text != nil && *answer.Text != "" {
		doc.Sections = append(doc.Sections, export.Section{Heading: "Organization answer", Body: *answer.Text})
	}

	data, err := s.pdf.RenderDocument(doc)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return data, nil
}

func stringOrDash(value *string) string {
	if value == nil || *value == "" {
		return "-"
	}
	return *value
}
