package dto

import (
	"time"

	"github.com/qongirat/appeals-api/internal/models"
)

// CreateAppealRequest is the payload for registering an appeal.
// Birthday and Deadline use the YYYY-MM-DD wire format.
type CreateAppealRequest struct {
	FullName  string        `json:"full_name" validate:"required"`
	Gender    models.Gender `json:"gender" validate:"required"`
	Phone     string        `json:"phone" validate:"required"`
	DocSeries *string       `json:"doc_series"`
	DocNumber *string       `json:"doc_number"`
	Address   *string       `json:"address"`
	Birthday  *string       `json:"birthday"`
	FilePath  *string       `json:"file_path"`
	Text      string        `json:"text" validate:"required"`
	Deadline  *string       `json:"deadline"`
	IntakeID  *int64        `json:"intake_id"`
	MahallaID int64         `json:"mahalla_id" validate:"required"`
	OrgID     int64         `json:"org_id" validate:"required"`
}

// UpdateAppealRequest patches administrative fields. Status is never part of
// this payload; the Note, when present, is recorded as a history annotation.
type UpdateAppealRequest struct {
	FullName  *string        `json:"full_name"`
	Gender    *models.Gender `json:"gender"`
	Phone     *string        `json:"phone"`
	DocSeries *string        `json:"doc_series"`
	DocNumber *string        `json:"doc_number"`
	Address   *string        `json:"address"`
	Birthday  *string        `json:"birthday"`
	FilePath  *string        `json:"file_path"`
	Text      *string        `json:"text"`
	Deadline  *string        `json:"deadline"`
	MahallaID *int64         `json:"mahalla_id"`
	OrgID     *int64         `json:"org_id"`
	Note      *string        `json:"note"`
}

// AnswerRequest is the organization-side transition payload.
type AnswerRequest struct {
	Status           models.AppealStatus `json:"status" validate:"required"`
	Text             *string             `json:"text"`
	TimeFile         *string             `json:"time_file"`
	CitizenReport    *string             `json:"citizen_report"`
	GovernmentReport *string             `json:"government_report"`
	ReportPhoto      *string             `json:"report_photo"`
}

// ReviewRequest is the authority-side transition payload. Deadline is
// required for the time_extended verdict, YYYY-MM-DD.
type ReviewRequest struct {
	Status   models.AppealStatus `json:"status" validate:"required"`
	Comment  *string             `json:"comment"`
	Deadline *string             `json:"deadline"`
}

// AppealDetailResponse enriches an appeal with its workflow records.
type AppealDetailResponse struct {
	models.AppealRecord
	History      []models.AppealHistory    `json:"history"`
	LatestAnswer *models.OrgAnswer         `json:"latest_answer,omitempty"`
	Comments     []models.AuthorityComment `json:"comments"`
	Views        []models.AppealView       `json:"views"`
}

// AppealListQuery captures list/export query parameters.
type AppealListQuery struct {
	OrgID    *int64
	Status   string
	DateFrom *time.Time
	DateTo   *time.Time
	Search   string
	Page     int
	PageSize int
}

// UploadResponse returns the stored name of an uploaded file.
type UploadResponse struct {
	FilePath string `json:"file_path"`
}
