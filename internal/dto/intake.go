package dto

import "github.com/qongirat/appeals-api/internal/models"

// RegisterIntakeUserRequest registers a citizen from the bot.
type RegisterIntakeUserRequest struct {
	ChatID int64  `json:"chat_id" validate:"required"`
	Phone  string `json:"phone" validate:"required"`
}

// CreateIntakeAppealRequest is the bot-facing multipart payload.
type CreateIntakeAppealRequest struct {
	ChatID   int64   `form:"chat_id" validate:"required"`
	FullName string  `form:"full_name" validate:"required"`
	Phone    string  `form:"phone" validate:"required"`
	Document *string `form:"document"`
	Birthday *string `form:"birthday"`
	Address  *string `form:"address"`
	Mahalla  *string `form:"mahalla"`
	Text     string  `form:"text" validate:"required"`
}

// SortIntakeRequest manually moves an intake record to a status.
type SortIntakeRequest struct {
	Status models.IntakeStatus `json:"status" validate:"required"`
	Text   *string             `json:"text"`
}

// CitizenAppealsResponse lists a citizen's intake records together with the
// promoted appeal statuses the bot reports back.
type CitizenAppealsResponse struct {
	User    models.IntakeUser    `json:"user"`
	Appeals []CitizenAppealEntry `json:"appeals"`
}

// CitizenAppealEntry pairs an intake record with its promoted appeal, if any.
type CitizenAppealEntry struct {
	Intake models.IntakeAppeal `json:"intake"`
	Appeal *models.Appeal      `json:"appeal,omitempty"`
}
