package models

import "time"

// IntakeStatus enumerates the lifecycle of a bot-submitted intake record.
type IntakeStatus string

const (
	IntakeStatusNew        IntakeStatus = "new"
	IntakeStatusInProgress IntakeStatus = "in_progress"
	IntakeStatusCanceled   IntakeStatus = "canceled"
	IntakeStatusDone       IntakeStatus = "done"
	IntakeStatusArchive    IntakeStatus = "archive"
	IntakeStatusRejected   IntakeStatus = "rejected"
)

// Valid returns true when the status is a supported value.
func (s IntakeStatus) Valid() bool {
	switch s {
	case IntakeStatusNew, IntakeStatusInProgress, IntakeStatusCanceled,
		IntakeStatusDone, IntakeStatusArchive, IntakeStatusRejected:
		return true
	default:
		return false
	}
}

// IntakeUser is a citizen registered through the messaging bot.
type IntakeUser struct {
	ID        int64     `db:"id" json:"id"`
	ChatID    int64     `db:"chat_id" json:"chat_id"`
	Phone     string    `db:"phone" json:"phone"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// IntakeAppeal is a raw appeal submitted via the bot, prior to promotion.
type IntakeAppeal struct {
	ID        int64        `db:"id" json:"id"`
	ChatID    int64        `db:"chat_id" json:"chat_id"`
	FullName  string       `db:"full_name" json:"full_name"`
	Phone     string       `db:"phone" json:"phone"`
	Document  *string      `db:"document" json:"document,omitempty"`
	Birthday  *time.Time   `db:"birthday" json:"birthday,omitempty"`
	Address   *string      `db:"address" json:"address,omitempty"`
	Mahalla   *string      `db:"mahalla" json:"mahalla,omitempty"`
	Text      string       `db:"text" json:"text"`
	FilePath  *string      `db:"file_path" json:"file_path,omitempty"`
	Status    IntakeStatus `db:"status" json:"status"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}

// IntakeHistory is an append-only record of intake status changes.
type IntakeHistory struct {
	ID        int64        `db:"id" json:"id"`
	IntakeID  int64        `db:"intake_id" json:"intake_id"`
	Status    IntakeStatus `db:"status" json:"status"`
	UserID    *int64       `db:"user_id" json:"user_id,omitempty"`
	Text      *string      `db:"text" json:"text,omitempty"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}

// IntakeFilter constrains intake listings.
type IntakeFilter struct {
	Status   *IntakeStatus
	ChatID   *int64
	Search   string
	Page     int
	PageSize int
}
