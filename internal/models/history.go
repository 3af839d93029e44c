package models

import "time"

// EvidenceFiles groups the optional attachment columns shared by answers and
// history entries.
type EvidenceFiles struct {
	TimeFile         *string `db:"time_file" json:"time_file,omitempty"`
	CitizenReport    *string `db:"citizen_report" json:"citizen_report,omitempty"`
	GovernmentReport *string `db:"government_report" json:"government_report,omitempty"`
	ReportPhoto      *string `db:"report_photo" json:"report_photo,omitempty"`
}

// AppealHistory is an append-only record of a workflow event. Status is null
// for administrative annotations that do not move the appeal.
type AppealHistory struct {
	ID       int64         `db:"id" json:"id"`
	AppealID int64         `db:"appeal_id" json:"appeal_id"`
	UserID   *int64        `db:"user_id" json:"user_id,omitempty"`
	Status   *AppealStatus `db:"status" json:"status,omitempty"`
	Text     *string       `db:"text" json:"text,omitempty"`
	EvidenceFiles
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AppealView marks that a user has opened an appeal. One row per user/appeal.
type AppealView struct {
	ID       int64     `db:"id" json:"id"`
	AppealID int64     `db:"appeal_id" json:"appeal_id"`
	UserID   int64     `db:"user_id" json:"user_id"`
	ViewedAt time.Time `db:"viewed_at" json:"viewed_at"`
}
