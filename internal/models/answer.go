package models

import "time"

// OrgAnswer is an append-only answer submitted by the responsible
// organization. The latest row by created_at is the operative answer.
type OrgAnswer struct {
	ID       int64   `db:"id" json:"id"`
	AppealID int64   `db:"appeal_id" json:"appeal_id"`
	Text     *string `db:"text" json:"text,omitempty"`
	EvidenceFiles
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AuthorityComment is an append-only note left by the review tier.
type AuthorityComment struct {
	ID        int64     `db:"id" json:"id"`
	AppealID  int64     `db:"appeal_id" json:"appeal_id"`
	Text      string    `db:"text" json:"text"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
