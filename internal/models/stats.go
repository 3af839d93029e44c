package models

import "time"

// AppealStatistics aggregates appeal counts for the dashboard.
// Active covers every status between intake and a final verdict; Done covers
// both terminal done states.
type AppealStatistics struct {
	Total       int       `db:"total" json:"total"`
	Waiting     int       `db:"waiting" json:"waiting"`
	Active      int       `db:"active" json:"active"`
	Done        int       `db:"done" json:"done"`
	Rejected    int       `db:"rejected" json:"rejected"`
	Archived    int       `db:"archived" json:"archived"`
	GeneratedAt time.Time `json:"generated_at"`
}

// OrgAppealCount ranks organizations by appeal volume.
type OrgAppealCount struct {
	OrgID   int64  `db:"org_id" json:"org_id"`
	OrgName string `db:"org_name" json:"org_name"`
	Count   int    `db:"count" json:"count"`
}
