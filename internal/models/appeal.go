package models

import "time"

// AppealStatus enumerates the appeal workflow states.
type AppealStatus string

const (
	StatusWaiting      AppealStatus = "waiting"
	StatusDecline      AppealStatus = "decline"
	StatusInProgress   AppealStatus = "in_progress"
	StatusConfirm      AppealStatus = "confirm"
	StatusRejected     AppealStatus = "rejected"
	StatusSuccessDone  AppealStatus = "success_done"
	StatusTextDone     AppealStatus = "text_done"
	StatusConfirm50    AppealStatus = "confirm_50"
	StatusSuccess50    AppealStatus = "success_50"
	StatusTimeRequest  AppealStatus = "time_request"
	StatusTimeExtended AppealStatus = "time_extended"
	StatusTimeDenied   AppealStatus = "time_denied"
	StatusArchive      AppealStatus = "archive"
)

// StatusFilterDone is a list-filter meta value matching both terminal done states.
const StatusFilterDone = "done"

// Valid returns true when the status is a supported value.
func (s AppealStatus) Valid() bool {
	switch s {
	case StatusWaiting, StatusDecline, StatusInProgress, StatusConfirm,
		StatusRejected, StatusSuccessDone, StatusTextDone, StatusConfirm50,
		StatusSuccess50, StatusTimeRequest, StatusTimeExtended, StatusTimeDenied,
		StatusArchive:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transitions are permitted from s.
func (s AppealStatus) Terminal() bool {
	return s == StatusSuccessDone || s == StatusTextDone
}

// OrgTransitions lists the targets the responsible organization may request
// for each current status. The stored status equals the requested target.
var OrgTransitions = map[AppealStatus][]AppealStatus{
	StatusWaiting:     {StatusInProgress, StatusDecline},
	StatusDecline:     {StatusInProgress},
	StatusInProgress:  {StatusTimeRequest, StatusConfirm50, StatusConfirm},
	StatusTimeRequest: {StatusConfirm50, StatusConfirm},
	StatusRejected:    {StatusConfirm, StatusConfirm50, StatusInProgress, StatusTimeRequest},
	StatusConfirm50:   {StatusConfirm},
}

// AuthorityTransitions lists the targets the review tier may request for each
// current status. Some targets are verdicts that store a different status, see
// AuthorityStoredStatus.
var AuthorityTransitions = map[AppealStatus][]AppealStatus{
	StatusWaiting:     {StatusArchive},
	StatusDecline:     {StatusArchive, StatusInProgress},
	StatusTimeRequest: {StatusTimeExtended, StatusTimeDenied},
	StatusConfirm:     {StatusSuccess50, StatusRejected, StatusSuccessDone, StatusTextDone},
	StatusConfirm50:   {StatusSuccess50, StatusRejected, StatusSuccessDone, StatusTextDone},
}

// AuthorityStoredStatus maps verdict targets onto the status actually written.
// Targets absent from this map are stored as requested.
var AuthorityStoredStatus = map[AppealStatus]AppealStatus{
	StatusSuccess50:    StatusInProgress,
	StatusTimeExtended: StatusInProgress,
	StatusTimeDenied:   StatusInProgress,
}

// TransitionAllowed is the single authorization point for workflow moves. It
// consults the tier's transition table; terminal states admit nothing.
func TransitionAllowed(role UserRole, current, target AppealStatus) bool {
	if current.Terminal() {
		return false
	}
	table := OrgTransitions
	if role.Authority() {
		table = AuthorityTransitions
	}
	for _, allowed := range table[current] {
		if allowed == target {
			return true
		}
	}
	return false
}

// StoredStatus resolves the status persisted for a requested target.
func StoredStatus(role UserRole, target AppealStatus) AppealStatus {
	if role.Authority() {
		if stored, ok := AuthorityStoredStatus[target]; ok {
			return stored
		}
	}
	return target
}

// Gender constrains the applicant gender field.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Valid returns true when the gender is a supported value.
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// Appeal represents a citizen appeal stored in the appeals table.
type Appeal struct {
	ID        int64        `db:"id" json:"id"`
	FullName  string       `db:"full_name" json:"full_name"`
	Gender    Gender       `db:"gender" json:"gender"`
	Phone     string       `db:"phone" json:"phone"`
	DocSeries *string      `db:"doc_series" json:"doc_series,omitempty"`
	DocNumber *string      `db:"doc_number" json:"doc_number,omitempty"`
	Address   *string      `db:"address" json:"address,omitempty"`
	Birthday  *time.Time   `db:"birthday" json:"birthday,omitempty"`
	FilePath  *string      `db:"file_path" json:"file_path,omitempty"`
	Text      string       `db:"text" json:"text"`
	Status    AppealStatus `db:"status" json:"status"`
	Deadline  time.Time    `db:"deadline" json:"deadline"`
	Viewed    bool         `db:"viewed" json:"viewed"`
	IntakeID  *int64       `db:"intake_id" json:"intake_id,omitempty"`
	MahallaID int64        `db:"mahalla_id" json:"mahalla_id"`
	OrgID     int64        `db:"org_id" json:"org_id"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}

// AppealRecord extends the appeal row with organization and mahalla names for listings.
type AppealRecord struct {
	Appeal
	OrgName     string `db:"org_name" json:"org_name"`
	MahallaName string `db:"mahalla_name" json:"mahalla_name"`
}

// AppealFilter defines query filters for appeal listings and exports.
// Status accepts either a concrete status or the "done" meta value.
type AppealFilter struct {
	OrgID    *int64
	Status   string
	DateFrom *time.Time
	DateTo   *time.Time
	Search   string
	Page     int
	PageSize int
}
