package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/qongirat/appeals-api/internal/models"
)

// AppealRepository persists appeals and their workflow records.
type AppealRepository struct {
	db *sqlx.DB
}

// NewAppealRepository constructs the repository.
func NewAppealRepository(db *sqlx.DB) *AppealRepository {
	return &AppealRepository{db: db}
}

const appealColumns = `a.id, a.full_name, a.gender, a.phone, a.doc_series, a.doc_number, a.address, a.birthday,
	a.file_path, a.text, a.status, a.deadline, a.viewed, a.intake_id, a.mahalla_id, a.org_id, a.created_at, a.updated_at`

// FindByID returns an appeal with organization and mahalla names.
func (r *AppealRepository) FindByID(ctx context.Context, id int64) (*models.AppealRecord, error) {
	query := fmt.Sprintf(`SELECT %s, o.name AS org_name, m.name AS mahalla_name
	FROM appeals a
	JOIN organizations o ON o.id = a.org_id
	JOIN mahallas m ON m.id = a.mahalla_id
	WHERE a.id = $1 LIMIT 1`, appealColumns)
	var appeal models.AppealRecord
	if err := r.db.GetContext(ctx, &appeal, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find appeal by id: %w", err)
	}
	return &appeal, nil
}

// FindByIntakeID returns the appeal promoted from the given intake record.
func (r *AppealRepository) FindByIntakeID(ctx context.Context, intakeID int64) (*models.Appeal, error) {
	query := fmt.Sprintf(`SELECT %s FROM appeals a WHERE a.intake_id = $1 LIMIT 1`, appealColumns)
	var appeal models.Appeal
	if err := r.db.GetContext(ctx, &appeal, query, intakeID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find appeal by intake id: %w", err)
	}
	return &appeal, nil
}

func buildAppealConditions(filter models.AppealFilter, args *[]interface{}) []string {
	var conditions []string

	if filter.OrgID != nil {
		*args = append(*args, *filter.OrgID)
		conditions = append(conditions, fmt.Sprintf("a.org_id = $%d", len(*args)))
	}
	switch filter.Status {
	case "":
	case models.StatusFilterDone:
		*args = append(*args, models.StatusSuccessDone, models.StatusTextDone)
		conditions = append(conditions, fmt.Sprintf("a.status IN ($%d, $%d)", len(*args)-1, len(*args)))
	default:
		*args = append(*args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", len(*args)))
	}
	if filter.DateFrom != nil {
		*args = append(*args, *filter.DateFrom)
		conditions = append(conditions, fmt.Sprintf("a.created_at >= $%d", len(*args)))
	}
	if filter.DateTo != nil {
		*args = append(*args, *filter.DateTo)
		conditions = append(conditions, fmt.Sprintf("a.created_at <= $%d", len(*args)))
	}
	if filter.Search != "" {
		if id, err := strconv.ParseInt(filter.Search, 10, 64); err == nil {
			*args = append(*args, id, "%"+strings.ToLower(filter.Search)+"%")
			conditions = append(conditions, fmt.Sprintf("(a.id = $%d OR LOWER(a.full_name) LIKE $%d)", len(*args)-1, len(*args)))
		} else {
			*args = append(*args, "%"+strings.ToLower(filter.Search)+"%")
			conditions = append(conditions, fmt.Sprintf("LOWER(a.full_name) LIKE $%d", len(*args)))
		}
	}

	return conditions
}

// List returns appeals matching the filter with total count, newest first.
func (r *AppealRepository) List(ctx context.Context, filter models.AppealFilter) ([]models.AppealRecord, int, error) {
	baseQuery := `FROM appeals a
	JOIN organizations o ON o.id = a.org_id
	JOIN mahallas m ON m.id = a.mahalla_id`
	var args []interface{}

	if conditions := buildAppealConditions(filter, &args); len(conditions) > 0 {
		baseQuery += " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf(`SELECT %s, o.name AS org_name, m.name AS mahalla_name %s
	ORDER BY a.created_at DESC LIMIT %d OFFSET %d`, appealColumns, baseQuery, pageSize, offset)

	var appeals []models.AppealRecord
	if err := r.db.SelectContext(ctx, &appeals, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list appeals: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count appeals: %w", err)
	}

	return appeals, total, nil
}

// ListAll returns every appeal matching the filter without pagination, for exports.
func (r *AppealRepository) ListAll(ctx context.Context, filter models.AppealFilter) ([]models.AppealRecord, error) {
	baseQuery := `FROM appeals a
	JOIN organizations o ON o.id = a.org_id
	JOIN mahallas m ON m.id = a.mahalla_id`
	var args []interface{}

	if conditions := buildAppealConditions(filter, &args); len(conditions) > 0 {
		baseQuery += " WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`SELECT %s, o.name AS org_name, m.name AS mahalla_name %s ORDER BY a.created_at DESC`, appealColumns, baseQuery)

	var appeals []models.AppealRecord
	if err := r.db.SelectContext(ctx, &appeals, query, args...); err != nil {
		return nil, fmt.Errorf("export appeals: %w", err)
	}
	return appeals, nil
}

// Create inserts a new appeal and returns the generated identifier.
func (r *AppealRepository) Create(ctx context.Context, appeal *models.Appeal) error {
	now := time.Now().UTC()
	if appeal.CreatedAt.IsZero() {
		appeal.CreatedAt = now
	}
	appeal.UpdatedAt = now
	if appeal.Status == "" {
		appeal.Status = models.StatusWaiting
	}
	const query = `INSERT INTO appeals
	(full_name, gender, phone, doc_series, doc_number, address, birthday, file_path, text, status, deadline, viewed, intake_id, mahalla_id, org_id, created_at, updated_at)
	VALUES (:full_name, :gender, :phone, :doc_series, :doc_number, :address, :birthday, :file_path, :text, :status, :deadline, :viewed, :intake_id, :mahalla_id, :org_id, :created_at, :updated_at)
	RETURNING id`
	stmt, err := r.db.PrepareNamedContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare create appeal: %w", err)
	}
	defer stmt.Close() //nolint:errcheck
	if err := stmt.GetContext(ctx, &appeal.ID, appeal); err != nil {
		return fmt.Errorf("create appeal: %w", err)
	}
	return nil
}

// Update persists administrative field edits. Status is never touched here.
func (r *AppealRepository) Update(ctx context.Context, appeal *models.Appeal) error {
	appeal.UpdatedAt = time.Now().UTC()
	const query = `UPDATE appeals SET full_name = :full_name, gender = :gender, phone = :phone,
	doc_series = :doc_series, doc_number = :doc_number, address = :address, birthday = :birthday,
	file_path = :file_path, text = :text, deadline = :deadline, mahalla_id = :mahalla_id,
	org_id = :org_id, updated_at = :updated_at
	WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, appeal); err != nil {
		return fmt.Errorf("update appeal: %w", err)
	}
	return nil
}

// RecordView stores a per-user view marker and flags the appeal as seen.
func (r *AppealRepository) RecordView(ctx context.Context, appealID, userID int64) error {
	const insertQuery = `INSERT INTO appeal_views (appeal_id, user_id, viewed_at) VALUES ($1, $2, $3)
	ON CONFLICT (appeal_id, user_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, insertQuery, appealID, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("record appeal view: %w", err)
	}
	const markQuery = `UPDATE appeals SET viewed = TRUE WHERE id = $1 AND viewed = FALSE`
	if _, err := r.db.ExecContext(ctx, markQuery, appealID); err != nil {
		return fmt.Errorf("mark appeal viewed: %w", err)
	}
	return nil
}

// ListViews returns the users who opened an appeal, most recent first.
func (r *AppealRepository) ListViews(ctx context.Context, appealID int64) ([]models.AppealView, error) {
	const query = `SELECT id, appeal_id, user_id, viewed_at FROM appeal_views WHERE appeal_id = $1 ORDER BY viewed_at DESC`
	var views []models.AppealView
	if err := r.db.SelectContext(ctx, &views, query, appealID); err != nil {
		return nil, fmt.Errorf("list appeal views: %w", err)
	}
	return views, nil
}

// InsertHistory appends a history entry outside of a transition transaction.
func (r *AppealRepository) InsertHistory(ctx context.Context, entry *models.AppealHistory) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO appeal_history
	(appeal_id, user_id, status, text, time_file, citizen_report, government_report, report_photo, created_at)
	VALUES (:appeal_id, :user_id, :status, :text, :time_file, :citizen_report, :government_report, :report_photo, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("insert appeal history: %w", err)
	}
	return nil
}

// ListHistory returns the history of an appeal, newest first.
func (r *AppealRepository) ListHistory(ctx context.Context, appealID int64) ([]models.AppealHistory, error) {
	const query = `SELECT id, appeal_id, user_id, status, text, time_file, citizen_report, government_report, report_photo, created_at
	FROM appeal_history WHERE appeal_id = $1 ORDER BY created_at DESC`
	var entries []models.AppealHistory
	if err := r.db.SelectContext(ctx, &entries, query, appealID); err != nil {
		return nil, fmt.Errorf("list appeal history: %w", err)
	}
	return entries, nil
}

// LatestAnswer returns the operative organization answer, if any.
func (r *AppealRepository) LatestAnswer(ctx context.Context, appealID int64) (*models.OrgAnswer, error) {
	const query = `SELECT id, appeal_id, text, time_file, citizen_report, government_report, report_photo, created_at
	FROM org_answers WHERE appeal_id = $1 ORDER BY created_at DESC LIMIT 1`
	var answer models.OrgAnswer
	if err := r.db.GetContext(ctx, &answer, query, appealID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find latest answer: %w", err)
	}
	return &answer, nil
}

// ListComments returns authority comments for an appeal, newest first.
func (r *AppealRepository) ListComments(ctx context.Context, appealID int64) ([]models.AuthorityComment, error) {
	const query = `SELECT id, appeal_id, text, created_at FROM authority_comments WHERE appeal_id = $1 ORDER BY created_at DESC`
	var comments []models.AuthorityComment
	if err := r.db.SelectContext(ctx, &comments, query, appealID); err != nil {
		return nil, fmt.Errorf("list authority comments: %w", err)
	}
	return comments, nil
}

// IntakeMirror describes the linked-intake side effect of a transition.
type IntakeMirror struct {
	IntakeID int64
	Status   models.IntakeStatus
	UserID   *int64
	Text     *string
}

// TransitionParams groups everything written by one workflow move.
// StoredStatus is what the appeals row receives; RecordedStatus is the
// requested target written into history.
type TransitionParams struct {
	AppealID       int64
	FromStatus     models.AppealStatus
	StoredStatus   models.AppealStatus
	RecordedStatus models.AppealStatus
	UserID         int64
	Deadline       *time.Time
	Answer         *models.OrgAnswer
	Comment        *models.AuthorityComment
	HistoryText    *string
	Evidence       models.EvidenceFiles
	Intake         *IntakeMirror
}

// Transition applies one workflow move atomically. The status UPDATE is
// guarded on the expected current status; when another writer got there first
// no row matches and sql.ErrNoRows is returned with nothing committed.
func (r *AppealRepository) Transition(ctx context.Context, params TransitionParams) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()

	setParts := []string{"status = $1", "updated_at = $2"}
	args := []interface{}{params.StoredStatus, now}
	if params.Deadline != nil {
		args = append(args, *params.Deadline)
		setParts = append(setParts, fmt.Sprintf("deadline = $%d", len(args)))
	}
	args = append(args, params.AppealID, params.FromStatus)
	updateQuery := fmt.Sprintf("UPDATE appeals SET %s WHERE id = $%d AND status = $%d",
		strings.Join(setParts, ", "), len(args)-1, len(args))

	result, err := tx.ExecContext(ctx, updateQuery, args...)
	if err != nil {
		return fmt.Errorf("update appeal status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check appeal update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	if params.Answer != nil {
		params.Answer.AppealID = params.AppealID
		if params.Answer.CreatedAt.IsZero() {
			params.Answer.CreatedAt = now
		}
		const answerQuery = `INSERT INTO org_answers
		(appeal_id, text, time_file, citizen_report, government_report, report_photo, created_at)
		VALUES (:appeal_id, :text, :time_file, :citizen_report, :government_report, :report_photo, :created_at)`
		if _, err := tx.NamedExecContext(ctx, answerQuery, params.Answer); err != nil {
			return fmt.Errorf("insert org answer: %w", err)
		}
	}

	if params.Comment != nil {
		params.Comment.AppealID = params.AppealID
		if params.Comment.CreatedAt.IsZero() {
			params.Comment.CreatedAt = now
		}
		const commentQuery = `INSERT INTO authority_comments (appeal_id, text, created_at) VALUES (:appeal_id, :text, :created_at)`
		if _, err := tx.NamedExecContext(ctx, commentQuery, params.Comment); err != nil {
			return fmt.Errorf("insert authority comment: %w", err)
		}
	}

	recorded := params.RecordedStatus
	history := models.AppealHistory{
		AppealID:      params.AppealID,
		UserID:        &params.UserID,
		Status:        &recorded,
		Text:          params.HistoryText,
		EvidenceFiles: params.Evidence,
		CreatedAt:     now,
	}
	const historyQuery = `INSERT INTO appeal_history
	(appeal_id, user_id, status, text, time_file, citizen_report, government_report, report_photo, created_at)
	VALUES (:appeal_id, :user_id, :status, :text, :time_file, :citizen_report, :government_report, :report_photo, :created_at)`
	if _, err := tx.NamedExecContext(ctx, historyQuery, history); err != nil {
		return fmt.Errorf("insert appeal history: %w", err)
	}

	if params.Intake != nil {
		if _, err := tx.ExecContext(ctx, `UPDATE intake_appeals SET status = $2 WHERE id = $1`,
			params.Intake.IntakeID, params.Intake.Status); err != nil {
			return fmt.Errorf("mirror intake status: %w", err)
		}
		intakeHistory := models.IntakeHistory{
			IntakeID:  params.Intake.IntakeID,
			Status:    params.Intake.Status,
			UserID:    params.Intake.UserID,
			Text:      params.Intake.Text,
			CreatedAt: now,
		}
		const intakeHistoryQuery = `INSERT INTO intake_history (intake_id, status, user_id, text, created_at)
		VALUES (:intake_id, :status, :user_id, :text, :created_at)`
		if _, err := tx.NamedExecContext(ctx, intakeHistoryQuery, intakeHistory); err != nil {
			return fmt.Errorf("insert intake history: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transition: %w", err)
	}
	return nil
}
