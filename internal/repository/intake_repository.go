package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/qongirat/appeals-api/internal/models"
)

// IntakeRepository persists bot-submitted users and appeals.
type IntakeRepository struct {
	db *sqlx.DB
}

// NewIntakeRepository constructs the repository.
func NewIntakeRepository(db *sqlx.DB) *IntakeRepository {
	return &IntakeRepository{db: db}
}

// FindUserByChatID returns a registered citizen by chat identifier.
func (r *IntakeRepository) FindUserByChatID(ctx context.Context, chatID int64) (*models.IntakeUser, error) {
	const query = `SELECT id, chat_id, phone, created_at FROM intake_users WHERE chat_id = $1 LIMIT 1`
	var user models.IntakeUser
	if err := r.db.GetContext(ctx, &user, query, chatID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find intake user by chat id: %w", err)
	}
	return &user, nil
}

// CreateUser registers a citizen and returns the generated identifier.
func (r *IntakeRepository) CreateUser(ctx context.Context, user *models.IntakeUser) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO intake_users (chat_id, phone, created_at) VALUES (:chat_id, :phone, :created_at) RETURNING id`
	stmt, err := r.db.PrepareNamedContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare create intake user: %w", err)
	}
	defer stmt.Close() //nolint:errcheck
	if err := stmt.GetContext(ctx, &user.ID, user); err != nil {
		return fmt.Errorf("create intake user: %w", err)
	}
	return nil
}

const intakeColumns = `id, chat_id, full_name, phone, document, birthday, address, mahalla, text, file_path, status, created_at`

// FindByID returns an intake appeal by identifier.
func (r *IntakeRepository) FindByID(ctx context.Context, id int64) (*models.IntakeAppeal, error) {
	query := fmt.Sprintf(`SELECT %s FROM intake_appeals WHERE id = $1 LIMIT 1`, intakeColumns)
	var intake models.IntakeAppeal
	if err := r.db.GetContext(ctx, &intake, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find intake appeal by id: %w", err)
	}
	return &intake, nil
}

// List returns intake appeals matching the filter with total count, newest first.
func (r *IntakeRepository) List(ctx context.Context, filter models.IntakeFilter) ([]models.IntakeAppeal, int, error) {
	baseQuery := `FROM intake_appeals WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.ChatID != nil {
		conditions = append(conditions, fmt.Sprintf("chat_id = $%d", len(args)+1))
		args = append(args, *filter.ChatID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(full_name) LIKE $%d OR phone LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", intakeColumns, baseQuery, pageSize, offset)

	var intakes []models.IntakeAppeal
	if err := r.db.SelectContext(ctx, &intakes, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list intake appeals: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count intake appeals: %w", err)
	}

	return intakes, total, nil
}

// Create inserts a new intake appeal and returns the generated identifier.
func (r *IntakeRepository) Create(ctx context.Context, intake *models.IntakeAppeal) error {
	if intake.CreatedAt.IsZero() {
		intake.CreatedAt = time.Now().UTC()
	}
	if intake.Status == "" {
		intake.Status = models.IntakeStatusNew
	}
	const query = `INSERT INTO intake_appeals
	(chat_id, full_name, phone, document, birthday, address, mahalla, text, file_path, status, created_at)
	VALUES (:chat_id, :full_name, :phone, :document, :birthday, :address, :mahalla, :text, :file_path, :status, :created_at)
	RETURNING id`
	stmt, err := r.db.PrepareNamedContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare create intake appeal: %w", err)
	}
	defer stmt.Close() //nolint:errcheck
	if err := stmt.GetContext(ctx, &intake.ID, intake); err != nil {
		return fmt.Errorf("create intake appeal: %w", err)
	}
	return nil
}

// UpdateStatus sets an intake status and appends a history entry in one transaction.
func (r *IntakeRepository) UpdateStatus(ctx context.Context, intakeID int64, status models.IntakeStatus, userID *int64, text *string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin intake status update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	result, err := tx.ExecContext(ctx, `UPDATE intake_appeals SET status = $2 WHERE id = $1`, intakeID, status)
	if err != nil {
		return fmt.Errorf("update intake status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check intake update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	history := models.IntakeHistory{
		IntakeID:  intakeID,
		Status:    status,
		UserID:    userID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	const historyQuery = `INSERT INTO intake_history (intake_id, status, user_id, text, created_at)
	VALUES (:intake_id, :status, :user_id, :text, :created_at)`
	if _, err := tx.NamedExecContext(ctx, historyQuery, history); err != nil {
		return fmt.Errorf("insert intake history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit intake status update: %w", err)
	}
	return nil
}

// ListHistory returns the history of an intake appeal, newest first.
func (r *IntakeRepository) ListHistory(ctx context.Context, intakeID int64) ([]models.IntakeHistory, error) {
	const query = `SELECT id, intake_id, status, user_id, text, created_at FROM intake_history WHERE intake_id = $1 ORDER BY created_at DESC`
	var entries []models.IntakeHistory
	if err := r.db.SelectContext(ctx, &entries, query, intakeID); err != nil {
		return nil, fmt.Errorf("list intake history: %w", err)
	}
	return entries, nil
}
