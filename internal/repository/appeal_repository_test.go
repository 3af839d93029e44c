package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/qongirat/appeals-api/internal/models"
)

func newAppealRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func appealRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "full_name", "gender", "phone", "doc_series", "doc_number", "address", "birthday",
		"file_path", "text", "status", "deadline", "viewed", "intake_id", "mahalla_id", "org_id",
		"created_at", "updated_at", "org_name", "mahalla_name",
	}).AddRow(
		int64(7), "Aman Amanov", "male", "+998900000000", nil, nil, nil, nil,
		nil, "broken pipeline", "waiting", now.Add(15*24*time.Hour), false, nil, int64(3), int64(2),
		now, now, "Water Supply Dept", "Arzu",
	)
}

func TestAppealRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newAppealRepoMock(t)
	defer cleanup()

	repo := NewAppealRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT a.id, a.full_name")).
		WithArgs(int64(7)).
		WillReturnRows(appealRows())

	appeal, err := repo.FindByID(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, int64(7), appeal.ID)
	require.Equal(t, models.StatusWaiting, appeal.Status)
	require.Equal(t, "Water Supply Dept", appeal.OrgName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppealRepositoryListStatusDoneFilter(t *testing.T) {
	db, mock, cleanup := newAppealRepoMock(t)
	defer cleanup()

	repo := NewAppealRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT a.id, a.full_name")).
		WithArgs(models.StatusSuccessDone, models.StatusTextDone).
		WillReturnRows(appealRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs(models.StatusSuccessDone, models.StatusTextDone).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.AppealFilter{Status: models.StatusFilterDone})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppealRepositoryTransitionCommitsAllWrites(t *testing.T) {
	db, mock, cleanup := newAppealRepoMock(t)
	defer cleanup()

	repo := NewAppealRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE appeals SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4")).
		WithArgs(models.StatusInProgress, sqlmock.AnyArg(), int64(7), models.StatusWaiting).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO org_answers")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO appeal_history")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	text := "taken into work"
	err := repo.Transition(context.Background(), TransitionParams{
		AppealID:       7,
		FromStatus:     models.StatusWaiting,
		StoredStatus:   models.StatusInProgress,
		RecordedStatus: models.StatusInProgress,
		UserID:         11,
		Answer:         &models.OrgAnswer{Text: &text},
		HistoryText:    &text,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppealRepositoryTransitionMirrorsIntake(t *testing.T) {
	db, mock, cleanup := newAppealRepoMock(t)
	defer cleanup()

	repo := NewAppealRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE appeals SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO authority_comments")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO appeal_history")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE intake_appeals SET status = $2 WHERE id = $1")).
		WithArgs(int64(4), models.IntakeStatusDone).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO intake_history")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	userID := int64(11)
	err := repo.Transition(context.Background(), TransitionParams{
		AppealID:       7,
		FromStatus:     models.StatusConfirm,
		StoredStatus:   models.StatusSuccessDone,
		RecordedStatus: models.StatusSuccessDone,
		UserID:         userID,
		Comment:        &models.AuthorityComment{Text: "resolved"},
		Intake:         &IntakeMirror{IntakeID: 4, Status: models.IntakeStatusDone, UserID: &userID},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppealRepositoryTransitionGuardConflict(t *testing.T) {
	db, mock, cleanup := newAppealRepoMock(t)
	defer cleanup()

	repo := NewAppealRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE appeals SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Transition(context.Background(), TransitionParams{
		AppealID:       7,
		FromStatus:     models.StatusWaiting,
		StoredStatus:   models.StatusInProgress,
		RecordedStatus: models.StatusInProgress,
		UserID:         11,
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppealRepositoryTransitionAppliesDeadline(t *testing.T) {
	db, mock, cleanup := newAppealRepoMock(t)
	defer cleanup()

	repo := NewAppealRepository(db)
	deadline := time.Now().Add(10 * 24 * time.Hour).UTC()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE appeals SET status = $1, updated_at = $2, deadline = $3 WHERE id = $4 AND status = $5")).
		WithArgs(models.StatusInProgress, sqlmock.AnyArg(), deadline, int64(7), models.StatusTimeRequest).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO appeal_history")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Transition(context.Background(), TransitionParams{
		AppealID:       7,
		FromStatus:     models.StatusTimeRequest,
		StoredStatus:   models.StatusInProgress,
		RecordedStatus: models.StatusTimeExtended,
		UserID:         11,
		Deadline:       &deadline,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
