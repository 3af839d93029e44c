package handler

import (
	"bytes"
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qongirat/appeals-api/internal/middleware"
	"github.com/qongirat/appeals-api/internal/models"
	"github.com/qongirat/appeals-api/internal/repository"
	"github.com/qongirat/appeals-api/internal/service"
)

type workflowStoreStub struct {
	record        *models.AppealRecord
	transitions   []repository.TransitionParams
	transitionErr error
}

func (s *workflowStoreStub) FindByID(ctx context.Context, id int64) (*models.AppealRecord, error) {
	if s.record == nil || s.record.ID != id {
		return nil, sql.ErrNoRows
	}
	record := *s.record
	return &record, nil
}

func (s *workflowStoreStub) Transition(ctx context.Context, params repository.TransitionParams) error {
	if s.transitionErr != nil {
		return s.transitionErr
	}
	s.transitions = append(s.transitions, params)
	s.record.Status = params.StoredStatus
	return nil
}

type workflowIntakeStub struct{}

func (s *workflowIntakeStub) FindByID(ctx context.Context, id int64) (*models.IntakeAppeal, error) {
	return nil, sql.ErrNoRows
}

func workflowAppeal(status models.AppealStatus, orgID int64) *models.AppealRecord {
	return &models.AppealRecord{
		Appeal: models.Appeal{
			ID:        7,
			FullName:  "Aliya Karimova",
			Gender:    models.GenderFemale,
			Phone:     "+998901234567",
			Text:      "Water outage on our street",
			Status:    status,
			Deadline:  time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
			MahallaID: 3,
			OrgID:     orgID,
		},
		OrgName:     "City Water Department",
		MahallaName: "Birlik",
	}
}

func newWorkflowHandler(store *workflowStoreStub) *AppealHandler {
	svc := service.NewWorkflowService(store, &workflowIntakeStub{}, nil, nil, validator.New(), zap.NewNop())
	return NewAppealHandler(nil, svc, nil)
}

func workflowRequest(t *testing.T, method, target, body string, claims *models.JWTClaims) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(method, target, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	c.Set(middleware.ContextUserKey, claims)
	return w, c
}

func staffClaims(orgID int64) *models.JWTClaims {
	return &models.JWTClaims{UserID: 11, Role: models.RoleUser, Username: "dilshod", OrgID: &orgID}
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: 21, Role: models.RoleAdmin, Username: "b.tursunov"}
}

func TestAppealHandlerAnswerAppliesTransition(t *testing.T) {
	store := &workflowStoreStub{record: workflowAppeal(models.StatusInProgress, 4)}
	handler := newWorkflowHandler(store)

	w, c := workflowRequest(t, http.MethodPost, "/appeals/7/answer",
		`{"status":"confirm","text":"Pipe replaced, supply restored"}`, staffClaims(4))
	handler.Answer(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"confirm"`)
	require.Len(t, store.transitions, 1)
	require.NotNil(t, store.transitions[0].Answer)
	require.NotNil(t, store.transitions[0].Answer.Text)
	assert.Equal(t, "Pipe replaced, supply restored", *store.transitions[0].Answer.Text)
}

func TestAppealHandlerAnswerInvalidBody(t *testing.T) {
	handler := newWorkflowHandler(&workflowStoreStub{record: workflowAppeal(models.StatusInProgress, 4)})

	w, c := workflowRequest(t, http.MethodPost, "/appeals/7/answer", `{"status":`, staffClaims(4))
	handler.Answer(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAppealHandlerAnswerForeignOrg(t *testing.T) {
	store := &workflowStoreStub{record: workflowAppeal(models.StatusInProgress, 4)}
	handler := newWorkflowHandler(store)

	w, c := workflowRequest(t, http.MethodPost, "/appeals/7/answer",
		`{"status":"confirm"}`, staffClaims(9))
	handler.Answer(c)

	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, store.transitions)
}

func TestAppealHandlerAnswerConcurrentConflict(t *testing.T) {
	store := &workflowStoreStub{
		record:        workflowAppeal(models.StatusInProgress, 4),
		transitionErr: sql.ErrNoRows,
	}
	handler := newWorkflowHandler(store)

	w, c := workflowRequest(t, http.MethodPost, "/appeals/7/answer",
		`{"status":"confirm"}`, staffClaims(4))
	handler.Answer(c)

	require.Equal(t, http.StatusConflict, w.Code)
}

func TestAppealHandlerReviewForbiddenForStaff(t *testing.T) {
	store := &workflowStoreStub{record: workflowAppeal(models.StatusConfirm, 4)}
	handler := newWorkflowHandler(store)

	w, c := workflowRequest(t, http.MethodPost, "/appeals/7/review",
		`{"status":"success_done"}`, staffClaims(4))
	handler.Review(c)

	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, store.transitions)
}

func TestAppealHandlerReviewRecordsVerdict(t *testing.T) {
	store := &workflowStoreStub{record: workflowAppeal(models.StatusConfirm, 4)}
	handler := newWorkflowHandler(store)

	w, c := workflowRequest(t, http.MethodPost, "/appeals/7/review",
		`{"status":"success_done","comment":"Verified on site"}`, adminClaims())
	handler.Review(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"success_done"`)
	require.Len(t, store.transitions, 1)
	require.NotNil(t, store.transitions[0].Comment)
	assert.Equal(t, "Verified on site", store.transitions[0].Comment.Text)
}

func TestAppealHandlerReviewMapsStoredStatus(t *testing.T) {
	store := &workflowStoreStub{record: workflowAppeal(models.StatusConfirm, 4)}
	handler := newWorkflowHandler(store)

	w, c := workflowRequest(t, http.MethodPost, "/appeals/7/review",
		`{"status":"success_50"}`, adminClaims())
	handler.Review(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"in_progress"`)
	require.Len(t, store.transitions, 1)
	assert.Equal(t, models.StatusSuccess50, store.transitions[0].RecordedStatus)
	assert.Equal(t, models.StatusInProgress, store.transitions[0].StoredStatus)
}
