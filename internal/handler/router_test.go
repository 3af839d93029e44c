package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/qongirat/appeals-api/internal/models"
	"github.com/qongirat/appeals-api/internal/service"
	"github.com/qongirat/appeals-api/pkg/config"
)

func buildTestRouter(t *testing.T, store *workflowStoreStub) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := newAuthRepoStub()
	staffHash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	orgID := int64(4)
	repo.users["dilshod"] = &models.User{
		ID: 11, FullName: "Dilshod Rahimov", Username: "dilshod",
		PasswordHash: string(staffHash), Role: models.RoleUser, Active: true, OrgID: &orgID,
	}
	repo.users["b.tursunov"] = &models.User{
		ID: 21, FullName: "Bek Tursunov", Username: "b.tursunov",
		PasswordHash: string(staffHash), Role: models.RoleAdmin, Active: true,
	}

	authSvc := service.NewAuthService(repo, validator.New(), zap.NewNop(), service.AuthConfig{
		AccessTokenSecret:  "router-test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 3 * time.Hour,
		Issuer:             "appeals-api-test",
	})
	workflowSvc := service.NewWorkflowService(store, &workflowIntakeStub{}, nil, nil, validator.New(), zap.NewNop())

	rt := &Router{
		Config:         &config.Config{Env: config.EnvDevelopment, APIPrefix: "/api/v1"},
		Logger:         zap.NewNop(),
		Auth:           authSvc,
		AuthHandler:    NewAuthHandler(authSvc),
		AppealHandler:  NewAppealHandler(nil, workflowSvc, nil),
		MetricsHandler: NewMetricsHandler(nil),
	}
	return rt.Setup()
}

func loginToken(t *testing.T, router *gin.Engine, username string) string {
	t.Helper()
	payload := `{"username":"` + username + `","password":"secret123"}`
	req, err := http.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data models.LoginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotEmpty(t, envelope.Data.AccessToken)
	return envelope.Data.AccessToken
}

func TestRouterAuthorization(t *testing.T) {
	store := &workflowStoreStub{record: workflowAppeal(models.StatusInProgress, 4)}
	router := buildTestRouter(t, store)

	t.Run("health is public", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("answer requires a session", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/api/v1/appeals/7/answer",
			bytes.NewBufferString(`{"status":"confirm"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("review is authority only", func(t *testing.T) {
		token := loginToken(t, router, "dilshod")
		req, _ := http.NewRequest(http.MethodPost, "/api/v1/appeals/7/review",
			bytes.NewBufferString(`{"status":"success_done"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("staff submits an answer", func(t *testing.T) {
		token := loginToken(t, router, "dilshod")
		req, _ := http.NewRequest(http.MethodPost, "/api/v1/appeals/7/answer",
			bytes.NewBufferString(`{"status":"confirm","text":"Resolved"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		require.Len(t, store.transitions, 1)
	})

	t.Run("authority records the verdict", func(t *testing.T) {
		token := loginToken(t, router, "b.tursunov")
		req, _ := http.NewRequest(http.MethodPost, "/api/v1/appeals/7/review",
			bytes.NewBufferString(`{"status":"success_done"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	})
}
