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
	"golang.org/x/crypto/bcrypt"

	"github.com/qongirat/appeals-api/internal/models"
	"github.com/qongirat/appeals-api/internal/service"
)

type authRepoStub struct {
	users  map[string]*models.User
	tokens map[string]*models.RefreshToken
}

func newAuthRepoStub() *authRepoStub {
	return &authRepoStub{
		users:  make(map[string]*models.User),
		tokens: make(map[string]*models.RefreshToken),
	}
}

func (s *authRepoStub) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	user, ok := s.users[username]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (s *authRepoStub) FindByID(ctx context.Context, id int64) (*models.User, error) {
	for _, user := range s.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) RevokeUserRefreshTokens(ctx context.Context, userID int64) error {
	return nil
}

func (s *authRepoStub) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	s.tokens[token.Token] = token
	return nil
}

func (s *authRepoStub) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	stored, ok := s.tokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return stored, nil
}

func (s *authRepoStub) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range s.tokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

func newAuthTestHandler(t *testing.T) (*AuthHandler, *authRepoStub) {
	t.Helper()
	repo := newAuthRepoStub()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	orgID := int64(4)
	repo.users["dilshod"] = &models.User{
		ID:           11,
		FullName:     "Dilshod Rahimov",
		Username:     "dilshod",
		PasswordHash: string(hash),
		Role:         models.RoleUser,
		Active:       true,
		OrgID:        &orgID,
	}
	svc := service.NewAuthService(repo, validator.New(), zap.NewNop(), service.AuthConfig{
		AccessTokenSecret:  "handler-test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 3 * time.Hour,
		Issuer:             "appeals-api-test",
	})
	return NewAuthHandler(svc), repo
}

func loginRequest(t *testing.T, body string) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return w, c
}

func TestAuthHandlerLoginIssuesTokens(t *testing.T) {
	handler, repo := newAuthTestHandler(t)

	w, c := loginRequest(t, `{"username":"dilshod","password":"secret123"}`)
	handler.Login(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"access_token"`)
	assert.Contains(t, w.Body.String(), `"refresh_token"`)
	assert.Len(t, repo.tokens, 1)
}

func TestAuthHandlerLoginWrongPassword(t *testing.T) {
	handler, repo := newAuthTestHandler(t)

	w, c := loginRequest(t, `{"username":"dilshod","password":"nope"}`)
	handler.Login(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_CREDENTIALS")
	assert.Empty(t, repo.tokens)
}

func TestAuthHandlerLoginInvalidBody(t *testing.T) {
	handler, _ := newAuthTestHandler(t)

	w, c := loginRequest(t, `{"username":`)
	handler.Login(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}
