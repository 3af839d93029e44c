package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/qongirat/appeals-api/internal/dto"
	"github.com/qongirat/appeals-api/internal/models"
	appErrors "github.com/qongirat/appeals-api/pkg/errors"
)

type userRepoStub struct {
	users        map[int64]*models.User
	nextID       int64
	revokedUsers []int64
	passwords    map[int64]string
	deleted      []int64
}

func newUserRepoStub() *userRepoStub {
	return &userRepoStub{
		users:     make(map[int64]*models.User),
		nextID:    1,
		passwords: make(map[int64]string),
	}
}

func (s *userRepoStub) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var result []models.User
	for _, user := range s.users {
		result = append(result, *user)
	}
	return result, len(result), nil
}

func (s *userRepoStub) FindByID(ctx context.Context, id int64) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (s *userRepoStub) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, user := range s.users {
		if user.Username == username {
			clone := *user
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *userRepoStub) Options(ctx context.Context) ([]models.Option, error) {
	return nil, nil
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	user.ID = s.nextID
	s.nextID++
	s.users[user.ID] = user
	return nil
}

func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	if _, ok := s.users[user.ID]; !ok {
		return sql.ErrNoRows
	}
	s.users[user.ID] = user
	return nil
}

func (s *userRepoStub) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	s.passwords[id] = passwordHash
	return nil
}

func (s *userRepoStub) Delete(ctx context.Context, id int64) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *userRepoStub) RevokeUserRefreshTokens(ctx context.Context, userID int64) error {
	s.revokedUsers = append(s.revokedUsers, userID)
	return nil
}

func seedStaff(repo *userRepoStub) *models.User {
	orgID := int64(4)
	user := &models.User{
		ID:       11,
		FullName: "Dilshod Rahimov",
		Username: "dilshod",
		Phone:    "+998901112233",
		Role:     models.RoleUser,
		Active:   true,
		OrgID:    &orgID,
	}
	repo.users[user.ID] = user
	repo.nextID = 12
	return user
}

func TestUserServiceCreateHashesPassword(t *testing.T) {
	repo := newUserRepoStub()
	svc := NewUserService(repo, nil, nil)
	orgID := int64(4)

	user, err := svc.Create(context.Background(), dto.CreateUserRequest{
		FullName: "Dilshod Rahimov",
		Username: "Dilshod",
		Password: "secret123",
		Phone:    "+998901112233",
		Role:     models.RoleUser,
		OrgID:    &orgID,
	})
	require.NoError(t, err)
	assert.Equal(t, "dilshod", user.Username, "usernames are stored lowercase")
	assert.True(t, user.Active)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret123")))
}

func TestUserServiceCreateStaffRequiresOrg(t *testing.T) {
	svc := NewUserService(newUserRepoStub(), nil, nil)

	_, err := svc.Create(context.Background(), dto.CreateUserRequest{
		FullName: "Dilshod Rahimov",
		Username: "dilshod",
		Password: "secret123",
		Phone:    "+998901112233",
		Role:     models.RoleUser,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestUserServiceCreateDuplicateUsername(t *testing.T) {
	repo := newUserRepoStub()
	seedStaff(repo)
	svc := NewUserService(repo, nil, nil)
	orgID := int64(4)

	_, err := svc.Create(context.Background(), dto.CreateUserRequest{
		FullName: "Another Person",
		Username: "DILSHOD",
		Password: "secret123",
		Phone:    "+998905556677",
		Role:     models.RoleUser,
		OrgID:    &orgID,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestUserServicePromoteToAuthorityClearsOrg(t *testing.T) {
	repo := newUserRepoStub()
	seedStaff(repo)
	svc := NewUserService(repo, nil, nil)
	admin := models.RoleAdmin

	user, err := svc.Update(context.Background(), 11, dto.UpdateUserRequest{Role: &admin})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.Nil(t, user.OrgID)
}

func TestUserServicePasswordResetRevokesSessions(t *testing.T) {
	repo := newUserRepoStub()
	seedStaff(repo)
	svc := NewUserService(repo, nil, nil)
	password := "newsecret"

	_, err := svc.Update(context.Background(), 11, dto.UpdateUserRequest{Password: &password})
	require.NoError(t, err)
	require.Contains(t, repo.passwords, int64(11))
	assert.Equal(t, []int64{11}, repo.revokedUsers)
}

func TestUserServiceDeleteRevokesSessions(t *testing.T) {
	repo := newUserRepoStub()
	seedStaff(repo)
	svc := NewUserService(repo, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), 11))
	assert.Equal(t, []int64{11}, repo.deleted)
	assert.Equal(t, []int64{11}, repo.revokedUsers)
}
