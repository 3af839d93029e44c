package dto

import "github.com/qongirat/appeals-api/internal/models"

// CreateUserRequest registers an application user.
type CreateUserRequest struct {
	FullName string          `json:"full_name" validate:"required"`
	Username string          `json:"username" validate:"required,min=3"`
	Password string          `json:"password" validate:"required,min=6"`
	Phone    string          `json:"phone" validate:"required"`
	Role     models.UserRole `json:"role" validate:"required"`
	OrgID    *int64          `json:"org_id"`
}

// UpdateUserRequest patches a user. A non-nil Password resets the credential.
type UpdateUserRequest struct {
	FullName *string          `json:"full_name"`
	Phone    *string          `json:"phone"`
	Role     *models.UserRole `json:"role"`
	Active   *bool            `json:"active"`
	OrgID    *int64           `json:"org_id"`
	Password *string          `json:"password"`
}
