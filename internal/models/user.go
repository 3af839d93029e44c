package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
	RoleCEO   UserRole = "ceo"
)

// Valid returns true when the role is a supported value.
func (r UserRole) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleCEO:
		return true
	default:
		return false
	}
}

// Authority reports whether the role belongs to the city-hall review tier.
func (r UserRole) Authority() bool {
	return r == RoleAdmin || r == RoleCEO
}

// User represents an application user stored in the users table.
type User struct {
	ID           int64     `db:"id" json:"id"`
	FullName     string    `db:"full_name" json:"full_name"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Phone        string    `db:"phone" json:"phone"`
	Role         UserRole  `db:"role" json:"role"`
	Active       bool      `db:"active" json:"active"`
	OrgID        *int64    `db:"org_id" json:"org_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role     *UserRole
	OrgID    *int64
	Active   *bool
	Search   string
	Page     int
	PageSize int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// Option is a compact id/name pair used by select-list endpoints.
type Option struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}
