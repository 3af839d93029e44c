package dto

import "github.com/qongirat/appeals-api/internal/models"

// CreateOrganizationRequest registers a responsible organization with its staff.
type CreateOrganizationRequest struct {
	Name     string  `json:"name" validate:"required"`
	Address  *string `json:"address"`
	StaffIDs []int64 `json:"staff_ids"`
}

// UpdateOrganizationRequest patches an organization. A non-nil StaffIDs
// replaces the whole staff assignment.
type UpdateOrganizationRequest struct {
	Name     *string  `json:"name"`
	Address  *string  `json:"address"`
	StaffIDs *[]int64 `json:"staff_ids"`
}

// OrganizationDetailResponse includes the assigned staff.
type OrganizationDetailResponse struct {
	models.Organization
	Staff []models.User `json:"staff"`
}

// CreateMahallaRequest registers a mahalla within a sector.
type CreateMahallaRequest struct {
	Name     string `json:"name" validate:"required"`
	SectorID int64  `json:"sector_id" validate:"required"`
}

// UpdateMahallaRequest patches a mahalla.
type UpdateMahallaRequest struct {
	Name     *string `json:"name"`
	SectorID *int64  `json:"sector_id"`
}

// CreateSectorRequest registers a sector.
type CreateSectorRequest struct {
	Name string `json:"name" validate:"required"`
}
