package models

import "time"

// Organization is a responsible body that appeals are assigned to.
type Organization struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Address   *string   `db:"address" json:"address,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// OrganizationFilter constrains organization listings.
type OrganizationFilter struct {
	Search   string
	Page     int
	PageSize int
}

// Sector groups mahallas into administrative districts.
type Sector struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Mahalla is a neighbourhood; every appeal is located in one.
type Mahalla struct {
	ID       int64  `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	SectorID int64  `db:"sector_id" json:"sector_id"`
}

// MahallaRecord extends the mahalla row with its sector name for listings.
type MahallaRecord struct {
	Mahalla
	SectorName string `db:"sector_name" json:"sector_name"`
}

// MahallaFilter constrains mahalla listings.
type MahallaFilter struct {
	SectorID *int64
	Search   string
	Page     int
	PageSize int
}
