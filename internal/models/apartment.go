package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Apartment struct {
	bun.BaseModel `bun:"table:apartments"`

	ID                string    `bun:"id,pk" json:"id"`
	OwnerID           string    `bun:"owner_id,notnull" json:"owner_id"`
	Title             string    `bun:"title,notnull" json:"title"`
	Description       string    `bun:"description,nullzero" json:"description,omitempty"`
	Address           string    `bun:"address,notnull" json:"address"`
	City              string    `bun:"city,notnull" json:"city"`
	State             string    `bun:"state,notnull" json:"state"`
	ZipCode           string    `bun:"zip_code,notnull" json:"zip_code"`
	Latitude          float64   `bun:"latitude,nullzero" json:"latitude,omitempty"`
	Longitude         float64   `bun:"longitude,nullzero" json:"longitude,omitempty"`
	MonthlyRent       float64   `bun:"monthly_rent,notnull" json:"monthly_rent"`
	DepositPercentage float64   `bun:"deposit_percentage,notnull" json:"deposit_percentage"`
	MinContractMonths int       `bun:"min_contract_months,notnull" json:"min_contract_months"`
	Bedrooms          int       `bun:"bedrooms,notnull" json:"bedrooms"`
	Bathrooms         int       `bun:"bathrooms,notnull" json:"bathrooms"`
	SquareFeet        int       `bun:"square_feet,nullzero" json:"square_feet,omitempty"`
	AvailableFrom     time.Time `bun:"available_from,notnull" json:"available_from"`
	Amenities         []string  `bun:"amenities,array" json:"amenities"`
	IsAvailable       bool      `bun:"is_available" json:"is_available"`
	CreatedAt         time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

type ApartmentImage struct {
	bun.BaseModel `bun:"table:apartment_images"`

	ID          string    `bun:"id,pk" json:"id"`
	ApartmentID string    `bun:"apartment_id,notnull" json:"apartment_id"`
	ImageURL    string    `bun:"image_url,notnull" json:"image_url"`
	IsPrimary   bool      `bun:"is_primary" json:"is_primary"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// ApartmentRequest is the create-listing payload.
type ApartmentRequest struct {
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	Address           string    `json:"address"`
	City              string    `json:"city"`
	State             string    `json:"state"`
	ZipCode           string    `json:"zip_code"`
	Latitude          float64   `json:"latitude"`
	Longitude         float64   `json:"longitude"`
	MonthlyRent       float64   `json:"monthly_rent"`
	DepositPercentage float64   `json:"deposit_percentage"`
	MinContractMonths int       `json:"min_contract_months"`
	Bedrooms          int       `json:"bedrooms"`
	Bathrooms         int       `json:"bathrooms"`
	SquareFeet        int       `json:"square_feet"`
	AvailableFrom     time.Time `json:"available_from"`
	Amenities         []string  `json:"amenities"`
}

// OwnerContact is the subset of owner fields exposed on listing reads.
type OwnerContact struct {
	FirstName    string `json:"owner_first_name"`
	LastName     string `json:"owner_last_name"`
	ProfileImage string `json:"owner_profile_image,omitempty"`
	Phone        string `json:"owner_phone,omitempty"`
	Email        string `json:"owner_email,omitempty"`
}

// ApartmentWithDetails is the list/detail view: apartment plus owner contact
// fields and aggregated image URLs.
type ApartmentWithDetails struct {
	Apartment
	OwnerContact
	Images []string `json:"images"`
}
