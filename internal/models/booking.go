package models

import (
	"time"

	"github.com/uptrace/bun"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// ValidBookingStatus reports whether s is one of the accepted booking states.
func ValidBookingStatus(s BookingStatus) bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted:
		return true
	}
	return false
}

type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	ID              string        `bun:"id,pk" json:"id"`
	UserID          string        `bun:"user_id,notnull" json:"user_id"`
	ApartmentID     string        `bun:"apartment_id,notnull" json:"apartment_id"`
	OwnerID         string        `bun:"owner_id,notnull" json:"owner_id"`
	MoveInDate      time.Time     `bun:"move_in_date,notnull" json:"move_in_date"`
	MoveOutDate     time.Time     `bun:"move_out_date,nullzero" json:"move_out_date,omitempty"`
	TotalAmount     float64       `bun:"total_amount,notnull" json:"total_amount"`
	DepositAmount   float64       `bun:"deposit_amount,notnull" json:"deposit_amount"`
	Status          BookingStatus `bun:"status,notnull" json:"status"`
	PaymentIntentID string        `bun:"payment_intent_id,nullzero" json:"payment_intent_id,omitempty"`
	CreatedAt       time.Time     `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

type BookingRequest struct {
	ApartmentID   string    `json:"apartment_id"`
	MoveInDate    time.Time `json:"move_in_date"`
	MoveOutDate   time.Time `json:"move_out_date,omitempty"`
	TotalAmount   float64   `json:"total_amount"`
	DepositAmount float64   `json:"deposit_amount"`
}

// BookingWithDetails is the renter/owner list view: booking plus apartment
// summary fields, images and counterparty contact.
type BookingWithDetails struct {
	Booking
	ApartmentTitle   string   `json:"apartment_title"`
	ApartmentAddress string   `json:"apartment_address"`
	ApartmentCity    string   `json:"apartment_city"`
	MonthlyRent      float64  `json:"monthly_rent"`
	ApartmentImages  []string `json:"apartment_images"`

	OwnerFirstName string `json:"owner_first_name,omitempty"`
	OwnerLastName  string `json:"owner_last_name,omitempty"`
	OwnerEmail     string `json:"owner_email,omitempty"`
	OwnerPhone     string `json:"owner_phone,omitempty"`

	StudentFirstName string `json:"student_first_name,omitempty"`
	StudentLastName  string `json:"student_last_name,omitempty"`
	StudentEmail     string `json:"student_email,omitempty"`
	StudentPhone     string `json:"student_phone,omitempty"`
}
