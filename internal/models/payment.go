package models

import (
	"time"

	"github.com/uptrace/bun"
)

type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "completed"
	PaymentRefunded  PaymentStatus = "refunded"
)

type Payment struct {
	bun.BaseModel `bun:"table:payments"`

	ID                    string        `bun:"id,pk" json:"id"`
	BookingID             string        `bun:"booking_id,notnull" json:"booking_id"`
	UserID                string        `bun:"user_id,notnull" json:"user_id"`
	Amount                float64       `bun:"amount,notnull" json:"amount"`
	PaymentMethod         string        `bun:"payment_method,notnull" json:"payment_method"`
	PaymentStatus         PaymentStatus `bun:"payment_status,notnull" json:"payment_status"`
	StripePaymentIntentID string        `bun:"stripe_payment_intent_id,nullzero" json:"stripe_payment_intent_id,omitempty"`
	CreatedAt             time.Time     `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// PaymentWithDetails is the history/detail view joined to booking and apartment.
type PaymentWithDetails struct {
	Payment
	MoveInDate       time.Time `json:"move_in_date"`
	MoveOutDate      time.Time `json:"move_out_date,omitempty"`
	ApartmentTitle   string    `json:"apartment_title"`
	ApartmentAddress string    `json:"apartment_address"`
	UserFirstName    string    `json:"user_first_name,omitempty"`
	UserLastName     string    `json:"user_last_name,omitempty"`
}

type PaymentIntentRequest struct {
	BookingID string  `json:"booking_id"`
	Amount    float64 `json:"amount"`
}

type PaymentConfirmRequest struct {
	PaymentIntentID string `json:"payment_intent_id"`
	BookingID       string `json:"booking_id"`
}
