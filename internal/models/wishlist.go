package models

import (
	"time"

	"github.com/uptrace/bun"
)

type WishlistItem struct {
	bun.BaseModel `bun:"table:wishlist,alias:wishlist"`

	ID          string    `bun:"id,pk" json:"id"`
	UserID      string    `bun:"user_id,notnull" json:"user_id"`
	ApartmentID string    `bun:"apartment_id,notnull" json:"apartment_id"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// WishlistEntry is the list view: the saved apartment with owner and images,
// plus when it was added.
type WishlistEntry struct {
	WishlistID string    `json:"wishlist_id"`
	AddedAt    time.Time `json:"added_at"`
	ApartmentWithDetails
}
