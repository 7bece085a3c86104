package models

import (
	"time"

	"github.com/uptrace/bun"
)

type UserType string

const (
	UserTypeStudent UserType = "student"
	UserTypeOwner   UserType = "owner"
	UserTypeAdmin   UserType = "admin"
)

type User struct {
	bun.BaseModel `bun:"table:users"`

	ID           string    `bun:"id,pk" json:"id"`
	Email        string    `bun:"email,unique,notnull" json:"email"`
	PasswordHash string    `bun:"password_hash,notnull" json:"-"`
	FirstName    string    `bun:"first_name,notnull" json:"first_name"`
	LastName     string    `bun:"last_name,notnull" json:"last_name"`
	Phone        string    `bun:"phone,nullzero" json:"phone,omitempty"`
	UserType     UserType  `bun:"user_type,notnull" json:"user_type"`
	ProfileImage string    `bun:"profile_image,nullzero" json:"profile_image,omitempty"`
	IsVerified   bool      `bun:"is_verified" json:"is_verified"`
	IsActive     bool      `bun:"is_active" json:"is_active"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}
