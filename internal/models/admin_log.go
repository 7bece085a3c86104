package models

import (
	"time"

	"github.com/uptrace/bun"
)

type AdminLog struct {
	bun.BaseModel `bun:"table:admin_logs"`

	ID         string            `bun:"id,pk" json:"id"`
	AdminID    string            `bun:"admin_id,notnull" json:"admin_id"`
	Action     string            `bun:"action,notnull" json:"action"`
	TargetType string            `bun:"target_type,notnull" json:"target_type"`
	TargetID   string            `bun:"target_id,notnull" json:"target_id"`
	Details    map[string]string `bun:"details,type:jsonb" json:"details,omitempty"`
	CreatedAt  time.Time         `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// AdminLogWithAdmin joins the acting admin's name onto the log row.
type AdminLogWithAdmin struct {
	AdminLog
	AdminFirstName string `json:"admin_first_name,omitempty"`
	AdminLastName  string `json:"admin_last_name,omitempty"`
}
