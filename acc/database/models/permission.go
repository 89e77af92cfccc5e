package models

import (
	"time"

	"github.com/uptrace/bun"
)

// UserGroup may inherit from a parent group; grant resolution walks the
// closure.
type UserGroup struct {
	bun.BaseModel `bun:"table:user_groups,alias:ug"`

	ID       int64  `bun:"id,pk,autoincrement"`
	Name     string `bun:"name,notnull,unique"`
	ParentID *int64 `bun:"parent_id"`
}

// UserPermission is a direct per-user grant or revocation. TypeID
// orders specificity; higher wins among ties.
type UserPermission struct {
	bun.BaseModel `bun:"table:user_permissions,alias:up"`

	ID         int64     `bun:"id,pk,autoincrement"`
	UserID     int64     `bun:"user_id,notnull"`
	Permission string    `bun:"permission,notnull"`
	TypeID     int       `bun:"type_id,notnull,default:0"`
	Granted    bool      `bun:"granted,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

type GroupPermission struct {
	bun.BaseModel `bun:"table:group_permissions,alias:gp"`

	ID         int64     `bun:"id,pk,autoincrement"`
	GroupID    int64     `bun:"group_id,notnull"`
	Permission string    `bun:"permission,notnull"`
	TypeID     int       `bun:"type_id,notnull,default:0"`
	Granted    bool      `bun:"granted,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// UserGroupMember links users to their groups.
type UserGroupMember struct {
	bun.BaseModel `bun:"table:user_group_members,alias:ugm"`

	UserID  int64 `bun:"user_id,pk"`
	GroupID int64 `bun:"group_id,pk"`
}
