package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID       int64  `bun:"id,pk,autoincrement"`
	Username string `bun:"username,notnull,unique"`

	// Bells balance is denormalized from redeemed treasure offers.
	Bells int64 `bun:"bells,notnull,default:0"`

	TOSAccepted bool `bun:"tos_accepted,notnull,default:false"`

	// Non-empty means the account is banned and has zero permissions.
	BanDescription string `bun:"ban_description,nullzero"`

	LastActive time.Time `bun:"last_active,notnull,default:current_timestamp"`
	Signature  string    `bun:"signature,nullzero"`
	AvatarKey  string    `bun:"avatar_key,nullzero"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Banned reports whether the user currently has a ban on record.
func (u *User) Banned() bool {
	return u.BanDescription != ""
}
