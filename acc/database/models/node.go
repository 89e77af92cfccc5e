package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Node is a discussion thread. Rule/violation lifecycle changes append
// posts here; this is the audit trail.
type Node struct {
	bun.BaseModel `bun:"table:nodes,alias:n"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Title     string    `bun:"title,notnull"`
	CreatorID int64     `bun:"creator_id,notnull"`
	Locked    bool      `bun:"locked,notnull,default:false"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`

	Posts []*NodePost `bun:"rel:has-many,join:id=node_id"`
}

type NodePost struct {
	bun.BaseModel `bun:"table:node_posts,alias:np"`

	ID        int64     `bun:"id,pk,autoincrement"`
	NodeID    int64     `bun:"node_id,notnull"`
	UserID    int64     `bun:"user_id,notnull"`
	Content   string    `bun:"content,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
