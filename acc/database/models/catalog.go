package models

import (
	"time"

	"github.com/uptrace/bun"
)

// CatalogItem is one entry in the site-wide item catalog. The full
// catalog is an expensive aggregate read served through the cache.
type CatalogItem struct {
	bun.BaseModel `bun:"table:catalog_items,alias:ci"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Name      string    `bun:"name,notnull"`
	Category  string    `bun:"category,notnull"`
	BellPrice int64     `bun:"bell_price,notnull,default:0"`
	Tradeable bool      `bun:"tradeable,notnull,default:true"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
