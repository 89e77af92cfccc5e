package models

import (
	"time"

	"github.com/uptrace/bun"
)

type NotificationType string

const (
	NotificationListingOffer     NotificationType = "listing_offer"
	NotificationOfferAccepted    NotificationType = "offer_accepted"
	NotificationOfferRejected    NotificationType = "offer_rejected"
	NotificationOfferCancelled   NotificationType = "offer_cancelled"
	NotificationListingAddress   NotificationType = "listing_address"
	NotificationListingCompleted NotificationType = "listing_completed"
	NotificationListingFailed    NotificationType = "listing_failed"
	NotificationListingCancelled NotificationType = "listing_cancelled"
	NotificationListingExpired   NotificationType = "listing_expired"
	NotificationTreasureFound    NotificationType = "treasure_found"
	NotificationJackpotClaimed   NotificationType = "jackpot_claimed"
)

// Notification is append-only; transitions insert one keyed by
// (entity id, type) and never read it back on the write path.
type Notification struct {
	bun.BaseModel `bun:"table:notifications,alias:nt"`

	ID        int64            `bun:"id,pk,autoincrement"`
	UserID    int64            `bun:"user_id,notnull"`
	Type      NotificationType `bun:"type,notnull"`
	EntityID  int64            `bun:"entity_id,notnull"`
	Read      bool             `bun:"read,notnull,default:false"`
	CreatedAt time.Time        `bun:"created_at,notnull,default:current_timestamp"`
}
