package models

import (
	"time"

	"github.com/uptrace/bun"
)

type ListingStatus string

const (
	ListingOpen          ListingStatus = "open"
	ListingOfferAccepted ListingStatus = "offerAccepted"
	ListingInProgress    ListingStatus = "inProgress"
	ListingCompleted     ListingStatus = "completed"
	ListingFailed        ListingStatus = "failed"
	ListingCancelled     ListingStatus = "cancelled"
	ListingExpired       ListingStatus = "expired"
)

// Terminal reports whether no further transitions are legal from s.
func (s ListingStatus) Terminal() bool {
	switch s {
	case ListingCompleted, ListingFailed, ListingCancelled, ListingExpired:
		return true
	}
	return false
}

type Listing struct {
	bun.BaseModel `bun:"table:listings,alias:l"`

	ID        int64         `bun:"id,pk,autoincrement"`
	CreatorID int64         `bun:"creator_id,notnull"`
	Title     string        `bun:"title,notnull"`
	Content   string        `bun:"content"`
	Status    ListingStatus `bun:"status,notnull,default:'open'"`

	// Address exchange payloads; both non-empty advances the listing
	// to inProgress.
	CreatorAddress string `bun:"creator_address,nullzero"`
	OffererAddress string `bun:"offerer_address,nullzero"`

	// Creator's side of the completion handshake. The offerer's side
	// lives on the accepted offer row.
	CreatorCompleted bool `bun:"creator_completed,notnull,default:false"`
	CreatorFailed    bool `bun:"creator_failed,notnull,default:false"`

	LastUpdated time.Time `bun:"last_updated,notnull,default:current_timestamp"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`

	Offers []*Offer `bun:"rel:has-many,join:id=listing_id"`
}

type OfferStatus string

const (
	OfferPending   OfferStatus = "pending"
	OfferOnHold    OfferStatus = "onHold"
	OfferAccepted  OfferStatus = "accepted"
	OfferRejected  OfferStatus = "rejected"
	OfferCancelled OfferStatus = "cancelled"
)

func (s OfferStatus) Terminal() bool {
	return s == OfferRejected || s == OfferCancelled
}

type Offer struct {
	bun.BaseModel `bun:"table:offers,alias:o"`

	ID        int64       `bun:"id,pk,autoincrement"`
	ListingID int64       `bun:"listing_id,notnull"`
	UserID    int64       `bun:"user_id,notnull"`
	Content   string      `bun:"content"`
	Status    OfferStatus `bun:"status,notnull,default:'pending'"`
	Completed bool        `bun:"completed,notnull,default:false"`
	Failed    bool        `bun:"failed,notnull,default:false"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`

	Listing *Listing `bun:"rel:belongs-to,join:listing_id=id"`
}
