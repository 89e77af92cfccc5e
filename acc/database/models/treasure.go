package models

import (
	"time"

	"github.com/uptrace/bun"
)

type TreasureType string

const (
	TreasureAmount  TreasureType = "amount"
	TreasureJackpot TreasureType = "jackpot"
	TreasureWisp    TreasureType = "wisp"
)

// TreasureOffer is a single currency grant. Rows are never deleted;
// redemption sets RedeemedUserID, and anything older than the bell
// threshold with a null or mismatched redeemer counts as missed.
type TreasureOffer struct {
	bun.BaseModel `bun:"table:treasure_offers,alias:tr"`

	ID             int64        `bun:"id,pk,autoincrement"`
	UserID         int64        `bun:"user_id,notnull"`
	Bells          int64        `bun:"bells,notnull"`
	Type           TreasureType `bun:"type,notnull,default:'amount'"`
	OfferTime      time.Time    `bun:"offer_time,notnull,default:current_timestamp"`
	RedeemedUserID *int64       `bun:"redeemed_user_id"`
}

// Redeemed reports whether the offer was claimed by its owner.
func (t *TreasureOffer) Redeemed() bool {
	return t.RedeemedUserID != nil && *t.RedeemedUserID == t.UserID
}

// Missed reports whether the offer is past threshold without a valid
// redemption.
func (t *TreasureOffer) Missed(threshold time.Duration, now time.Time) bool {
	if t.Redeemed() {
		return false
	}
	return now.Sub(t.OfferTime) > threshold
}

// JackpotState is a single-row table holding the accumulating pool.
// Claims lock the row FOR UPDATE so a double claim drains an empty pool.
type JackpotState struct {
	bun.BaseModel `bun:"table:jackpot_state,alias:js"`

	ID    int64 `bun:"id,pk"`
	Bells int64 `bun:"bells,notnull,default:0"`

	// Snapshot of the last claim, refreshed on every claim.
	LastWinnerID *int64     `bun:"last_winner_id"`
	LastAmount   int64      `bun:"last_amount,notnull,default:0"`
	LastClaimed  *time.Time `bun:"last_claimed"`

	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// TopBell is the denormalized per-user treasure aggregate backing the
// leaderboard. Recomputed after every treasure mutation.
type TopBell struct {
	bun.BaseModel `bun:"table:top_bells,alias:tb"`

	UserID      int64     `bun:"user_id,pk"`
	TotalBells  int64     `bun:"total_bells,notnull,default:0"`
	TotalOffers int64     `bun:"total_offers,notnull,default:0"`
	MissedBells int64     `bun:"missed_bells,notnull,default:0"`
	JackpotsWon int64     `bun:"jackpots_won,notnull,default:0"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}
