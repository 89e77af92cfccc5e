package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/acc-community/acc/acc/database/models"
	"github.com/uptrace/bun"
)

var ErrTreasureOfferNotFound = errors.New("treasure offer not found")

type TreasureRepository interface {
	DB() *bun.DB
	InsertOffer(ctx context.Context, tx bun.Tx, offer *models.TreasureOffer) error
	GetByID(ctx context.Context, id int64) (*models.TreasureOffer, error)
	GetUserOffers(ctx context.Context, userID int64, limit int) ([]*models.TreasureOffer, error)

	// HasUnredeemedSince reports whether the user holds an unredeemed
	// offer newer than the cutoff; such an offer suppresses new draws.
	HasUnredeemedSince(ctx context.Context, userID int64, cutoff time.Time) (bool, error)

	// CountMissed counts offers past the cutoff with a null or
	// mismatched redeemer. Wisp eligibility requires at least one.
	CountMissed(ctx context.Context, userID int64, cutoff time.Time) (int, error)

	RedeemTx(ctx context.Context, tx bun.Tx, offerID, userID int64) (*models.TreasureOffer, error)
	SetBellsTx(ctx context.Context, tx bun.Tx, offerID, bells int64) error
	DeleteOfferTx(ctx context.Context, tx bun.Tx, offerID int64) error
	MarkMissedBeforeTx(ctx context.Context, tx bun.Tx, cutoff time.Time) (int64, error)

	GetJackpotForUpdateTx(ctx context.Context, tx bun.Tx) (*models.JackpotState, error)
	UpdateJackpotTx(ctx context.Context, tx bun.Tx, state *models.JackpotState) error
	GetJackpot(ctx context.Context) (*models.JackpotState, error)

	RecomputeTopBellTx(ctx context.Context, tx bun.Tx, userID int64, missedCutoff time.Time) error
	GetTopBells(ctx context.Context, limit int) ([]*models.TopBell, error)
	DistinctUserIDs(ctx context.Context) ([]int64, error)
}

type treasureRepository struct {
	db *bun.DB
}

func NewTreasureRepository(db *bun.DB) TreasureRepository {
	return &treasureRepository{db: db}
}

func (r *treasureRepository) DB() *bun.DB {
	return r.db
}

func (r *treasureRepository) InsertOffer(ctx context.Context, tx bun.Tx, offer *models.TreasureOffer) error {
	if offer.OfferTime.IsZero() {
		offer.OfferTime = time.Now()
	}

	_, err := tx.NewInsert().Model(offer).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert treasure offer: %w", err)
	}
	return nil
}

func (r *treasureRepository) GetByID(ctx context.Context, id int64) (*models.TreasureOffer, error) {
	offer := new(models.TreasureOffer)
	err := r.db.NewSelect().
		Model(offer).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrTreasureOfferNotFound
		}
		return nil, fmt.Errorf("failed to get treasure offer: %w", err)
	}
	return offer, nil
}

func (r *treasureRepository) GetUserOffers(ctx context.Context, userID int64, limit int) ([]*models.TreasureOffer, error) {
	var offers []*models.TreasureOffer
	err := r.db.NewSelect().
		Model(&offers).
		Where("user_id = ?", userID).
		Order("offer_time DESC").
		Limit(limit).
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to get user treasure offers: %w", err)
	}
	return offers, nil
}

func (r *treasureRepository) HasUnredeemedSince(ctx context.Context, userID int64, cutoff time.Time) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*models.TreasureOffer)(nil)).
		Where("user_id = ?", userID).
		Where("redeemed_user_id IS NULL").
		Where("offer_time > ?", cutoff).
		Exists(ctx)

	if err != nil {
		return false, fmt.Errorf("failed to check unredeemed offers: %w", err)
	}
	return exists, nil
}

func (r *treasureRepository) CountMissed(ctx context.Context, userID int64, cutoff time.Time) (int, error) {
	count, err := r.db.NewSelect().
		Model((*models.TreasureOffer)(nil)).
		Where("user_id = ?", userID).
		Where("offer_time <= ?", cutoff).
		Where("redeemed_user_id IS NULL OR redeemed_user_id != user_id").
		Count(ctx)

	if err != nil {
		return 0, fmt.Errorf("failed to count missed offers: %w", err)
	}
	return count, nil
}

func (r *treasureRepository) RedeemTx(ctx context.Context, tx bun.Tx, offerID, userID int64) (*models.TreasureOffer, error) {
	offer := new(models.TreasureOffer)
	err := tx.NewSelect().
		Model(offer).
		Where("id = ?", offerID).
		For("UPDATE").
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrTreasureOfferNotFound
		}
		return nil, fmt.Errorf("failed to lock treasure offer: %w", err)
	}

	if offer.RedeemedUserID != nil {
		return nil, fmt.Errorf("treasure offer %d already redeemed", offerID)
	}

	_, err = tx.NewUpdate().
		Model(offer).
		Set("redeemed_user_id = ?", userID).
		Where("id = ?", offerID).
		Exec(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to redeem treasure offer: %w", err)
	}

	offer.RedeemedUserID = &userID
	return offer, nil
}

func (r *treasureRepository) SetBellsTx(ctx context.Context, tx bun.Tx, offerID, bells int64) error {
	_, err := tx.NewUpdate().
		Model((*models.TreasureOffer)(nil)).
		Set("bells = ?", bells).
		Where("id = ?", offerID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to set treasure offer bells: %w", err)
	}
	return nil
}

func (r *treasureRepository) DeleteOfferTx(ctx context.Context, tx bun.Tx, offerID int64) error {
	result, err := tx.NewDelete().
		Model((*models.TreasureOffer)(nil)).
		Where("id = ?", offerID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to delete treasure offer: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrTreasureOfferNotFound
	}
	return nil
}

func (r *treasureRepository) MarkMissedBeforeTx(ctx context.Context, tx bun.Tx, cutoff time.Time) (int64, error) {
	// Nulling bells is what makes an old offer permanently unclaimable;
	// the row stays for the missed-bells aggregates.
	result, err := tx.NewUpdate().
		Model((*models.TreasureOffer)(nil)).
		Set("bells = 0").
		Where("offer_time <= ?", cutoff).
		Where("redeemed_user_id IS NULL").
		Where("type = ?", models.TreasureAmount).
		Exec(ctx)

	if err != nil {
		return 0, fmt.Errorf("failed to mark missed offers: %w", err)
	}
	return result.RowsAffected()
}

func (r *treasureRepository) GetJackpotForUpdateTx(ctx context.Context, tx bun.Tx) (*models.JackpotState, error) {
	state := new(models.JackpotState)
	err := tx.NewSelect().
		Model(state).
		Where("id = 1").
		For("UPDATE").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to lock jackpot state: %w", err)
	}
	return state, nil
}

func (r *treasureRepository) UpdateJackpotTx(ctx context.Context, tx bun.Tx, state *models.JackpotState) error {
	state.UpdatedAt = time.Now()
	_, err := tx.NewUpdate().
		Model(state).
		WherePK().
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to update jackpot state: %w", err)
	}
	return nil
}

func (r *treasureRepository) GetJackpot(ctx context.Context) (*models.JackpotState, error) {
	state := new(models.JackpotState)
	err := r.db.NewSelect().
		Model(state).
		Where("id = 1").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to get jackpot state: %w", err)
	}
	return state, nil
}

func (r *treasureRepository) RecomputeTopBellTx(ctx context.Context, tx bun.Tx, userID int64, missedCutoff time.Time) error {
	_, err := tx.NewRaw(`
		INSERT INTO top_bells (user_id, total_bells, total_offers, missed_bells, jackpots_won, updated_at)
		SELECT
			?,
			COALESCE(SUM(bells) FILTER (WHERE redeemed_user_id = user_id), 0),
			COUNT(*),
			COUNT(*) FILTER (WHERE (redeemed_user_id IS NULL OR redeemed_user_id != user_id) AND offer_time <= ?),
			COUNT(*) FILTER (WHERE type = ? AND redeemed_user_id = user_id),
			now()
		FROM treasure_offers
		WHERE user_id = ?
		ON CONFLICT (user_id) DO UPDATE SET
			total_bells = EXCLUDED.total_bells,
			total_offers = EXCLUDED.total_offers,
			missed_bells = EXCLUDED.missed_bells,
			jackpots_won = EXCLUDED.jackpots_won,
			updated_at = EXCLUDED.updated_at
	`, userID, missedCutoff, models.TreasureJackpot, userID).Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to recompute top bells: %w", err)
	}
	return nil
}

func (r *treasureRepository) DistinctUserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.NewSelect().
		Model((*models.TreasureOffer)(nil)).
		ColumnExpr("DISTINCT user_id").
		Scan(ctx, &ids)

	if err != nil {
		return nil, fmt.Errorf("failed to list treasure user ids: %w", err)
	}
	return ids, nil
}

func (r *treasureRepository) GetTopBells(ctx context.Context, limit int) ([]*models.TopBell, error) {
	var rows []*models.TopBell
	err := r.db.NewSelect().
		Model(&rows).
		Order("total_bells DESC").
		Limit(limit).
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to get top bells: %w", err)
	}
	return rows, nil
}
