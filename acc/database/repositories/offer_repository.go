package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/acc-community/acc/acc/database/models"
	"github.com/uptrace/bun"
)

type OfferRepository interface {
	DB() *bun.DB
	Create(ctx context.Context, offer *models.Offer) error
	GetByID(ctx context.Context, id int64) (*models.Offer, error)
	GetByListingID(ctx context.Context, listingID int64) ([]*models.Offer, error)
	GetUserOffers(ctx context.Context, userID int64) ([]*models.Offer, error)

	GetByIDTx(ctx context.Context, tx bun.Tx, id int64) (*models.Offer, error)
	UpdateStatusTx(ctx context.Context, tx bun.Tx, id int64, status models.OfferStatus) error
	UpdateStatusWhereTx(ctx context.Context, tx bun.Tx, listingID int64, from []models.OfferStatus, to models.OfferStatus) error
	SetCompletionTx(ctx context.Context, tx bun.Tx, id int64, completed, failed bool) error
}

type offerRepository struct {
	db *bun.DB
}

func NewOfferRepository(db *bun.DB) OfferRepository {
	return &offerRepository{db: db}
}

func (r *offerRepository) DB() *bun.DB {
	return r.db
}

func (r *offerRepository) Create(ctx context.Context, offer *models.Offer) error {
	offer.Status = models.OfferPending
	offer.CreatedAt = time.Now()
	offer.UpdatedAt = time.Now()

	_, err := r.db.NewInsert().Model(offer).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create offer: %w", err)
	}
	return nil
}

func (r *offerRepository) GetByID(ctx context.Context, id int64) (*models.Offer, error) {
	offer := new(models.Offer)
	err := r.db.NewSelect().
		Model(offer).
		Where("o.id = ?", id).
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOfferNotFound
		}
		return nil, fmt.Errorf("failed to get offer: %w", err)
	}
	return offer, nil
}

func (r *offerRepository) GetByListingID(ctx context.Context, listingID int64) ([]*models.Offer, error) {
	var offers []*models.Offer
	err := r.db.NewSelect().
		Model(&offers).
		Where("listing_id = ?", listingID).
		Order("created_at ASC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to get listing offers: %w", err)
	}
	return offers, nil
}

func (r *offerRepository) GetUserOffers(ctx context.Context, userID int64) ([]*models.Offer, error) {
	var offers []*models.Offer
	err := r.db.NewSelect().
		Model(&offers).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to get user offers: %w", err)
	}
	return offers, nil
}

func (r *offerRepository) GetByIDTx(ctx context.Context, tx bun.Tx, id int64) (*models.Offer, error) {
	offer := new(models.Offer)
	err := tx.NewSelect().
		Model(offer).
		Where("o.id = ?", id).
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOfferNotFound
		}
		return nil, fmt.Errorf("failed to get offer: %w", err)
	}
	return offer, nil
}

func (r *offerRepository) UpdateStatusTx(ctx context.Context, tx bun.Tx, id int64, status models.OfferStatus) error {
	_, err := tx.NewUpdate().
		Model((*models.Offer)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to update offer status: %w", err)
	}
	return nil
}

func (r *offerRepository) UpdateStatusWhereTx(ctx context.Context, tx bun.Tx, listingID int64, from []models.OfferStatus, to models.OfferStatus) error {
	if len(from) == 0 {
		return nil
	}

	_, err := tx.NewUpdate().
		Model((*models.Offer)(nil)).
		Set("status = ?", to).
		Set("updated_at = ?", time.Now()).
		Where("listing_id = ?", listingID).
		Where("status IN (?)", bun.In(from)).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to bulk update offer status: %w", err)
	}
	return nil
}

func (r *offerRepository) SetCompletionTx(ctx context.Context, tx bun.Tx, id int64, completed, failed bool) error {
	_, err := tx.NewUpdate().
		Model((*models.Offer)(nil)).
		Set("completed = ?", completed).
		Set("failed = ?", failed).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to update offer completion: %w", err)
	}
	return nil
}
