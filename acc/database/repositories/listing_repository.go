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

var (
	ErrListingNotFound = errors.New("listing not found")
	ErrOfferNotFound   = errors.New("offer not found")
)

type ListingRepository interface {
	DB() *bun.DB
	Create(ctx context.Context, listing *models.Listing) error
	GetByID(ctx context.Context, id int64) (*models.Listing, error)
	GetWithOffers(ctx context.Context, id int64) (*models.Listing, error)
	GetByStatus(ctx context.Context, status models.ListingStatus, offset, limit int) ([]*models.Listing, int, error)
	GetUserListings(ctx context.Context, userID int64) ([]*models.Listing, error)

	// Transaction-scoped operations used by the state machine. The
	// listing row lock serializes concurrent transitions.
	GetForUpdateTx(ctx context.Context, tx bun.Tx, id int64) (*models.Listing, error)
	GetOffersTx(ctx context.Context, tx bun.Tx, listingID int64) ([]*models.Offer, error)
	UpdateStatusTx(ctx context.Context, tx bun.Tx, id int64, status models.ListingStatus) error
	UpdateAddressTx(ctx context.Context, tx bun.Tx, listing *models.Listing) error
	SetCreatorCompletionTx(ctx context.Context, tx bun.Tx, id int64, completed, failed bool) error
}

type listingRepository struct {
	db *bun.DB
}

func NewListingRepository(db *bun.DB) ListingRepository {
	return &listingRepository{db: db}
}

func (r *listingRepository) DB() *bun.DB {
	return r.db
}

func (r *listingRepository) Create(ctx context.Context, listing *models.Listing) error {
	listing.Status = models.ListingOpen
	listing.CreatedAt = time.Now()
	listing.LastUpdated = time.Now()

	_, err := r.db.NewInsert().Model(listing).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create listing: %w", err)
	}
	return nil
}

func (r *listingRepository) GetByID(ctx context.Context, id int64) (*models.Listing, error) {
	listing := new(models.Listing)
	err := r.db.NewSelect().
		Model(listing).
		Where("l.id = ?", id).
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return listing, nil
}

func (r *listingRepository) GetWithOffers(ctx context.Context, id int64) (*models.Listing, error) {
	listing := new(models.Listing)
	err := r.db.NewSelect().
		Model(listing).
		Relation("Offers").
		Where("l.id = ?", id).
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("failed to get listing with offers: %w", err)
	}
	return listing, nil
}

func (r *listingRepository) GetByStatus(ctx context.Context, status models.ListingStatus, offset, limit int) ([]*models.Listing, int, error) {
	var listings []*models.Listing
	count, err := r.db.NewSelect().
		Model(&listings).
		Where("status = ?", status).
		Order("last_updated DESC").
		Offset(offset).
		Limit(limit).
		ScanAndCount(ctx)

	if err != nil {
		return nil, 0, fmt.Errorf("failed to get listings by status: %w", err)
	}
	return listings, count, nil
}

func (r *listingRepository) GetUserListings(ctx context.Context, userID int64) ([]*models.Listing, error) {
	var listings []*models.Listing
	err := r.db.NewSelect().
		Model(&listings).
		Where("creator_id = ?", userID).
		Order("last_updated DESC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to get user listings: %w", err)
	}
	return listings, nil
}

func (r *listingRepository) GetForUpdateTx(ctx context.Context, tx bun.Tx, id int64) (*models.Listing, error) {
	listing := new(models.Listing)
	err := tx.NewSelect().
		Model(listing).
		Where("l.id = ?", id).
		For("UPDATE").
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("failed to lock listing: %w", err)
	}
	return listing, nil
}

func (r *listingRepository) GetOffersTx(ctx context.Context, tx bun.Tx, listingID int64) ([]*models.Offer, error) {
	var offers []*models.Offer
	err := tx.NewSelect().
		Model(&offers).
		Where("listing_id = ?", listingID).
		Order("created_at ASC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to get offers: %w", err)
	}
	return offers, nil
}

func (r *listingRepository) UpdateStatusTx(ctx context.Context, tx bun.Tx, id int64, status models.ListingStatus) error {
	_, err := tx.NewUpdate().
		Model((*models.Listing)(nil)).
		Set("status = ?", status).
		Set("last_updated = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to update listing status: %w", err)
	}
	return nil
}

func (r *listingRepository) UpdateAddressTx(ctx context.Context, tx bun.Tx, listing *models.Listing) error {
	_, err := tx.NewUpdate().
		Model(listing).
		Set("creator_address = ?", listing.CreatorAddress).
		Set("offerer_address = ?", listing.OffererAddress).
		Set("status = ?", listing.Status).
		Set("last_updated = ?", time.Now()).
		Where("id = ?", listing.ID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to update listing addresses: %w", err)
	}
	return nil
}

func (r *listingRepository) SetCreatorCompletionTx(ctx context.Context, tx bun.Tx, id int64, completed, failed bool) error {
	_, err := tx.NewUpdate().
		Model((*models.Listing)(nil)).
		Set("creator_completed = ?", completed).
		Set("creator_failed = ?", failed).
		Set("last_updated = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to update creator completion: %w", err)
	}
	return nil
}
