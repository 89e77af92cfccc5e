// Package tradingpost implements the trading post listing/offer
// lifecycle. Every transition runs in a transaction that locks the
// listing row first, so concurrent transitions on one listing are
// serialized by the database.
package tradingpost

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/acc-community/acc/acc/database/models"
	"github.com/acc-community/acc/acc/database/repositories"
	"github.com/uptrace/bun"
)

type Manager struct {
	listings     repositories.ListingRepository
	offers       repositories.OfferRepository
	users        repositories.UserRepository
	notifier     *Notifier
	expiryWindow time.Duration
}

func NewManager(
	listings repositories.ListingRepository,
	offers repositories.OfferRepository,
	users repositories.UserRepository,
	notifier *Notifier,
	expiryWindow time.Duration,
) *Manager {
	if listings == nil || offers == nil || users == nil {
		panic("trading post repositories cannot be nil")
	}

	return &Manager{
		listings:     listings,
		offers:       offers,
		users:        users,
		notifier:     notifier,
		expiryWindow: expiryWindow,
	}
}

func (m *Manager) CreateListing(ctx context.Context, creatorID int64, title, content string) (*models.Listing, error) {
	listing := &models.Listing{
		CreatorID: creatorID,
		Title:     title,
		Content:   content,
	}
	if err := m.listings.Create(ctx, listing); err != nil {
		return nil, err
	}

	slog.Info("Listing created",
		slog.Int64("listing_id", listing.ID),
		slog.Int64("creator_id", creatorID))
	return listing, nil
}

func (m *Manager) CreateOffer(ctx context.Context, listingID, userID int64, content string) (*models.Offer, error) {
	listing, err := m.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.CreatorID == userID {
		return nil, ErrOwnOffer
	}
	if listing.Status != models.ListingOpen {
		return nil, ErrInvalidState
	}

	offer := &models.Offer{
		ListingID: listingID,
		UserID:    userID,
		Content:   content,
	}
	if err := m.offers.Create(ctx, offer); err != nil {
		return nil, err
	}

	m.notifier.Notify(ctx, listing.CreatorID, listingID, models.NotificationListingOffer)
	return offer, nil
}

// AcceptOffer puts the chosen offer into accepted, every other live
// offer on hold, and advances the listing.
func (m *Manager) AcceptOffer(ctx context.Context, actorID, offerID int64) error {
	var notifyIDs []int64
	var listingID int64

	err := m.inListingTx(ctx, offerID, func(tx bun.Tx, listing *models.Listing, offer *models.Offer, offers []*models.Offer) error {
		t, err := decideAccept(listing, offer, offers, actorID)
		if err != nil {
			return err
		}

		for _, o := range offers {
			if o.ID != offer.ID && !o.Status.Terminal() {
				notifyIDs = append(notifyIDs, o.UserID)
			}
		}
		notifyIDs = append(notifyIDs, offer.UserID)
		listingID = listing.ID

		return m.apply(ctx, tx, listing, offer, t)
	})
	if err != nil {
		return err
	}

	m.notifier.NotifyAll(ctx, notifyIDs, actorID, listingID, models.NotificationOfferAccepted)
	return nil
}

// RejectOffer rejects an offer; rejecting the accepted offer reopens
// the listing and releases held siblings back to pending.
func (m *Manager) RejectOffer(ctx context.Context, actorID, offerID int64) error {
	var offererID, listingID int64

	err := m.inListingTx(ctx, offerID, func(tx bun.Tx, listing *models.Listing, offer *models.Offer, offers []*models.Offer) error {
		t, err := decideReject(listing, offer, offers, actorID)
		if err != nil {
			return err
		}

		offererID = offer.UserID
		listingID = listing.ID
		return m.apply(ctx, tx, listing, offer, t)
	})
	if err != nil {
		return err
	}

	m.notifier.Notify(ctx, offererID, listingID, models.NotificationOfferRejected)
	return nil
}

// CancelOffer withdraws the caller's own offer.
func (m *Manager) CancelOffer(ctx context.Context, actorID, offerID int64) error {
	var creatorID, listingID int64

	err := m.inListingTx(ctx, offerID, func(tx bun.Tx, listing *models.Listing, offer *models.Offer, offers []*models.Offer) error {
		t, err := decideCancelOffer(listing, offer, actorID)
		if err != nil {
			return err
		}

		creatorID = listing.CreatorID
		listingID = listing.ID
		return m.apply(ctx, tx, listing, offer, t)
	})
	if err != nil {
		return err
	}

	m.notifier.Notify(ctx, creatorID, listingID, models.NotificationOfferCancelled)
	return nil
}

// SubmitAddress records one party's address; when both sides are in,
// the listing advances to inProgress.
func (m *Manager) SubmitAddress(ctx context.Context, actorID, listingID int64, address string) error {
	var otherParty int64

	err := m.withListing(ctx, listingID, func(tx bun.Tx, listing *models.Listing, offers []*models.Offer) error {
		accepted := acceptedOffer(offers)
		// decideAddress writes the address and any status advance onto
		// the listing; UpdateAddressTx persists both.
		if _, err := decideAddress(listing, accepted, actorID, address); err != nil {
			return err
		}

		if actorID == listing.CreatorID {
			otherParty = accepted.UserID
		} else {
			otherParty = listing.CreatorID
		}

		return m.listings.UpdateAddressTx(ctx, tx, listing)
	})
	if err != nil {
		return err
	}

	m.notifier.Notify(ctx, otherParty, listingID, models.NotificationListingAddress)
	return nil
}

// MarkCompleted records one party's completion; the listing completes
// once both the creator and the accepted offerer have marked done.
func (m *Manager) MarkCompleted(ctx context.Context, actorID, listingID int64) error {
	var otherParty int64

	err := m.withListing(ctx, listingID, func(tx bun.Tx, listing *models.Listing, offers []*models.Offer) error {
		accepted := acceptedOffer(offers)
		t, err := decideCompleted(listing, accepted, actorID)
		if err != nil {
			return err
		}

		otherParty, err = m.applyCompletion(ctx, tx, listing, accepted, t)
		if err != nil {
			return err
		}

		return m.applyListing(ctx, tx, listing, t)
	})
	if err != nil {
		return err
	}

	m.notifier.Notify(ctx, otherParty, listingID, models.NotificationListingCompleted)
	return nil
}

// MarkFailed declares the in-progress trade failed; immediately
// terminal for the listing.
func (m *Manager) MarkFailed(ctx context.Context, actorID, listingID int64) error {
	var otherParty int64

	err := m.withListing(ctx, listingID, func(tx bun.Tx, listing *models.Listing, offers []*models.Offer) error {
		accepted := acceptedOffer(offers)
		t, err := decideFailed(listing, accepted, actorID)
		if err != nil {
			return err
		}

		otherParty, err = m.applyCompletion(ctx, tx, listing, accepted, t)
		if err != nil {
			return err
		}

		return m.applyListing(ctx, tx, listing, t)
	})
	if err != nil {
		return err
	}

	m.notifier.Notify(ctx, otherParty, listingID, models.NotificationListingFailed)
	return nil
}

// CancelListing withdraws the whole listing and rejects every offer.
func (m *Manager) CancelListing(ctx context.Context, actorID, listingID int64) error {
	var notifyIDs []int64

	err := m.withListing(ctx, listingID, func(tx bun.Tx, listing *models.Listing, offers []*models.Offer) error {
		t, err := decideCancelListing(listing, actorID)
		if err != nil {
			return err
		}

		for _, o := range offers {
			if !o.Status.Terminal() {
				notifyIDs = append(notifyIDs, o.UserID)
			}
		}

		return m.applyListing(ctx, tx, listing, t)
	})
	if err != nil {
		return err
	}

	m.notifier.NotifyAll(ctx, notifyIDs, actorID, listingID, models.NotificationListingCancelled)
	return nil
}

// ExpireListing retires a listing whose creator has gone inactive.
// Callers gate this behind the expiry permission; the inactivity window
// is checked here.
func (m *Manager) ExpireListing(ctx context.Context, listingID int64) error {
	var notifyIDs []int64

	err := m.withListing(ctx, listingID, func(tx bun.Tx, listing *models.Listing, offers []*models.Offer) error {
		creator, err := m.users.GetByID(ctx, listing.CreatorID)
		if err != nil {
			return err
		}

		t, err := decideExpire(listing, creator.LastActive, time.Now(), m.expiryWindow)
		if err != nil {
			return err
		}

		notifyIDs = append(notifyIDs, listing.CreatorID)
		for _, o := range offers {
			if !o.Status.Terminal() {
				notifyIDs = append(notifyIDs, o.UserID)
			}
		}

		return m.applyListing(ctx, tx, listing, t)
	})
	if err != nil {
		return err
	}

	m.notifier.NotifyAll(ctx, notifyIDs, 0, listingID, models.NotificationListingExpired)
	return nil
}

// inListingTx resolves the offer's listing, locks it, loads the sibling
// offers, and runs fn inside the transaction.
func (m *Manager) inListingTx(ctx context.Context, offerID int64, fn func(tx bun.Tx, listing *models.Listing, offer *models.Offer, offers []*models.Offer) error) error {
	tx, err := m.listings.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	offer, err := m.offers.GetByIDTx(ctx, tx, offerID)
	if err != nil {
		return err
	}

	listing, err := m.listings.GetForUpdateTx(ctx, tx, offer.ListingID)
	if err != nil {
		return err
	}

	// Re-read the offer after the listing lock is held; a concurrent
	// transition may have moved it.
	offer, err = m.offers.GetByIDTx(ctx, tx, offerID)
	if err != nil {
		return err
	}

	offers, err := m.listings.GetOffersTx(ctx, tx, listing.ID)
	if err != nil {
		return err
	}

	if err := fn(tx, listing, offer, offers); err != nil {
		return err
	}

	return tx.Commit()
}

func (m *Manager) withListing(ctx context.Context, listingID int64, fn func(tx bun.Tx, listing *models.Listing, offers []*models.Offer) error) error {
	tx, err := m.listings.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	listing, err := m.listings.GetForUpdateTx(ctx, tx, listingID)
	if err != nil {
		return err
	}

	offers, err := m.listings.GetOffersTx(ctx, tx, listing.ID)
	if err != nil {
		return err
	}

	if err := fn(tx, listing, offers); err != nil {
		return err
	}

	return tx.Commit()
}

// apply writes a transition that targets a specific offer. The target
// moves first so the sibling bulk update cannot clobber it.
func (m *Manager) apply(ctx context.Context, tx bun.Tx, listing *models.Listing, offer *models.Offer, t transition) error {
	if t.offerStatus != "" {
		if err := m.offers.UpdateStatusTx(ctx, tx, offer.ID, t.offerStatus); err != nil {
			return err
		}
	}
	return m.applyListing(ctx, tx, listing, t)
}

// applyCompletion writes the done/failed flags the transition carries to
// whichever party acted, and reports the other party for notification.
func (m *Manager) applyCompletion(ctx context.Context, tx bun.Tx, listing *models.Listing, accepted *models.Offer, t transition) (int64, error) {
	if t.creatorSide {
		if err := m.listings.SetCreatorCompletionTx(ctx, tx, listing.ID, t.completed, t.failed); err != nil {
			return 0, err
		}
		return accepted.UserID, nil
	}
	if err := m.offers.SetCompletionTx(ctx, tx, accepted.ID, t.completed, t.failed); err != nil {
		return 0, err
	}
	return listing.CreatorID, nil
}

func (m *Manager) applyListing(ctx context.Context, tx bun.Tx, listing *models.Listing, t transition) error {
	if t.siblingsTo != "" {
		if err := m.offers.UpdateStatusWhereTx(ctx, tx, listing.ID, t.siblingsFrom, t.siblingsTo); err != nil {
			return err
		}
	}

	status := t.listingStatus
	if status == "" {
		// No status change; still bump last_updated for the feed.
		status = listing.Status
	}
	return m.listings.UpdateStatusTx(ctx, tx, listing.ID, status)
}
