package tradingpost

import (
	"errors"
	"time"

	"github.com/acc-community/acc/acc/database/models"
)

var (
	ErrNotCreator      = errors.New("only the listing creator may do this")
	ErrNotParticipant  = errors.New("only the creator or accepted offerer may do this")
	ErrNotOfferer      = errors.New("only the offering user may do this")
	ErrOwnOffer        = errors.New("the creator cannot offer on their own listing")
	ErrOfferAccepted   = errors.New("another offer is already accepted")
	ErrInvalidState    = errors.New("transition not legal from current state")
	ErrCreatorActive   = errors.New("listing creator is still active")
	ErrWrongListing    = errors.New("offer does not belong to listing")
)

// transition captures the row changes one state-machine operation
// produces. The manager applies it inside the transaction holding the
// listing row lock.
type transition struct {
	offerStatus    models.OfferStatus // target offer; empty = unchanged
	siblingsFrom   []models.OfferStatus
	siblingsTo     models.OfferStatus
	listingStatus  models.ListingStatus // empty = unchanged
	// completion write for the acting party. creatorSide picks the row
	// the flags land on; only MarkCompleted and MarkFailed apply them.
	creatorSide bool
	completed   bool
	failed      bool
}

func acceptedOffer(offers []*models.Offer) *models.Offer {
	for _, o := range offers {
		if o.Status == models.OfferAccepted {
			return o
		}
	}
	return nil
}

// decideAccept: creator accepts an offer on an open listing. The chosen
// offer becomes accepted, every other live offer goes on hold.
func decideAccept(listing *models.Listing, offer *models.Offer, offers []*models.Offer, actorID int64) (transition, error) {
	if offer.ListingID != listing.ID {
		return transition{}, ErrWrongListing
	}
	if actorID != listing.CreatorID {
		return transition{}, ErrNotCreator
	}
	if offer.UserID == listing.CreatorID {
		return transition{}, ErrOwnOffer
	}
	if listing.Status != models.ListingOpen {
		return transition{}, ErrInvalidState
	}
	if offer.Status != models.OfferPending {
		return transition{}, ErrInvalidState
	}
	if acceptedOffer(offers) != nil {
		return transition{}, ErrOfferAccepted
	}

	return transition{
		offerStatus:   models.OfferAccepted,
		siblingsFrom:  []models.OfferStatus{models.OfferPending, models.OfferOnHold},
		siblingsTo:    models.OfferOnHold,
		listingStatus: models.ListingOfferAccepted,
	}, nil
}

// decideReject: creator rejects an offer. Rejecting the accepted offer
// reopens the listing and releases held siblings.
func decideReject(listing *models.Listing, offer *models.Offer, offers []*models.Offer, actorID int64) (transition, error) {
	if offer.ListingID != listing.ID {
		return transition{}, ErrWrongListing
	}
	if actorID != listing.CreatorID {
		return transition{}, ErrNotCreator
	}
	if offer.UserID == listing.CreatorID {
		return transition{}, ErrOwnOffer
	}
	if offer.Status.Terminal() || listing.Status.Terminal() {
		return transition{}, ErrInvalidState
	}
	if accepted := acceptedOffer(offers); accepted != nil && accepted.ID != offer.ID {
		return transition{}, ErrOfferAccepted
	}

	t := transition{offerStatus: models.OfferRejected}
	if offer.Status == models.OfferAccepted {
		t.siblingsFrom = []models.OfferStatus{models.OfferOnHold}
		t.siblingsTo = models.OfferPending
		t.listingStatus = models.ListingOpen
	}
	return t, nil
}

// decideCancelOffer: offerer withdraws their own offer.
func decideCancelOffer(listing *models.Listing, offer *models.Offer, actorID int64) (transition, error) {
	if offer.ListingID != listing.ID {
		return transition{}, ErrWrongListing
	}
	if actorID == listing.CreatorID {
		return transition{}, ErrNotOfferer
	}
	if actorID != offer.UserID {
		return transition{}, ErrNotOfferer
	}
	if offer.Status.Terminal() || listing.Status.Terminal() {
		return transition{}, ErrInvalidState
	}

	t := transition{offerStatus: models.OfferCancelled}
	if offer.Status == models.OfferAccepted {
		t.siblingsFrom = []models.OfferStatus{models.OfferOnHold}
		t.siblingsTo = models.OfferPending
		t.listingStatus = models.ListingOpen
	}
	return t, nil
}

// decideAddress: either trade party submits their address. Once both
// sides hold non-empty address data the listing advances to inProgress.
func decideAddress(listing *models.Listing, accepted *models.Offer, actorID int64, address string) (transition, error) {
	if listing.Status != models.ListingOfferAccepted && listing.Status != models.ListingInProgress {
		return transition{}, ErrInvalidState
	}
	if accepted == nil {
		return transition{}, ErrInvalidState
	}
	if actorID != listing.CreatorID && actorID != accepted.UserID {
		return transition{}, ErrNotParticipant
	}

	if actorID == listing.CreatorID {
		listing.CreatorAddress = address
	} else {
		listing.OffererAddress = address
	}

	t := transition{}
	if listing.CreatorAddress != "" && listing.OffererAddress != "" {
		t.listingStatus = models.ListingInProgress
		listing.Status = models.ListingInProgress
	}
	return t, nil
}

// decideCompleted: each party marks their side done; the listing
// completes only when both sides have.
func decideCompleted(listing *models.Listing, accepted *models.Offer, actorID int64) (transition, error) {
	if listing.Status != models.ListingInProgress {
		return transition{}, ErrInvalidState
	}
	if accepted == nil {
		return transition{}, ErrInvalidState
	}
	if actorID != listing.CreatorID && actorID != accepted.UserID {
		return transition{}, ErrNotParticipant
	}

	creatorDone := listing.CreatorCompleted
	offererDone := accepted.Completed
	if actorID == listing.CreatorID {
		creatorDone = true
	} else {
		offererDone = true
	}

	t := transition{creatorSide: actorID == listing.CreatorID, completed: true}
	if t.creatorSide {
		t.failed = listing.CreatorFailed
	} else {
		t.failed = accepted.Failed
	}
	if creatorDone && offererDone {
		t.listingStatus = models.ListingCompleted
		t.siblingsFrom = []models.OfferStatus{models.OfferOnHold}
		t.siblingsTo = models.OfferRejected
	}
	return t, nil
}

// decideFailed: either party can declare the in-progress trade failed,
// which is immediately terminal.
func decideFailed(listing *models.Listing, accepted *models.Offer, actorID int64) (transition, error) {
	if listing.Status != models.ListingInProgress {
		return transition{}, ErrInvalidState
	}
	if accepted == nil {
		return transition{}, ErrInvalidState
	}
	if actorID != listing.CreatorID && actorID != accepted.UserID {
		return transition{}, ErrNotParticipant
	}

	t := transition{
		creatorSide:   actorID == listing.CreatorID,
		failed:        true,
		listingStatus: models.ListingFailed,
		siblingsFrom:  []models.OfferStatus{models.OfferOnHold},
		siblingsTo:    models.OfferRejected,
	}
	if t.creatorSide {
		t.completed = listing.CreatorCompleted
	} else {
		t.completed = accepted.Completed
	}
	return t, nil
}

// decideCancelListing: creator withdraws the whole listing before the
// trade is underway.
func decideCancelListing(listing *models.Listing, actorID int64) (transition, error) {
	if actorID != listing.CreatorID {
		return transition{}, ErrNotCreator
	}
	if listing.Status != models.ListingOpen && listing.Status != models.ListingOfferAccepted {
		return transition{}, ErrInvalidState
	}

	return transition{
		listingStatus: models.ListingCancelled,
		siblingsFrom:  []models.OfferStatus{models.OfferPending, models.OfferOnHold, models.OfferAccepted},
		siblingsTo:    models.OfferRejected,
	}, nil
}

// decideExpire: system sweep. Only fires when the creator has been away
// longer than the trade expiry window.
func decideExpire(listing *models.Listing, creatorLastActive time.Time, now time.Time, window time.Duration) (transition, error) {
	if listing.Status != models.ListingOpen && listing.Status != models.ListingOfferAccepted {
		return transition{}, ErrInvalidState
	}
	if now.Sub(creatorLastActive) <= window {
		return transition{}, ErrCreatorActive
	}

	return transition{
		listingStatus: models.ListingExpired,
		siblingsFrom:  []models.OfferStatus{models.OfferPending, models.OfferOnHold, models.OfferAccepted},
		siblingsTo:    models.OfferRejected,
	}, nil
}
