package tradingpost

import (
	"errors"
	"testing"
	"time"

	"github.com/acc-community/acc/acc/database/models"
)

const (
	creatorID = int64(1)
	offererA  = int64(2)
	offererB  = int64(3)
)

func openListing() *models.Listing {
	return &models.Listing{ID: 5, CreatorID: creatorID, Status: models.ListingOpen}
}

func pendingOffers() []*models.Offer {
	return []*models.Offer{
		{ID: 9, ListingID: 5, UserID: offererA, Status: models.OfferPending},
		{ID: 10, ListingID: 5, UserID: offererB, Status: models.OfferPending},
	}
}

func TestDecideAccept(t *testing.T) {
	tests := []struct {
		name    string
		listing *models.Listing
		offer   *models.Offer
		offers  []*models.Offer
		actorID int64
		wantErr error
	}{
		{
			name:    "creator accepts pending offer",
			listing: openListing(),
			offer:   pendingOffers()[0],
			offers:  pendingOffers(),
			actorID: creatorID,
		},
		{
			name:    "non-creator cannot accept",
			listing: openListing(),
			offer:   pendingOffers()[0],
			offers:  pendingOffers(),
			actorID: offererB,
			wantErr: ErrNotCreator,
		},
		{
			name:    "second accept is rejected",
			listing: &models.Listing{ID: 5, CreatorID: creatorID, Status: models.ListingOpen},
			offer:   &models.Offer{ID: 10, ListingID: 5, UserID: offererB, Status: models.OfferPending},
			offers: []*models.Offer{
				{ID: 9, ListingID: 5, UserID: offererA, Status: models.OfferAccepted},
				{ID: 10, ListingID: 5, UserID: offererB, Status: models.OfferPending},
			},
			actorID: creatorID,
			wantErr: ErrOfferAccepted,
		},
		{
			name:    "closed listing cannot accept",
			listing: &models.Listing{ID: 5, CreatorID: creatorID, Status: models.ListingCompleted},
			offer:   pendingOffers()[0],
			offers:  pendingOffers(),
			actorID: creatorID,
			wantErr: ErrInvalidState,
		},
		{
			name:    "offer from another listing",
			listing: openListing(),
			offer:   &models.Offer{ID: 99, ListingID: 6, UserID: offererA, Status: models.OfferPending},
			offers:  pendingOffers(),
			actorID: creatorID,
			wantErr: ErrWrongListing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decideAccept(tt.listing, tt.offer, tt.offers, tt.actorID)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("decideAccept() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}

			if got.offerStatus != models.OfferAccepted {
				t.Errorf("offer status = %v, want accepted", got.offerStatus)
			}
			if got.siblingsTo != models.OfferOnHold {
				t.Errorf("siblings go to %v, want onHold", got.siblingsTo)
			}
			if got.listingStatus != models.ListingOfferAccepted {
				t.Errorf("listing status = %v, want offerAccepted", got.listingStatus)
			}
		})
	}
}

// Accept offer #9 then reject it: listing must return to open and the
// held sibling #10 back to pending.
func TestAcceptThenRejectRestoresOpen(t *testing.T) {
	listing := openListing()
	offers := pendingOffers()

	accept, err := decideAccept(listing, offers[0], offers, creatorID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	offers[0].Status = accept.offerStatus
	offers[1].Status = accept.siblingsTo
	listing.Status = accept.listingStatus

	reject, err := decideReject(listing, offers[0], offers, creatorID)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if reject.offerStatus != models.OfferRejected {
		t.Errorf("offer #9 status = %v, want rejected", reject.offerStatus)
	}
	if reject.siblingsTo != models.OfferPending {
		t.Errorf("offer #10 goes to %v, want pending", reject.siblingsTo)
	}
	if reject.listingStatus != models.ListingOpen {
		t.Errorf("listing status = %v, want open", reject.listingStatus)
	}
}

func TestDecideRejectNonAcceptedKeepsListing(t *testing.T) {
	listing := openListing()
	offers := pendingOffers()

	got, err := decideReject(listing, offers[1], offers, creatorID)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got.offerStatus != models.OfferRejected {
		t.Errorf("offer status = %v, want rejected", got.offerStatus)
	}
	if got.listingStatus != "" {
		t.Errorf("listing status changed to %v, want unchanged", got.listingStatus)
	}
	if got.siblingsTo != "" {
		t.Errorf("siblings changed to %v, want unchanged", got.siblingsTo)
	}
}

func TestDecideCancelOffer(t *testing.T) {
	listing := openListing()
	offers := pendingOffers()

	if _, err := decideCancelOffer(listing, offers[0], offererB); !errors.Is(err, ErrNotOfferer) {
		t.Errorf("cancel by stranger: error = %v, want ErrNotOfferer", err)
	}
	if _, err := decideCancelOffer(listing, offers[0], creatorID); !errors.Is(err, ErrNotOfferer) {
		t.Errorf("cancel by creator: error = %v, want ErrNotOfferer", err)
	}

	got, err := decideCancelOffer(listing, offers[0], offererA)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.offerStatus != models.OfferCancelled {
		t.Errorf("offer status = %v, want cancelled", got.offerStatus)
	}
}

func TestDecideAddressAdvancesWhenBothSubmitted(t *testing.T) {
	listing := &models.Listing{ID: 5, CreatorID: creatorID, Status: models.ListingOfferAccepted}
	accepted := &models.Offer{ID: 9, ListingID: 5, UserID: offererA, Status: models.OfferAccepted}

	got, err := decideAddress(listing, accepted, creatorID, "1 Maple Lane")
	if err != nil {
		t.Fatalf("creator address: %v", err)
	}
	if got.listingStatus != "" {
		t.Fatalf("listing advanced after one address, status = %v", got.listingStatus)
	}
	if listing.CreatorAddress == "" {
		t.Fatal("creator address not recorded")
	}

	got, err = decideAddress(listing, accepted, offererA, "2 Oak Road")
	if err != nil {
		t.Fatalf("offerer address: %v", err)
	}
	if got.listingStatus != models.ListingInProgress {
		t.Errorf("listing status = %v, want inProgress", got.listingStatus)
	}

	if _, err := decideAddress(listing, accepted, offererB, "3 Elm Street"); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("stranger address: error = %v, want ErrNotParticipant", err)
	}
}

func TestDecideCompletedRequiresBothSides(t *testing.T) {
	listing := &models.Listing{ID: 5, CreatorID: creatorID, Status: models.ListingInProgress}
	accepted := &models.Offer{ID: 9, ListingID: 5, UserID: offererA, Status: models.OfferAccepted}

	got, err := decideCompleted(listing, accepted, creatorID)
	if err != nil {
		t.Fatalf("creator completed: %v", err)
	}
	if got.listingStatus != "" {
		t.Fatalf("listing completed after one side, status = %v", got.listingStatus)
	}
	if !got.creatorSide || !got.completed || got.failed {
		t.Errorf("creator write = (%v, %v, %v), want creator side done", got.creatorSide, got.completed, got.failed)
	}

	listing.CreatorCompleted = true
	got, err = decideCompleted(listing, accepted, offererA)
	if err != nil {
		t.Fatalf("offerer completed: %v", err)
	}
	if got.creatorSide || !got.completed {
		t.Errorf("offerer write = (%v, %v), want offer side done", got.creatorSide, got.completed)
	}
	if got.listingStatus != models.ListingCompleted {
		t.Errorf("listing status = %v, want completed", got.listingStatus)
	}
	if got.siblingsTo != models.OfferRejected {
		t.Errorf("held siblings go to %v, want rejected", got.siblingsTo)
	}
}

func TestDecideFailedIsTerminal(t *testing.T) {
	listing := &models.Listing{ID: 5, CreatorID: creatorID, Status: models.ListingInProgress}
	accepted := &models.Offer{ID: 9, ListingID: 5, UserID: offererA, Status: models.OfferAccepted}

	got, err := decideFailed(listing, accepted, offererA)
	if err != nil {
		t.Fatalf("failed: %v", err)
	}
	if got.listingStatus != models.ListingFailed {
		t.Errorf("listing status = %v, want failed", got.listingStatus)
	}
	if got.creatorSide || !got.failed {
		t.Errorf("write = (%v, %v), want offer side failed", got.creatorSide, got.failed)
	}

	if _, err := decideFailed(openListing(), accepted, creatorID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("fail from open: error = %v, want ErrInvalidState", err)
	}
}

func TestDecideCancelListing(t *testing.T) {
	got, err := decideCancelListing(openListing(), creatorID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.listingStatus != models.ListingCancelled {
		t.Errorf("listing status = %v, want cancelled", got.listingStatus)
	}

	if _, err := decideCancelListing(openListing(), offererA); !errors.Is(err, ErrNotCreator) {
		t.Errorf("cancel by offerer: error = %v, want ErrNotCreator", err)
	}

	inProgress := &models.Listing{ID: 5, CreatorID: creatorID, Status: models.ListingInProgress}
	if _, err := decideCancelListing(inProgress, creatorID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("cancel in progress: error = %v, want ErrInvalidState", err)
	}
}

func TestDecideExpire(t *testing.T) {
	now := time.Now()
	window := 30 * 24 * time.Hour

	if _, err := decideExpire(openListing(), now.Add(-time.Hour), now, window); !errors.Is(err, ErrCreatorActive) {
		t.Errorf("active creator: error = %v, want ErrCreatorActive", err)
	}

	got, err := decideExpire(openListing(), now.Add(-31*24*time.Hour), now, window)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if got.listingStatus != models.ListingExpired {
		t.Errorf("listing status = %v, want expired", got.listingStatus)
	}

	done := &models.Listing{ID: 5, CreatorID: creatorID, Status: models.ListingCompleted}
	if _, err := decideExpire(done, now.Add(-31*24*time.Hour), now, window); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expire completed: error = %v, want ErrInvalidState", err)
	}
}
