package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/acc-community/acc/acc/database/repositories"
	"github.com/acc-community/acc/acc/rules"
	"github.com/acc-community/acc/acc/tradingpost"
	"github.com/acc-community/acc/acc/treasure"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		wantKind       ErrorKind
		wantIdentifier string
	}{
		{"listing not found", repositories.ErrListingNotFound, KindNotFound, "listing-not-found"},
		{"offer not found", repositories.ErrOfferNotFound, KindNotFound, "offer-not-found"},
		{"user not found", repositories.ErrUserNotFound, KindNotFound, "user-not-found"},
		{"not creator", tradingpost.ErrNotCreator, KindPermission, "not-trade-participant"},
		{"own offer", tradingpost.ErrOwnOffer, KindValidation, "own-listing-offer"},
		{"offer accepted", tradingpost.ErrOfferAccepted, KindInvalidState, "offer-already-accepted"},
		{"invalid trade state", tradingpost.ErrInvalidState, KindInvalidState, "invalid-trade-state"},
		{"creator active", tradingpost.ErrCreatorActive, KindInvalidState, "creator-still-active"},
		{"treasure not owner", treasure.ErrNotOwner, KindPermission, "not-treasure-owner"},
		{"treasure expired", treasure.ErrOfferExpired, KindInvalidState, "treasure-offer-expired"},
		{"rule not current", rules.ErrNotCurrent, KindInvalidState, "invalid-rule-expire"},
		{"rule not pending", rules.ErrNotPending, KindInvalidState, "invalid-rule-restore"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate(tt.err)
			if got == nil {
				t.Fatal("translate() = nil, want user error")
			}
			if got.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", got.Kind, tt.wantKind)
			}
			if len(got.Identifiers) != 1 || got.Identifiers[0] != tt.wantIdentifier {
				t.Errorf("Identifiers = %v, want [%s]", got.Identifiers, tt.wantIdentifier)
			}
		})
	}
}

// Sentinels stay recognizable through %w wrapping.
func TestTranslateWrapped(t *testing.T) {
	wrapped := fmt.Errorf("accepting offer: %w", tradingpost.ErrOfferAccepted)
	got := translate(wrapped)
	if got == nil || got.Identifiers[0] != "offer-already-accepted" {
		t.Errorf("translate(wrapped) = %+v, want offer-already-accepted", got)
	}
}

func TestTranslateUnknownStaysInternal(t *testing.T) {
	if got := translate(errors.New("connection refused")); got != nil {
		t.Errorf("translate(unknown) = %+v, want nil", got)
	}
}

func TestUserErrorStatus(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want int
	}{
		{KindPermission, http.StatusForbidden},
		{KindNotFound, http.StatusNotFound},
		{KindInvalidState, http.StatusConflict},
		{KindValidation, http.StatusBadRequest},
		{KindEnvironment, http.StatusForbidden},
	}

	for _, tt := range tests {
		if got := NewUserError(tt.kind, "x").status(); got != tt.want {
			t.Errorf("status(%v) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}
