package treasure

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/acc-community/acc/acc/database/models"
	"github.com/uptrace/bun"
)

// fakeTreasureRepo stubs just the read methods the no-win draw paths
// and redeem validation touch. Anything else reaching the database in
// these tests is a bug, so the defaults panic.
type fakeTreasureRepo struct {
	unredeemedSince bool
	missedCount     int
	offer           *models.TreasureOffer
}

func (f *fakeTreasureRepo) DB() *bun.DB { panic("unexpected DB access") }
func (f *fakeTreasureRepo) InsertOffer(context.Context, bun.Tx, *models.TreasureOffer) error {
	panic("unexpected insert")
}
func (f *fakeTreasureRepo) GetByID(_ context.Context, id int64) (*models.TreasureOffer, error) {
	if f.offer == nil || f.offer.ID != id {
		return nil, errors.New("not found")
	}
	return f.offer, nil
}
func (f *fakeTreasureRepo) GetUserOffers(context.Context, int64, int) ([]*models.TreasureOffer, error) {
	panic("unexpected read")
}
func (f *fakeTreasureRepo) HasUnredeemedSince(context.Context, int64, time.Time) (bool, error) {
	return f.unredeemedSince, nil
}
func (f *fakeTreasureRepo) CountMissed(context.Context, int64, time.Time) (int, error) {
	return f.missedCount, nil
}
func (f *fakeTreasureRepo) RedeemTx(context.Context, bun.Tx, int64, int64) (*models.TreasureOffer, error) {
	panic("unexpected redeem")
}
func (f *fakeTreasureRepo) SetBellsTx(context.Context, bun.Tx, int64, int64) error {
	panic("unexpected update")
}
func (f *fakeTreasureRepo) DeleteOfferTx(context.Context, bun.Tx, int64) error {
	panic("unexpected delete")
}
func (f *fakeTreasureRepo) MarkMissedBeforeTx(context.Context, bun.Tx, time.Time) (int64, error) {
	panic("unexpected update")
}
func (f *fakeTreasureRepo) GetJackpotForUpdateTx(context.Context, bun.Tx) (*models.JackpotState, error) {
	panic("unexpected jackpot read")
}
func (f *fakeTreasureRepo) UpdateJackpotTx(context.Context, bun.Tx, *models.JackpotState) error {
	panic("unexpected jackpot write")
}
func (f *fakeTreasureRepo) GetJackpot(context.Context) (*models.JackpotState, error) {
	panic("unexpected jackpot read")
}
func (f *fakeTreasureRepo) RecomputeTopBellTx(context.Context, bun.Tx, int64, time.Time) error {
	panic("unexpected recompute")
}
func (f *fakeTreasureRepo) GetTopBells(context.Context, int) ([]*models.TopBell, error) {
	panic("unexpected read")
}
func (f *fakeTreasureRepo) DistinctUserIDs(context.Context) ([]int64, error) {
	panic("unexpected read")
}

type fakeUserRepo struct {
	user *models.User
}

func (f *fakeUserRepo) DB() *bun.DB                                { panic("unexpected DB access") }
func (f *fakeUserRepo) Create(context.Context, *models.User) error { panic("unexpected write") }
func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	if f.user == nil || f.user.ID != id {
		return nil, errors.New("not found")
	}
	return f.user, nil
}
func (f *fakeUserRepo) GetByUsername(context.Context, string) (*models.User, error) {
	panic("unexpected read")
}
func (f *fakeUserRepo) UpdateLastActive(context.Context, int64) error { panic("unexpected write") }
func (f *fakeUserRepo) UpdateAvatarKey(context.Context, int64, string) error {
	panic("unexpected write")
}
func (f *fakeUserRepo) AddBells(context.Context, bun.Tx, int64, int64) error {
	panic("unexpected write")
}
func (f *fakeUserRepo) SetBan(context.Context, int64, string) error { panic("unexpected write") }

func newTestEngine(repo *fakeTreasureRepo, roll float64) *Engine {
	users := &fakeUserRepo{user: &models.User{ID: 7, Username: "tom", TOSAccepted: true}}
	return NewEngine(repo, users, nil, 20*time.Minute, 30,
		WithRoll(func() float64 { return roll }))
}

func TestDrawSuppressedByFreshOffer(t *testing.T) {
	repo := &fakeTreasureRepo{unredeemedSince: true}
	engine := newTestEngine(repo, 0.999)

	offer, err := engine.Draw(context.Background(), 7)
	if err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if offer != nil {
		t.Fatalf("Draw() = %+v, want nil while suppressed", offer)
	}
}

// Only users who accepted the terms of service may draw; banned users
// are out regardless. The panicking treasure repo fake proves the gate
// sits in front of the lottery entirely.
func TestDrawRequiresEligibleUser(t *testing.T) {
	tests := []struct {
		name string
		user *models.User
	}{
		{"tos not accepted", &models.User{ID: 7, Username: "tom"}},
		{"banned", &models.User{ID: 7, Username: "tom", TOSAccepted: true, BanDescription: "spam"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeTreasureRepo{}
			engine := NewEngine(repo, &fakeUserRepo{user: tt.user}, nil, 20*time.Minute, 30,
				WithRoll(func() float64 { t.Fatal("roll reached for ineligible user"); return 0 }))

			_, err := engine.Draw(context.Background(), 7)
			if !errors.Is(err, ErrNotEligible) {
				t.Errorf("Draw() error = %v, want ErrNotEligible", err)
			}
		})
	}
}

// A roll below the winning slice loses outright: no row, no error.
func TestDrawLosingRoll(t *testing.T) {
	repo := &fakeTreasureRepo{}
	engine := newTestEngine(repo, 0.5)

	offer, err := engine.Draw(context.Background(), 7)
	if err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if offer != nil {
		t.Fatalf("Draw() = %+v, want nil on losing roll", offer)
	}
}

func TestRedeemValidation(t *testing.T) {
	now := time.Now()
	userID := int64(7)

	tests := []struct {
		name    string
		offer   *models.TreasureOffer
		wantErr error
	}{
		{
			name: "owned by someone else",
			offer: &models.TreasureOffer{
				ID: 1, UserID: 8, Bells: 100,
				Type: models.TreasureAmount, OfferTime: now,
			},
			wantErr: ErrNotOwner,
		},
		{
			name: "already redeemed",
			offer: &models.TreasureOffer{
				ID: 1, UserID: userID, Bells: 100,
				Type: models.TreasureAmount, OfferTime: now,
				RedeemedUserID: &userID,
			},
			wantErr: ErrAlreadyClaimed,
		},
		{
			name: "past the threshold",
			offer: &models.TreasureOffer{
				ID: 1, UserID: userID, Bells: 100,
				Type: models.TreasureAmount, OfferTime: now.Add(-time.Hour),
			},
			wantErr: ErrOfferExpired,
		},
		{
			name: "jackpot wins use the claim path",
			offer: &models.TreasureOffer{
				ID: 1, UserID: userID,
				Type: models.TreasureJackpot, OfferTime: now,
			},
			wantErr: ErrNotJackpot,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(&fakeTreasureRepo{offer: tt.offer}, 0.999)
			_, err := engine.Redeem(context.Background(), userID, 1)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Redeem() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestClaimJackpotValidation(t *testing.T) {
	now := time.Now()
	userID := int64(7)

	amount := &models.TreasureOffer{
		ID: 1, UserID: userID, Bells: 100,
		Type: models.TreasureAmount, OfferTime: now,
	}
	engine := newTestEngine(&fakeTreasureRepo{offer: amount}, 0.999)
	if _, err := engine.ClaimJackpot(context.Background(), userID, 1); !errors.Is(err, ErrNotJackpot) {
		t.Errorf("ClaimJackpot(amount offer) error = %v, want ErrNotJackpot", err)
	}

	stale := &models.TreasureOffer{
		ID: 1, UserID: userID,
		Type: models.TreasureJackpot, OfferTime: now.Add(-time.Hour),
	}
	engine = newTestEngine(&fakeTreasureRepo{offer: stale}, 0.999)
	if _, err := engine.ClaimJackpot(context.Background(), userID, 1); !errors.Is(err, ErrOfferExpired) {
		t.Errorf("ClaimJackpot(stale offer) error = %v, want ErrOfferExpired", err)
	}
}

func TestMissedHelper(t *testing.T) {
	now := time.Now()
	threshold := 20 * time.Minute

	fresh := &models.TreasureOffer{UserID: 7, OfferTime: now}
	if fresh.Missed(threshold, now) {
		t.Error("fresh offer counted as missed")
	}

	stale := &models.TreasureOffer{UserID: 7, OfferTime: now.Add(-time.Hour)}
	if !stale.Missed(threshold, now) {
		t.Error("stale unredeemed offer not counted as missed")
	}

	other := int64(8)
	mismatched := &models.TreasureOffer{UserID: 7, OfferTime: now.Add(-time.Hour), RedeemedUserID: &other}
	if !mismatched.Missed(threshold, now) {
		t.Error("mismatched redeemer not counted as missed")
	}

	self := int64(7)
	redeemed := &models.TreasureOffer{UserID: 7, OfferTime: now.Add(-time.Hour), RedeemedUserID: &self}
	if redeemed.Missed(threshold, now) {
		t.Error("redeemed offer counted as missed")
	}
}
