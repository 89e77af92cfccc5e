package treasure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/acc-community/acc/acc/database/models"
	"github.com/acc-community/acc/acc/database/repositories"
	"github.com/uptrace/bun"
)

var (
	ErrNotOwner       = errors.New("treasure offer belongs to another user")
	ErrOfferExpired   = errors.New("treasure offer is past the redemption threshold")
	ErrNotJackpot     = errors.New("treasure offer is not a jackpot win")
	ErrAlreadyClaimed = errors.New("treasure offer already claimed")
	ErrNotEligible    = errors.New("user is not eligible for treasure draws")
)

// Engine runs the bell lottery. One Engine is shared by all requests;
// the roll source is only swapped out in tests.
type Engine struct {
	treasures     repositories.TreasureRepository
	users         repositories.UserRepository
	notifications repositories.NotificationRepository

	threshold      time.Duration
	winDenominator int64
	roll           func() float64
}

type EngineOption func(*Engine)

// WithRoll replaces the uniform roll source.
func WithRoll(roll func() float64) EngineOption {
	return func(e *Engine) {
		e.roll = roll
	}
}

func NewEngine(
	treasures repositories.TreasureRepository,
	users repositories.UserRepository,
	notifications repositories.NotificationRepository,
	threshold time.Duration,
	winDenominator int64,
	opts ...EngineOption,
) *Engine {
	if treasures == nil || users == nil {
		panic("treasure repositories cannot be nil")
	}
	if winDenominator <= 0 {
		winDenominator = 30
	}

	e := &Engine{
		treasures:      treasures,
		users:          users,
		notifications:  notifications,
		threshold:      threshold,
		winDenominator: winDenominator,
		roll:           rand.Float64,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Draw runs the lottery for one qualifying page view. Only users who
// accepted the terms of service participate; banned users never do.
// A nil offer with a nil error means no win: either the draw was
// suppressed by a fresh unredeemed offer or the roll landed outside
// the winning slice.
func (e *Engine) Draw(ctx context.Context, userID int64) (*models.TreasureOffer, error) {
	now := time.Now()
	cutoff := now.Add(-e.threshold)

	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.TOSAccepted || user.Banned() {
		return nil, ErrNotEligible
	}

	suppressed, err := e.treasures.HasUnredeemedSince(ctx, userID, cutoff)
	if err != nil {
		return nil, err
	}
	if suppressed {
		return nil, nil
	}

	// The winning slice is the top 1/n of the unit interval, so rolls
	// below (n-1)/n simply lose.
	if e.roll() < 1-1/float64(e.winDenominator) {
		return nil, nil
	}

	missed, err := e.treasures.CountMissed(ctx, userID, cutoff)
	if err != nil {
		return nil, err
	}

	var offer *models.TreasureOffer
	err = e.inTx(ctx, func(tx bun.Tx) error {
		state, err := e.treasures.GetJackpotForUpdateTx(ctx, tx)
		if err != nil {
			return err
		}

		tier := pickTier(e.roll(), buildLadder(state.Bells, missed > 0))

		offer = &models.TreasureOffer{
			UserID:    userID,
			Bells:     tier.Bells,
			Type:      tier.Type,
			OfferTime: now,
		}
		if err := e.treasures.InsertOffer(ctx, tx, offer); err != nil {
			return err
		}

		if tier.Type != models.TreasureJackpot {
			state.Bells += poolIncrement
			if err := e.treasures.UpdateJackpotTx(ctx, tx, state); err != nil {
				return err
			}
		}

		return e.treasures.RecomputeTopBellTx(ctx, tx, userID, cutoff)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Treasure won",
		slog.Int64("user_id", userID),
		slog.Int64("bells", offer.Bells),
		slog.String("tier", string(offer.Type)))
	e.notify(ctx, userID, offer.ID, models.NotificationTreasureFound)
	return offer, nil
}

// Redeem claims a drawn offer for its owner and credits the bells.
// Offers past the threshold are gone for good.
func (e *Engine) Redeem(ctx context.Context, userID, offerID int64) (*models.TreasureOffer, error) {
	now := time.Now()

	offer, err := e.treasures.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.UserID != userID {
		return nil, ErrNotOwner
	}
	if offer.RedeemedUserID != nil {
		return nil, ErrAlreadyClaimed
	}
	if offer.Missed(e.threshold, now) {
		return nil, ErrOfferExpired
	}
	if offer.Type == models.TreasureJackpot {
		// Jackpot wins go through ClaimJackpot so the pool is drained
		// under the same lock.
		return nil, ErrNotJackpot
	}

	err = e.inTx(ctx, func(tx bun.Tx) error {
		redeemed, err := e.treasures.RedeemTx(ctx, tx, offerID, userID)
		if err != nil {
			return err
		}
		offer = redeemed

		if offer.Bells > 0 {
			if err := e.users.AddBells(ctx, tx, userID, offer.Bells); err != nil {
				return err
			}
		}
		return e.treasures.RecomputeTopBellTx(ctx, tx, userID, now.Add(-e.threshold))
	})
	if err != nil {
		return nil, err
	}
	return offer, nil
}

// ClaimJackpot redeems a drawn jackpot offer, moving the whole pool to
// the claimant. The pool row is locked first, so a racing second claim
// drains an already emptied pool.
func (e *Engine) ClaimJackpot(ctx context.Context, userID, offerID int64) (*models.TreasureOffer, error) {
	now := time.Now()
	cutoff := now.Add(-e.threshold)

	offer, err := e.treasures.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.UserID != userID {
		return nil, ErrNotOwner
	}
	if offer.Type != models.TreasureJackpot {
		return nil, ErrNotJackpot
	}
	if offer.RedeemedUserID != nil {
		return nil, ErrAlreadyClaimed
	}
	if offer.Missed(e.threshold, now) {
		return nil, ErrOfferExpired
	}

	var amount int64
	err = e.inTx(ctx, func(tx bun.Tx) error {
		state, err := e.treasures.GetJackpotForUpdateTx(ctx, tx)
		if err != nil {
			return err
		}
		amount = state.Bells

		if _, err := e.treasures.RedeemTx(ctx, tx, offerID, userID); err != nil {
			return err
		}
		if err := e.treasures.SetBellsTx(ctx, tx, offerID, amount); err != nil {
			return err
		}
		if amount > 0 {
			if err := e.users.AddBells(ctx, tx, userID, amount); err != nil {
				return err
			}
		}

		// Everything older than the threshold is now permanently missed.
		if _, err := e.treasures.MarkMissedBeforeTx(ctx, tx, cutoff); err != nil {
			return err
		}

		state.Bells = 0
		state.LastWinnerID = &userID
		state.LastAmount = amount
		state.LastClaimed = &now
		if err := e.treasures.UpdateJackpotTx(ctx, tx, state); err != nil {
			return err
		}

		return e.treasures.RecomputeTopBellTx(ctx, tx, userID, cutoff)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Jackpot claimed",
		slog.Int64("user_id", userID),
		slog.Int64("bells", amount))
	e.notify(ctx, userID, offerID, models.NotificationJackpotClaimed)

	offer.Bells = amount
	offer.RedeemedUserID = &userID
	return offer, nil
}

// AddOffer inserts a pre-redeemed grant. Test tooling; callers gate it
// to non-production environments.
func (e *Engine) AddOffer(ctx context.Context, userID, bells int64) (*models.TreasureOffer, error) {
	offer := &models.TreasureOffer{
		UserID:         userID,
		Bells:          bells,
		Type:           models.TreasureAmount,
		OfferTime:      time.Now(),
		RedeemedUserID: &userID,
	}

	err := e.inTx(ctx, func(tx bun.Tx) error {
		if err := e.treasures.InsertOffer(ctx, tx, offer); err != nil {
			return err
		}
		if bells > 0 {
			if err := e.users.AddBells(ctx, tx, userID, bells); err != nil {
				return err
			}
		}
		return e.treasures.RecomputeTopBellTx(ctx, tx, userID, time.Now().Add(-e.threshold))
	})
	if err != nil {
		return nil, err
	}
	return offer, nil
}

// RemoveOffer deletes a grant outright. Test tooling, like AddOffer.
func (e *Engine) RemoveOffer(ctx context.Context, offerID int64) error {
	offer, err := e.treasures.GetByID(ctx, offerID)
	if err != nil {
		return err
	}

	return e.inTx(ctx, func(tx bun.Tx) error {
		if err := e.treasures.DeleteOfferTx(ctx, tx, offerID); err != nil {
			return err
		}
		return e.treasures.RecomputeTopBellTx(ctx, tx, offer.UserID, time.Now().Add(-e.threshold))
	})
}

// Jackpot returns the current pool and last-claim snapshot.
func (e *Engine) Jackpot(ctx context.Context) (*models.JackpotState, error) {
	return e.treasures.GetJackpot(ctx)
}

func (e *Engine) inTx(ctx context.Context, fn func(tx bun.Tx) error) error {
	tx, err := e.treasures.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (e *Engine) notify(ctx context.Context, userID, entityID int64, notificationType models.NotificationType) {
	if e.notifications == nil {
		return
	}

	notification := &models.Notification{
		UserID:   userID,
		Type:     notificationType,
		EntityID: entityID,
	}
	if err := e.notifications.Create(ctx, notification); err != nil {
		slog.Error("Failed to create treasure notification",
			slog.String("type", "error"),
			slog.Int64("user_id", userID),
			slog.Any("error", err))
	}
}
