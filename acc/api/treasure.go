package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

var (
	treasureOfferSchema = Schema{
		{Name: "offerId", Type: FieldInt, Required: true, Min: 1, Max: 1 << 53},
	}
	treasureAddSchema = Schema{
		{Name: "userId", Type: FieldInt, Required: true, Min: 1, Max: 1 << 53},
		{Name: "bells", Type: FieldInt, Required: true, Min: 100, Max: 1_000_000},
	}
	topBellsSchema = Schema{
		{Name: "limit", Type: FieldInt, Min: 1, Max: 100},
	}
)

// Draw handles v1/treasure/draw: the qualifying-page-view lottery.
// A losing or suppressed draw returns found=false with no row written.
func (h *Handlers) Draw(c *fiber.Ctx) error {
	rc, err := h.requestContext(c)
	if err != nil {
		return err
	}

	offer, err := h.Treasure.Draw(c.UserContext(), rc.UserID)
	if err != nil {
		return err
	}
	if offer == nil {
		return c.JSON(fiber.Map{"found": false})
	}

	h.Leaderboard.Invalidate()
	return c.JSON(fiber.Map{
		"found": true,
		"offer": offer,
	})
}

// RedeemTreasure handles v1/treasure/redeem.
func (h *Handlers) RedeemTreasure(c *fiber.Ctx) error {
	rc, err := h.requestContext(c)
	if err != nil {
		return err
	}
	params, err := parseBody(c, treasureOfferSchema)
	if err != nil {
		return err
	}

	offer, err := h.Treasure.Redeem(c.UserContext(), rc.UserID, params.Int("offerId"))
	if err != nil {
		return err
	}

	h.Leaderboard.Invalidate()
	return c.JSON(offer)
}

// ClaimJackpot handles v1/treasure/jackpot/claim.
func (h *Handlers) ClaimJackpot(c *fiber.Ctx) error {
	rc, err := h.requestContext(c)
	if err != nil {
		return err
	}
	params, err := parseBody(c, treasureOfferSchema)
	if err != nil {
		return err
	}

	offer, err := h.Treasure.ClaimJackpot(c.UserContext(), rc.UserID, params.Int("offerId"))
	if err != nil {
		return err
	}

	// The claim marked stale offers missed for many users at once, so
	// every aggregate row has to be rebuilt, off the request path.
	h.Leaderboard.Invalidate()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := h.Leaderboard.RecomputeAll(ctx); err != nil {
			slog.Error("Leaderboard rebuild after jackpot claim failed",
				slog.String("type", "error"),
				slog.Any("error", err))
		}
	}()
	return c.JSON(offer)
}

// GetJackpot handles v1/treasure/jackpot: current pool plus the
// last-claim snapshot.
func (h *Handlers) GetJackpot(c *fiber.Ctx) error {
	if _, err := h.requestContext(c); err != nil {
		return err
	}

	state, err := h.Treasure.Jackpot(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(state)
}

// TopBells handles v1/treasure/top-bells.
func (h *Handlers) TopBells(c *fiber.Ctx) error {
	if _, err := h.requestContext(c); err != nil {
		return err
	}
	params, err := parseBody(c, topBellsSchema)
	if err != nil {
		return err
	}

	limit := int(params.Int("limit"))
	if limit == 0 {
		limit = 25
	}

	rows, err := h.Leaderboard.TopBells(c.UserContext(), limit)
	if err != nil {
		return err
	}
	return c.JSON(rows)
}

// AddTreasure handles v1/treasure/add. Behind the environment gate.
func (h *Handlers) AddTreasure(c *fiber.Ctx) error {
	if _, err := h.requestContext(c); err != nil {
		return err
	}
	params, err := parseBody(c, treasureAddSchema)
	if err != nil {
		return err
	}

	offer, err := h.Treasure.AddOffer(c.UserContext(), params.Int("userId"), params.Int("bells"))
	if err != nil {
		return err
	}

	h.Leaderboard.Invalidate()
	return c.Status(fiber.StatusCreated).JSON(offer)
}

// RemoveTreasure handles v1/treasure/remove. Behind the environment
// gate.
func (h *Handlers) RemoveTreasure(c *fiber.Ctx) error {
	if _, err := h.requestContext(c); err != nil {
		return err
	}
	params, err := parseBody(c, treasureOfferSchema)
	if err != nil {
		return err
	}

	if err := h.Treasure.RemoveOffer(c.UserContext(), params.Int("offerId")); err != nil {
		return err
	}

	h.Leaderboard.Invalidate()
	return c.JSON(fiber.Map{"ok": true})
}
