package api

import (
	"context"

	"github.com/acc-community/acc/acc/database/models"
	"github.com/gofiber/fiber/v2"
)

var (
	createListingSchema = Schema{
		{Name: "title", Type: FieldString, Required: true, MinLen: 1, MaxLen: 120},
		{Name: "content", Type: FieldString, Required: true, MinLen: 1, MaxLen: 4000},
	}
	createOfferSchema = Schema{
		{Name: "listingId", Type: FieldInt, Required: true, Min: 1, Max: 1 << 53},
		{Name: "content", Type: FieldString, Required: true, MinLen: 1, MaxLen: 4000},
	}
	offerActionSchema = Schema{
		{Name: "offerId", Type: FieldInt, Required: true, Min: 1, Max: 1 << 53},
	}
	listingActionSchema = Schema{
		{Name: "listingId", Type: FieldInt, Required: true, Min: 1, Max: 1 << 53},
	}
	addressSchema = Schema{
		{Name: "listingId", Type: FieldInt, Required: true, Min: 1, Max: 1 << 53},
		{Name: "address", Type: FieldString, Required: true, MinLen: 1, MaxLen: 500},
	}
	listListingsSchema = Schema{
		{Name: "status", Type: FieldString, Enum: []string{
			"open", "offerAccepted", "inProgress", "completed", "failed", "cancelled", "expired",
		}},
		{Name: "offset", Type: FieldInt, Min: 0, Max: 1 << 31},
		{Name: "limit", Type: FieldInt, Min: 1, Max: 100},
	}
)

// CreateListing handles v1/trading-post/listing/create.
func (h *Handlers) CreateListing(c *fiber.Ctx) error {
	rc, err := h.requestContext(c)
	if err != nil {
		return err
	}
	params, err := parseBody(c, createListingSchema)
	if err != nil {
		return err
	}

	listing, err := h.Trading.CreateListing(c.UserContext(), rc.UserID, params.String("title"), params.String("content"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(listing)
}

// CreateOffer handles v1/trading-post/offer/create.
func (h *Handlers) CreateOffer(c *fiber.Ctx) error {
	rc, err := h.requestContext(c)
	if err != nil {
		return err
	}
	params, err := parseBody(c, createOfferSchema)
	if err != nil {
		return err
	}

	offer, err := h.Trading.CreateOffer(c.UserContext(), params.Int("listingId"), rc.UserID, params.String("content"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(offer)
}

// AcceptOffer handles v1/trading-post/offer/accept.
func (h *Handlers) AcceptOffer(c *fiber.Ctx) error {
	return h.offerAction(c, h.Trading.AcceptOffer)
}

// RejectOffer handles v1/trading-post/offer/reject.
func (h *Handlers) RejectOffer(c *fiber.Ctx) error {
	return h.offerAction(c, h.Trading.RejectOffer)
}

// CancelOffer handles v1/trading-post/offer/cancel.
func (h *Handlers) CancelOffer(c *fiber.Ctx) error {
	return h.offerAction(c, h.Trading.CancelOffer)
}

func (h *Handlers) offerAction(c *fiber.Ctx, action func(ctx context.Context, actorID, offerID int64) error) error {
	rc, err := h.requestContext(c)
	if err != nil {
		return err
	}
	params, err := parseBody(c, offerActionSchema)
	if err != nil {
		return err
	}

	if err := action(c.UserContext(), rc.UserID, params.Int("offerId")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ok": true})
}

// SubmitAddress handles v1/trading-post/listing/address.
func (h *Handlers) SubmitAddress(c *fiber.Ctx) error {
	rc, err := h.requestContext(c)
	if err != nil {
		return err
	}
	params, err := parseBody(c, addressSchema)
	if err != nil {
		return err
	}

	if err := h.Trading.SubmitAddress(c.UserContext(), rc.UserID, params.Int("listingId"), params.String("address")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ok": true})
}

// MarkCompleted handles v1/trading-post/listing/completed.
func (h *Handlers) MarkCompleted(c *fiber.Ctx) error {
	return h.listingAction(c, h.Trading.MarkCompleted)
}

// MarkFailed handles v1/trading-post/listing/failed.
func (h *Handlers) MarkFailed(c *fiber.Ctx) error {
	return h.listingAction(c, h.Trading.MarkFailed)
}

// CancelListing handles v1/trading-post/listing/cancel.
func (h *Handlers) CancelListing(c *fiber.Ctx) error {
	return h.listingAction(c, h.Trading.CancelListing)
}

func (h *Handlers) listingAction(c *fiber.Ctx, action func(ctx context.Context, actorID, listingID int64) error) error {
	rc, err := h.requestContext(c)
	if err != nil {
		return err
	}
	params, err := parseBody(c, listingActionSchema)
	if err != nil {
		return err
	}

	if err := action(c.UserContext(), rc.UserID, params.Int("listingId")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ok": true})
}

// ExpireListing handles v1/trading-post/listing/expire. Moderator-only;
// the inactivity window check lives in the manager.
func (h *Handlers) ExpireListing(c *fiber.Ctx) error {
	rc, err := h.requestContext(c)
	if err != nil {
		return err
	}
	if err := rc.Require(c.UserContext(), PermTradeExpire); err != nil {
		return err
	}
	params, err := parseBody(c, listingActionSchema)
	if err != nil {
		return err
	}

	if err := h.Trading.ExpireListing(c.UserContext(), params.Int("listingId")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ok": true})
}

// GetListing handles v1/trading-post/listing/get.
func (h *Handlers) GetListing(c *fiber.Ctx) error {
	if _, err := h.requestContext(c); err != nil {
		return err
	}
	params, err := parseBody(c, listingActionSchema)
	if err != nil {
		return err
	}

	listing, err := h.Listings.GetWithOffers(c.UserContext(), params.Int("listingId"))
	if err != nil {
		return err
	}
	return c.JSON(listing)
}

// ListListings handles v1/trading-post/listing/list.
func (h *Handlers) ListListings(c *fiber.Ctx) error {
	if _, err := h.requestContext(c); err != nil {
		return err
	}
	params, err := parseBody(c, listListingsSchema)
	if err != nil {
		return err
	}

	status := models.ListingOpen
	if params.Has("status") {
		status = models.ListingStatus(params.String("status"))
	}
	offset := int(params.Int("offset"))
	limit := int(params.Int("limit"))
	if limit == 0 {
		limit = 25
	}

	listings, total, err := h.Listings.GetByStatus(c.UserContext(), status, offset, limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"listings": listings,
		"total":    total,
	})
}

// MyTrades handles v1/trading-post/mine: the caller's listings and
// offers in one response.
func (h *Handlers) MyTrades(c *fiber.Ctx) error {
	rc, err := h.requestContext(c)
	if err != nil {
		return err
	}

	listings, err := h.Listings.GetUserListings(c.UserContext(), rc.UserID)
	if err != nil {
		return err
	}
	offers, err := h.Offers.GetUserOffers(c.UserContext(), rc.UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"listings": listings,
		"offers":   offers,
	})
}
