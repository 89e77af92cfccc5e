package api

import (
	"github.com/gofiber/fiber/v2"
)

// Register mounts the v1 surface. Every route sits behind session
// auth; the test-tooling treasure mutations additionally sit behind
// the environment gate.
func Register(app *fiber.App, h *Handlers, sessions SessionResolver, isProduction bool) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1 := app.Group("/v1", SessionAuth(sessions))

	trading := v1.Group("/trading-post")
	trading.Post("/listing/create", h.CreateListing)
	trading.Post("/listing/get", h.GetListing)
	trading.Post("/listing/list", h.ListListings)
	trading.Post("/listing/address", h.SubmitAddress)
	trading.Post("/listing/completed", h.MarkCompleted)
	trading.Post("/listing/failed", h.MarkFailed)
	trading.Post("/listing/cancel", h.CancelListing)
	trading.Post("/listing/expire", h.ExpireListing)
	trading.Post("/offer/create", h.CreateOffer)
	trading.Post("/offer/accept", h.AcceptOffer)
	trading.Post("/offer/reject", h.RejectOffer)
	trading.Post("/offer/cancel", h.CancelOffer)
	trading.Post("/mine", h.MyTrades)

	treasure := v1.Group("/treasure")
	treasure.Post("/draw", h.Draw)
	treasure.Post("/redeem", h.RedeemTreasure)
	treasure.Post("/jackpot", h.GetJackpot)
	treasure.Post("/jackpot/claim", h.ClaimJackpot)
	treasure.Post("/top-bells", h.TopBells)

	// Test tooling, never available in production.
	gated := treasure.Group("", EnvironmentGate(isProduction))
	gated.Post("/add", h.AddTreasure)
	gated.Post("/remove", h.RemoveTreasure)

	v1.Post("/rules/current", h.ListRules)

	admin := v1.Group("/admin")
	admin.Post("/rule/expire", h.ExpireRule)
	admin.Post("/rule/restore", h.RestoreRule)
	admin.Post("/rule/violation/expire", h.ExpireViolation)
	admin.Post("/rule/violation/restore", h.RestoreViolation)
	admin.Post("/users/ban", h.BanUser)
	admin.Post("/permissions/grant-user", h.GrantUserPermission)
	admin.Post("/permissions/grant-group", h.GrantGroupPermission)

	notification := v1.Group("/notification")
	notification.Post("/list", h.ListNotifications)
	notification.Post("/read", h.MarkNotificationsRead)

	catalog := v1.Group("/catalog")
	catalog.Post("/search", h.SearchCatalog)
	catalog.Post("/get", h.GetCatalogItem)
	catalog.Post("/import", h.ImportCatalog)

	users := v1.Group("/users")
	users.Post("/get", h.GetUser)
	users.Post("/avatar/upload-url", h.AvatarUploadURL)
	users.Post("/avatar/delete", h.DeleteAvatar)
}
