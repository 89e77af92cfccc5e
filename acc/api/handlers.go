package api

import (
	"github.com/acc-community/acc/acc/database/repositories"
	"github.com/acc-community/acc/acc/permissions"
	"github.com/acc-community/acc/acc/rules"
	"github.com/acc-community/acc/acc/services"
	"github.com/acc-community/acc/acc/tradingpost"
	"github.com/acc-community/acc/acc/treasure"
)

// Permission identifiers checked by the v1 handlers.
const (
	PermTradeExpire       = "trading-post.expire"
	PermRulesManage       = "rules.manage"
	PermCatalogImport     = "catalog.import"
	PermUsersBan          = "users.ban"
	PermPermissionsManage = "permissions.manage"
)

// Handlers bundles every collaborator the v1 surface needs. One
// instance serves the whole app.
type Handlers struct {
	Trading     *tradingpost.Manager
	Treasure    *treasure.Engine
	Rules       *rules.Service
	Catalog     *services.CatalogService
	Leaderboard *services.LeaderboardService
	Spaces      *services.SpacesService
	Oracle      *permissions.Oracle

	Listings      repositories.ListingRepository
	Offers        repositories.OfferRepository
	Users         repositories.UserRepository
	Treasures     repositories.TreasureRepository
	RuleRepo      repositories.RuleRepository
	Nodes         repositories.NodeRepository
	Notifications repositories.NotificationRepository
	Perms         repositories.PermissionRepository
}
