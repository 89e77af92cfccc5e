package acc

import (
	"context"
	"log/slog"
	"time"

	"github.com/acc-community/acc/acc/api"
	"github.com/acc-community/acc/acc/cache"
	"github.com/acc-community/acc/acc/database"
	"github.com/acc-community/acc/acc/database/repositories"
	"github.com/acc-community/acc/acc/logger"
	"github.com/acc-community/acc/acc/permissions"
	"github.com/acc-community/acc/acc/rules"
	"github.com/acc-community/acc/acc/services"
	"github.com/acc-community/acc/acc/tradingpost"
	"github.com/acc-community/acc/acc/treasure"
)

const cacheTTL = 5 * time.Minute

// App wires the repositories, domain services and API handlers
// together. One App per process.
type App struct {
	Cfg     *Config
	DB      *database.DB
	Cache   *cache.Cache
	Version string
	Commit  string

	Users         repositories.UserRepository
	Listings      repositories.ListingRepository
	Offers        repositories.OfferRepository
	Treasures     repositories.TreasureRepository
	Rules         repositories.RuleRepository
	Nodes         repositories.NodeRepository
	Notifications repositories.NotificationRepository
	Perms         repositories.PermissionRepository
	CatalogItems  repositories.CatalogRepository

	Oracle      *permissions.Oracle
	Trading     *tradingpost.Manager
	Treasure    *treasure.Engine
	RuleService *rules.Service
	Catalog     *services.CatalogService
	Leaderboard *services.LeaderboardService
	Spaces      *services.SpacesService
	Sessions    *services.SessionService
}

func New(ctx context.Context, cfg *Config, version, commit string) (*App, error) {
	db, err := database.New(ctx, database.DBConfig{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		Database: cfg.DB.Database,
		PoolSize: cfg.DB.PoolSize,
	})
	if err != nil {
		return nil, err
	}

	app := &App{
		Cfg:     cfg,
		DB:      db,
		Cache:   cache.New(cacheTTL),
		Version: version,
		Commit:  commit,
	}

	bunDB := db.BunDB()
	app.Users = repositories.NewUserRepository(bunDB)
	app.Listings = repositories.NewListingRepository(bunDB)
	app.Offers = repositories.NewOfferRepository(bunDB)
	app.Treasures = repositories.NewTreasureRepository(bunDB)
	app.Rules = repositories.NewRuleRepository(bunDB)
	app.Nodes = repositories.NewNodeRepository(bunDB)
	app.Notifications = repositories.NewNotificationRepository(bunDB)
	app.Perms = repositories.NewPermissionRepository(bunDB)
	app.CatalogItems = repositories.NewCatalogRepository(bunDB)

	app.Oracle = permissions.NewOracle(app.Perms, app.Users, app.Cache)
	notifier := tradingpost.NewNotifier(app.Notifications)
	app.Trading = tradingpost.NewManager(app.Listings, app.Offers, app.Users, notifier, cfg.Trading.ExpiryWindow())
	app.Treasure = treasure.NewEngine(app.Treasures, app.Users, app.Notifications,
		cfg.Treasure.BellThreshold(), int64(cfg.Treasure.WinDenominator))
	app.RuleService = rules.NewService(app.Rules, app.Nodes)
	app.Catalog = services.NewCatalogService(app.CatalogItems, app.Cache)
	app.Leaderboard = services.NewLeaderboardService(app.Treasures, app.Cache, cfg.Treasure.BellThreshold())
	app.Sessions = services.NewSessionService(app.Users)

	if cfg.Spaces.Key != "" {
		app.Spaces = services.NewSpacesService(
			cfg.Spaces.Key,
			cfg.Spaces.Secret,
			cfg.Spaces.Region,
			cfg.Spaces.Bucket,
			cfg.Spaces.AvatarRoot,
		)
		logger.LogSystem("Avatar storage configured",
			slog.String("bucket", app.Spaces.GetBucket()),
			slog.String("region", app.Spaces.GetRegion()))
	}

	return app, nil
}

// Handlers builds the API handler bundle for route registration.
func (a *App) Handlers() *api.Handlers {
	return &api.Handlers{
		Trading:       a.Trading,
		Treasure:      a.Treasure,
		Rules:         a.RuleService,
		Catalog:       a.Catalog,
		Leaderboard:   a.Leaderboard,
		Spaces:        a.Spaces,
		Oracle:        a.Oracle,
		Listings:      a.Listings,
		Offers:        a.Offers,
		Users:         a.Users,
		Treasures:     a.Treasures,
		RuleRepo:      a.Rules,
		Nodes:         a.Nodes,
		Notifications: a.Notifications,
		Perms:         a.Perms,
	}
}

func (a *App) Close() {
	a.DB.Close()
}
