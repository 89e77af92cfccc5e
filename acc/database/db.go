package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"time"

	"log/slog"

	"github.com/acc-community/acc/acc/database/models"
	"github.com/acc-community/acc/acc/logger"
	"github.com/uptrace/bun"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

const (
	defaultConnTimeout   = 5 * time.Second
	defaultMaxRetries    = 3
	defaultRetryInterval = time.Second
)

type DBConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	Database     string `toml:"database"`
	PoolSize     int    `toml:"pool_size"`
	MaxIdleConns int    `toml:"max_idle_conns"`
	MaxLifetime  int    `toml:"max_lifetime"`
}

type DB struct {
	pool  *pgxpool.Pool
	bunDB *bun.DB
}

func New(ctx context.Context, cfg DBConfig) (*DB, error) {
	// Reachability check with retries before handing off to the pool
	var conn net.Conn
	var err error

	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))
	for i := 0; i < defaultMaxRetries; i++ {
		conn, err = net.DialTimeout("tcp", addr, defaultConnTimeout)
		if err == nil {
			break
		}
		time.Sleep(defaultRetryInterval)
	}
	if err != nil {
		return nil, fmt.Errorf("database server unreachable after %d attempts: %w", defaultMaxRetries, err)
	}
	defer conn.Close()

	poolConfig, err := pgxpool.ParseConfig(buildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	if cfg.PoolSize > 0 {
		poolConfig.MaxConns = int32(cfg.PoolSize)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = time.Duration(cfg.MaxLifetime) * time.Second
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	return &DB{pool: pool, bunDB: newBunDB(pool)}, nil
}

func buildConnString(cfg DBConfig) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?connect_timeout=5",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
	)
}

func (db *DB) GetPool() *pgxpool.Pool {
	return db.pool
}

func (db *DB) BunDB() *bun.DB {
	return db.bunDB
}

func newBunDB(pool *pgxpool.Pool) *bun.DB {
	sslMode := os.Getenv("PG_SSLMODE")
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		pool.Config().ConnConfig.User,
		pool.Config().ConnConfig.Password,
		pool.Config().ConnConfig.Host,
		pool.Config().ConnConfig.Port,
		pool.Config().ConnConfig.Database,
		sslMode,
	)

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func (db *DB) ExecWithLog(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	start := time.Now()
	result, err := db.pool.Exec(ctx, sql, args...)
	logger.LogQuery("exec", sql, time.Since(start), err)
	return result, err
}

func (db *DB) QueryWithLog(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	start := time.Now()
	rows, err := db.pool.Query(ctx, sql, args...)
	logger.LogQuery("query", sql, time.Since(start), err)
	return rows, err
}

func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
	if db.bunDB != nil {
		db.bunDB.Close()
	}
}

// InitializeSchema creates all required database tables and indexes
func (db *DB) InitializeSchema(ctx context.Context) error {
	// Create tables in the correct order to handle foreign key constraints
	tables := []interface{}{
		(*models.User)(nil),
		(*models.UserGroup)(nil),
		(*models.UserGroupMember)(nil),
		(*models.UserPermission)(nil),
		(*models.GroupPermission)(nil),
		(*models.Node)(nil),
		(*models.NodePost)(nil),
		(*models.Listing)(nil),
		(*models.Offer)(nil),
		(*models.TreasureOffer)(nil),
		(*models.JackpotState)(nil),
		(*models.TopBell)(nil),
		(*models.RuleCategory)(nil),
		(*models.Rule)(nil),
		(*models.RuleViolation)(nil),
		(*models.Notification)(nil),
		(*models.CatalogItem)(nil),
	}

	for _, model := range tables {
		query := db.bunDB.NewCreateTable().
			Model(model).
			IfNotExists()

		_, err := query.Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_listings_creator_id ON listings(creator_id);",
		"CREATE INDEX IF NOT EXISTS idx_listings_status ON listings(status);",
		"CREATE INDEX IF NOT EXISTS idx_listings_active ON listings(last_updated) WHERE status IN ('open', 'offerAccepted');",
		"CREATE INDEX IF NOT EXISTS idx_offers_listing_id ON offers(listing_id);",
		"CREATE INDEX IF NOT EXISTS idx_offers_user_id ON offers(user_id);",
		"CREATE INDEX IF NOT EXISTS idx_offers_listing_status ON offers(listing_id, status);",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_offers_single_accepted ON offers(listing_id) WHERE status = 'accepted';",
		"CREATE INDEX IF NOT EXISTS idx_treasure_offers_user_id ON treasure_offers(user_id);",
		"CREATE INDEX IF NOT EXISTS idx_treasure_offers_unredeemed ON treasure_offers(user_id, offer_time) WHERE redeemed_user_id IS NULL;",
		"CREATE INDEX IF NOT EXISTS idx_top_bells_total ON top_bells(total_bells DESC);",
		"CREATE INDEX IF NOT EXISTS idx_rules_category_id ON rules(category_id);",
		"CREATE INDEX IF NOT EXISTS idx_rules_original ON rules(original_rule_id) WHERE original_rule_id IS NOT NULL;",
		"CREATE INDEX IF NOT EXISTS idx_rule_violations_rule_id ON rule_violations(rule_id);",
		"CREATE INDEX IF NOT EXISTS idx_rule_violations_original ON rule_violations(original_violation_id) WHERE original_violation_id IS NOT NULL;",
		"CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at DESC);",
		"CREATE INDEX IF NOT EXISTS idx_notifications_unread ON notifications(user_id) WHERE read = false;",
		"CREATE INDEX IF NOT EXISTS idx_node_posts_node_id ON node_posts(node_id, created_at);",
		"CREATE INDEX IF NOT EXISTS idx_user_permissions_user ON user_permissions(user_id, permission);",
		"CREATE INDEX IF NOT EXISTS idx_group_permissions_group ON group_permissions(group_id, permission);",
		"CREATE INDEX IF NOT EXISTS idx_catalog_items_name ON catalog_items(name);",
	}

	for _, idx := range indexes {
		if _, err := db.ExecWithLog(ctx, idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	// The jackpot pool is a single-row table; seed it so claims can lock it.
	if err := db.seedJackpotState(ctx); err != nil {
		return fmt.Errorf("failed to seed jackpot state: %w", err)
	}

	slog.Info("Database schema initialized",
		slog.String("type", "db"),
		slog.Int("tables", len(tables)),
		slog.Int("indexes", len(indexes)))
	return nil
}

func (db *DB) seedJackpotState(ctx context.Context) error {
	_, err := db.bunDB.NewInsert().
		Model(&models.JackpotState{ID: 1, Bells: 0, UpdatedAt: time.Now()}).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	return err
}

// ResetAppTables truncates application tables for a fresh start (PostgreSQL only)
func (db *DB) ResetAppTables(ctx context.Context) error {
	if db.bunDB == nil {
		return fmt.Errorf("bun DB not initialized")
	}

	candidates := []string{
		"notifications",
		"offers",
		"listings",
		"treasure_offers",
		"top_bells",
		"jackpot_state",
		"rule_violations",
		"rules",
		"rule_categories",
		"node_posts",
		"nodes",
		"user_permissions",
		"group_permissions",
		"user_group_members",
		"user_groups",
		"catalog_items",
		"users",
	}

	rows, err := db.QueryWithLog(ctx, `SELECT table_name FROM information_schema.tables WHERE table_schema = 'public'`)
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	present := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err == nil {
			present[name] = true
		}
	}

	var toTruncate []string
	for _, t := range candidates {
		if present[t] {
			toTruncate = append(toTruncate, t)
		}
	}

	if len(toTruncate) == 0 {
		slog.Warn("No app tables found to reset")
		return nil
	}

	stmt := "TRUNCATE TABLE " + joinIdentifiers(toTruncate) + " RESTART IDENTITY CASCADE;"
	if _, err := db.ExecWithLog(ctx, stmt); err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}

	slog.Info("App tables truncated successfully", "tables", toTruncate)
	return nil
}

func joinIdentifiers(names []string) string {
	if len(names) == 0 {
		return ""
	}
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("\"%s\"", n)
	}
	return out
}
