package acc

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	cfg := Config{
		Environment: "development",
		Treasure:    DefaultTreasureConfig(),
		Trading:     DefaultTradingConfig(),
	}
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Environment string         `toml:"environment"`
	Log         LogConfig      `toml:"log"`
	Server      ServerConfig   `toml:"server"`
	DB          DBConfig       `toml:"db"`
	Spaces      SpacesConfig   `toml:"spaces"`
	Treasure    TreasureConfig `toml:"treasure"`
	Trading     TradingConfig  `toml:"trading"`
}

// IsProduction gates the automation/test-only mutate endpoints.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DBConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	PoolSize int    `toml:"pool_size"`
}

type SpacesConfig struct {
	Key        string `toml:"key"`
	Secret     string `toml:"secret"`
	Region     string `toml:"region"`
	Bucket     string `toml:"bucket"`
	AvatarRoot string `toml:"avatar_root"`
}

type TreasureConfig struct {
	// Odds of any win on a qualifying page view, expressed as 1/N.
	WinDenominator int `toml:"win_denominator"`
	// Minutes an offer stays redeemable before it counts as missed.
	BellThresholdMinutes int `toml:"bell_threshold_minutes"`
}

func DefaultTreasureConfig() TreasureConfig {
	return TreasureConfig{
		WinDenominator:       30,
		BellThresholdMinutes: 20,
	}
}

func (c TreasureConfig) BellThreshold() time.Duration {
	return time.Duration(c.BellThresholdMinutes) * time.Minute
}

type TradingConfig struct {
	// Days of creator inactivity before a listing is eligible for expiry.
	ExpiryDays int `toml:"expiry_days"`
}

func DefaultTradingConfig() TradingConfig {
	return TradingConfig{ExpiryDays: 30}
}

func (c TradingConfig) ExpiryWindow() time.Duration {
	return time.Duration(c.ExpiryDays) * 24 * time.Hour
}
