// Package config loads server configuration from a YAML file and LEADERBATTLE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/leaderbattle/battle-server-go/internal/game/scoring"
)

// EnvPrefix prefixes every environment override, e.g. LEADERBATTLE_DATABASE_URL.
const EnvPrefix = "LEADERBATTLE"

// Catalog and store backends.
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Store    StoreConfig    `mapstructure:"store"`
	Match    MatchConfig    `mapstructure:"match"`
	AI       AIConfig       `mapstructure:"ai"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Replay   ReplayConfig   `mapstructure:"replay"`
}

type ServerConfig struct {
	GRPC      GRPCConfig      `mapstructure:"grpc"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
}

type GRPCConfig struct {
	Address              string `mapstructure:"address"`
	MaxConcurrentStreams int    `mapstructure:"max_concurrent_streams"`
}

type WebSocketConfig struct {
	Address         string        `mapstructure:"address"`
	Path            string        `mapstructure:"path"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
}

// LoggingConfig selects the zap level and encoder.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
}

type CatalogConfig struct {
	Source string `mapstructure:"source"`
	Path   string `mapstructure:"path"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

// MatchConfig holds the rule settings handed to the engine.
type MatchConfig struct {
	VictoryThreshold int             `mapstructure:"victory_threshold"`
	StartingHand     int             `mapstructure:"starting_hand"`
	LeaderRoster     int             `mapstructure:"leader_roster"`
	Seed             int64           `mapstructure:"seed"`
	AutoSelect       bool            `mapstructure:"auto_select"`
	Combos           scoring.Bonuses `mapstructure:"combos"`
}

type AIConfig struct {
	Depth int `mapstructure:"depth"`
}

// AuthConfig guards admin-only RPCs. AdminPasswordHash is a bcrypt hash; empty disables them.
type AuthConfig struct {
	AdminPasswordHash string `mapstructure:"admin_password_hash"`
}

type ReplayConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

func setDefaults(v *viper.Viper) {
	combos := scoring.DefaultBonuses()

	v.SetDefault("server.grpc.address", ":50051")
	v.SetDefault("server.grpc.max_concurrent_streams", 1000)
	v.SetDefault("server.websocket.address", ":8080")
	v.SetDefault("server.websocket.path", "/ws")
	v.SetDefault("server.websocket.write_timeout", 10*time.Second)
	v.SetDefault("server.websocket.read_buffer_size", 1024)
	v.SetDefault("server.websocket.write_buffer_size", 1024)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", time.Hour)
	v.SetDefault("database.connect_timeout", 5*time.Second)

	v.SetDefault("catalog.source", SourceFile)
	v.SetDefault("catalog.path", "config/catalog.yaml")
	v.SetDefault("store.driver", DriverMemory)

	v.SetDefault("match.victory_threshold", 50)
	v.SetDefault("match.starting_hand", 7)
	v.SetDefault("match.leader_roster", 5)
	v.SetDefault("match.seed", 0)
	v.SetDefault("match.auto_select", false)
	v.SetDefault("match.combos.same_category", combos.SameCategory)
	v.SetDefault("match.combos.distinct_categories", combos.DistinctCategories)
	v.SetDefault("match.combos.high_power", combos.HighPower)
	v.SetDefault("match.combos.trait_synergy", combos.TraitSynergy)
	v.SetDefault("match.combos.balanced", combos.Balanced)
	v.SetDefault("match.combos.high_power_threshold", combos.HighPowerThreshold)
	v.SetDefault("match.combos.balanced_spread", combos.BalancedSpread)
	v.SetDefault("match.combos.min_characters", combos.MinCharacters)

	v.SetDefault("ai.depth", 3)
	v.SetDefault("auth.admin_password_hash", "")
	v.SetDefault("replay.enabled", false)
	v.SetDefault("replay.dir", "replays")
}

// Load reads path (optional; a missing file leaves the defaults) and applies environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Match.VictoryThreshold <= 0 {
		errs = append(errs, fmt.Errorf("match.victory_threshold must be positive, got %d", c.Match.VictoryThreshold))
	}
	if c.Match.StartingHand <= 0 {
		errs = append(errs, fmt.Errorf("match.starting_hand must be positive, got %d", c.Match.StartingHand))
	}
	if c.Match.LeaderRoster <= 0 {
		errs = append(errs, fmt.Errorf("match.leader_roster must be positive, got %d", c.Match.LeaderRoster))
	}
	if c.AI.Depth < 1 {
		errs = append(errs, fmt.Errorf("ai.depth must be at least 1, got %d", c.AI.Depth))
	}
	switch c.Catalog.Source {
	case SourceFile, SourcePostgres:
	default:
		errs = append(errs, fmt.Errorf("catalog.source must be %q or %q, got %q", SourceFile, SourcePostgres, c.Catalog.Source))
	}
	switch c.Store.Driver {
	case DriverMemory, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("store.driver must be %q or %q, got %q", DriverMemory, DriverPostgres, c.Store.Driver))
	}
	if (c.Catalog.Source == SourcePostgres || c.Store.Driver == DriverPostgres) && c.Database.URL == "" {
		errs = append(errs, errors.New("database.url is required for postgres backends"))
	}
	return errors.Join(errs...)
}

// NeedsDatabase reports whether any backend is postgres.
func (c *Config) NeedsDatabase() bool {
	return c.Catalog.Source == SourcePostgres || c.Store.Driver == DriverPostgres
}
