package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":50051", cfg.Server.GRPC.Address)
	assert.Equal(t, 50, cfg.Match.VictoryThreshold)
	assert.Equal(t, 7, cfg.Match.StartingHand)
	assert.Equal(t, 5, cfg.Match.LeaderRoster)
	assert.Equal(t, 3, cfg.AI.Depth)
	assert.Equal(t, 50, cfg.Match.Combos.SameCategory)
	assert.Equal(t, 3, cfg.Match.Combos.MinCharacters)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, 10*time.Second, cfg.Server.WebSocket.WriteTimeout)
	assert.Equal(t, 1024, cfg.Server.WebSocket.ReadBufferSize)
	assert.Equal(t, 1024, cfg.Server.WebSocket.WriteBufferSize)
	assert.False(t, cfg.NeedsDatabase())
}

func TestLoadFileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  grpc:
    address: ":6000"
logging:
  level: debug
  format: json
match:
  victory_threshold: 80
  combos:
    trait_synergy: 5
store:
  driver: postgres
database:
  url: postgres://localhost/battle
  max_conn_lifetime: 30m
`), 0o600))
	t.Setenv("LEADERBATTLE_MATCH_STARTING_HAND", "5")
	t.Setenv("LEADERBATTLE_AI_DEPTH", "2")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":6000", cfg.Server.GRPC.Address)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 80, cfg.Match.VictoryThreshold)
	assert.Equal(t, 5, cfg.Match.Combos.TraitSynergy)
	assert.Equal(t, 50, cfg.Match.Combos.SameCategory)
	assert.Equal(t, 5, cfg.Match.StartingHand)
	assert.Equal(t, 2, cfg.AI.Depth)
	assert.Equal(t, 30*time.Minute, cfg.Database.MaxConnLifetime)
	assert.True(t, cfg.NeedsDatabase())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero threshold", func(c *Config) { c.Match.VictoryThreshold = 0 }},
		{"negative hand", func(c *Config) { c.Match.StartingHand = -1 }},
		{"empty roster", func(c *Config) { c.Match.LeaderRoster = 0 }},
		{"no search depth", func(c *Config) { c.AI.Depth = 0 }},
		{"unknown catalog source", func(c *Config) { c.Catalog.Source = "s3" }},
		{"unknown store", func(c *Config) { c.Store.Driver = "redis" }},
		{"postgres without url", func(c *Config) { c.Store.Driver = DriverPostgres }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, valid().Validate())
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("match: [unterminated"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
