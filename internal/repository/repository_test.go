package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/leaderbattle/battle-server-go/internal/config"
	"github.com/leaderbattle/battle-server-go/internal/game"
	"github.com/leaderbattle/battle-server-go/internal/game/catalog"
	"github.com/leaderbattle/battle-server-go/internal/game/rules"
	"github.com/leaderbattle/battle-server-go/internal/game/state"
)

func sampleFile() catalog.File {
	zones := map[rules.Zone][]string{rules.ZoneTop: {catalog.WildcardToken}}
	return catalog.File{
		Cards: []catalog.CardDefinition{
			{ID: "c1", Name: "One", CardType: catalog.CardTypeCharacter, Power: 40, Traits: []string{"hero"}},
			{ID: "h1", Name: "Help", CardType: catalog.CardTypeHelp},
		},
		Leaders: []catalog.LeaderDefinition{
			{ID: "l1", Name: "Lead", CardType: catalog.CardTypeLeader, InitialPoint: 100, ZoneCompatibility: zones},
		},
		Decks: []catalog.DeckSnapshot{
			{PlayerID: "p1", Leaders: []string{"l1"}, Cards: []string{"c1", "h1"}},
		},
	}
}

func TestPoolConfig(t *testing.T) {
	t.Run("applies limits", func(t *testing.T) {
		cfg, err := PoolConfig(config.DatabaseConfig{
			URL:             "postgres://user:pw@db.example:5432/battle?sslmode=disable",
			MaxConns:        7,
			MinConns:        2,
			MaxConnLifetime: 10 * time.Minute,
			ConnectTimeout:  3 * time.Second,
		})
		require.NoError(t, err)
		assert.Equal(t, int32(7), cfg.MaxConns)
		assert.Equal(t, int32(2), cfg.MinConns)
		assert.Equal(t, 10*time.Minute, cfg.MaxConnLifetime)
		assert.Equal(t, 3*time.Second, cfg.ConnConfig.ConnectTimeout)
		assert.Equal(t, "db.example", cfg.ConnConfig.Host)
		assert.Equal(t, "battle", cfg.ConnConfig.Database)
	})

	t.Run("empty url", func(t *testing.T) {
		_, err := PoolConfig(config.DatabaseConfig{})
		assert.Error(t, err)
	})

	t.Run("malformed url", func(t *testing.T) {
		_, err := PoolConfig(config.DatabaseConfig{URL: "postgres://%zz"})
		assert.Error(t, err)
	})
}

func TestImportBatchQueuesEveryRow(t *testing.T) {
	batch, err := importBatch(sampleFile())
	require.NoError(t, err)
	require.Equal(t, 4, batch.Len())

	assert.Contains(t, batch.QueuedQueries[0].SQL, "INSERT INTO cards")
	assert.Equal(t, "c1", batch.QueuedQueries[0].Arguments[0])
	assert.Contains(t, batch.QueuedQueries[2].SQL, "INSERT INTO leaders")
	assert.Contains(t, batch.QueuedQueries[3].SQL, "INSERT INTO decks")
	assert.JSONEq(t, `["c1","h1"]`, string(batch.QueuedQueries[3].Arguments[2].([]byte)))
}

func TestImportRejectsInvalidCatalog(t *testing.T) {
	f := sampleFile()
	f.Decks[0].Cards = append(f.Decks[0].Cards, "missing")

	repo := NewCatalogRepository(nil, zaptest.NewLogger(t))
	_, err := repo.Import(context.Background(), f)
	assert.Error(t, err)
}

// testDB connects to LEADERBATTLE_TEST_DATABASE_URL or skips.
func testDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("LEADERBATTLE_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("LEADERBATTLE_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := NewDB(ctx, config.DatabaseConfig{URL: url, MaxConns: 4}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.EnsureSchema(ctx))
	return db
}

func TestCatalogRepositoryRoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := NewCatalogRepository(db.Pool, zaptest.NewLogger(t))
	require.NoError(t, repo.Truncate(ctx))

	stats, err := repo.Import(ctx, sampleFile())
	require.NoError(t, err)
	assert.Equal(t, ImportStats{Cards: 2, Leaders: 1, Decks: 1}, stats)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	cat, err := repo.Load(ctx)
	require.NoError(t, err)
	card, err := cat.Card("c1")
	require.NoError(t, err)
	assert.Equal(t, 40, card.Power)
	leader, err := cat.Leader("l1")
	require.NoError(t, err)
	assert.Equal(t, []string{catalog.WildcardToken}, leader.ZoneCompatibility[rules.ZoneTop])
	deck, err := cat.Deck("p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "h1"}, deck.Cards)
}

func TestMatchRepositoryRoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := NewMatchRepository(db.Pool, zaptest.NewLogger(t))

	e := game.NewEngine(sampleFile().Catalog(), zaptest.NewLogger(t), game.WithRand(game.NewRand(5)), game.WithSettings(game.Settings{
		VictoryThreshold: 50, StartingHand: 1, LeaderRoster: 1, Combos: game.DefaultSettings().Combos,
	}))
	m, err := e.InitializeMatch("", []catalog.DeckSnapshot{
		{PlayerID: "p1", Leaders: []string{"l1"}, Cards: []string{"c1", "h1"}},
		{PlayerID: "p2", Leaders: []string{"l1"}, Cards: []string{"c1", "h1"}},
	})
	require.NoError(t, err)
	e.Stamp(m)

	require.NoError(t, repo.Save(ctx, m))
	t.Cleanup(func() { _ = repo.Delete(ctx, m.MatchID) })

	loaded, err := repo.Load(ctx, m.MatchID)
	require.NoError(t, err)
	assert.Equal(t, m.MatchID, loaded.MatchID)
	assert.Equal(t, m.UpdateID, loaded.UpdateID)
	assert.Equal(t, m.Players["p1"].Deck.Hand, loaded.Players["p1"].Deck.Hand)

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Contains(t, active, m.MatchID)

	require.NoError(t, repo.Delete(ctx, m.MatchID))
	_, err = repo.Load(ctx, m.MatchID)
	assert.ErrorIs(t, err, game.ErrMatchNotFound)
}

func TestSaveRejectsMissingID(t *testing.T) {
	repo := NewMatchRepository(nil, nil)
	assert.Error(t, repo.Save(context.Background(), &state.MatchState{}))
	assert.Error(t, repo.Save(context.Background(), nil))
}
