package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/leaderbattle/battle-server-go/internal/game/catalog"
)

// CatalogRepository stores card, leader and deck definitions as JSONB rows.
type CatalogRepository struct {
	db     Querier
	logger *zap.Logger
}

// NewCatalogRepository creates a catalog repository over db.
func NewCatalogRepository(db Querier, logger *zap.Logger) *CatalogRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogRepository{db: db, logger: logger}
}

// ImportStats counts rows written by Import.
type ImportStats struct {
	Cards   int
	Leaders int
	Decks   int
}

// Import upserts every definition of f in a single batch. f is validated first.
func (r *CatalogRepository) Import(ctx context.Context, f catalog.File) (ImportStats, error) {
	var stats ImportStats
	if err := f.Validate(); err != nil {
		return stats, err
	}

	batch, err := importBatch(f)
	if err != nil {
		return stats, err
	}
	results := r.db.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return stats, fmt.Errorf("failed to import catalog row %d: %w", i, err)
		}
	}
	if err := results.Close(); err != nil {
		return stats, fmt.Errorf("failed to import catalog: %w", err)
	}

	stats = ImportStats{Cards: len(f.Cards), Leaders: len(f.Leaders), Decks: len(f.Decks)}
	r.logger.Info("catalog imported",
		zap.Int("cards", stats.Cards),
		zap.Int("leaders", stats.Leaders),
		zap.Int("decks", stats.Decks),
	)
	return stats, nil
}

func importBatch(f catalog.File) (*pgx.Batch, error) {
	batch := &pgx.Batch{}
	for _, card := range f.Cards {
		def, err := json.Marshal(card)
		if err != nil {
			return nil, fmt.Errorf("failed to encode card %s: %w", card.ID, err)
		}
		batch.Queue(`
			INSERT INTO cards (card_id, card_type, definition) VALUES ($1, $2, $3)
			ON CONFLICT (card_id) DO UPDATE SET card_type = EXCLUDED.card_type, definition = EXCLUDED.definition
		`, card.ID, string(card.CardType), def)
	}
	for _, leader := range f.Leaders {
		def, err := json.Marshal(leader)
		if err != nil {
			return nil, fmt.Errorf("failed to encode leader %s: %w", leader.ID, err)
		}
		batch.Queue(`
			INSERT INTO leaders (leader_id, definition) VALUES ($1, $2)
			ON CONFLICT (leader_id) DO UPDATE SET definition = EXCLUDED.definition
		`, leader.ID, def)
	}
	for _, deck := range f.Decks {
		leaders, err := json.Marshal(deck.Leaders)
		if err != nil {
			return nil, fmt.Errorf("failed to encode deck %s: %w", deck.PlayerID, err)
		}
		cards, err := json.Marshal(deck.Cards)
		if err != nil {
			return nil, fmt.Errorf("failed to encode deck %s: %w", deck.PlayerID, err)
		}
		batch.Queue(`
			INSERT INTO decks (player_id, leaders, cards) VALUES ($1, $2, $3)
			ON CONFLICT (player_id) DO UPDATE SET leaders = EXCLUDED.leaders, cards = EXCLUDED.cards
		`, deck.PlayerID, leaders, cards)
	}
	return batch, nil
}

// Load reads the whole catalog into memory. The engine only ever resolves against a
// pre-loaded catalog.
func (r *CatalogRepository) Load(ctx context.Context) (*catalog.MemoryCatalog, error) {
	var f catalog.File

	rows, err := r.db.Query(ctx, `SELECT definition FROM cards ORDER BY card_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	f.Cards, err = pgx.CollectRows(rows, decodeJSON[catalog.CardDefinition])
	if err != nil {
		return nil, fmt.Errorf("failed to read cards: %w", err)
	}

	rows, err = r.db.Query(ctx, `SELECT definition FROM leaders ORDER BY leader_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaders: %w", err)
	}
	f.Leaders, err = pgx.CollectRows(rows, decodeJSON[catalog.LeaderDefinition])
	if err != nil {
		return nil, fmt.Errorf("failed to read leaders: %w", err)
	}

	rows, err = r.db.Query(ctx, `SELECT player_id, leaders, cards FROM decks ORDER BY player_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query decks: %w", err)
	}
	f.Decks, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.DeckSnapshot, error) {
		var (
			deck           catalog.DeckSnapshot
			leaders, cards []byte
		)
		if err := row.Scan(&deck.PlayerID, &leaders, &cards); err != nil {
			return deck, err
		}
		if err := json.Unmarshal(leaders, &deck.Leaders); err != nil {
			return deck, fmt.Errorf("deck %s leaders: %w", deck.PlayerID, err)
		}
		if err := json.Unmarshal(cards, &deck.Cards); err != nil {
			return deck, fmt.Errorf("deck %s cards: %w", deck.PlayerID, err)
		}
		return deck, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read decks: %w", err)
	}

	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("stored catalog is inconsistent: %w", err)
	}
	r.logger.Info("catalog loaded from database",
		zap.Int("cards", len(f.Cards)),
		zap.Int("leaders", len(f.Leaders)),
		zap.Int("decks", len(f.Decks)),
	)
	return f.Catalog(), nil
}

// Count returns the number of stored cards.
func (r *CatalogRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM cards`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cards: %w", err)
	}
	return n, nil
}

// Truncate removes the whole catalog.
func (r *CatalogRepository) Truncate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `TRUNCATE cards, leaders, decks`); err != nil {
		return fmt.Errorf("failed to clear catalog: %w", err)
	}
	return nil
}

func decodeJSON[T any](row pgx.CollectableRow) (T, error) {
	var (
		out  T
		data []byte
	)
	if err := row.Scan(&data); err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, err
	}
	return out, nil
}
