package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/leaderbattle/battle-server-go/internal/game"
	"github.com/leaderbattle/battle-server-go/internal/game/rules"
	"github.com/leaderbattle/battle-server-go/internal/game/state"
)

// MatchRepository stores one JSONB snapshot per match, next to its checksum.
type MatchRepository struct {
	db     Querier
	logger *zap.Logger
}

var _ game.Store = (*MatchRepository)(nil)

// NewMatchRepository creates a match store over db.
func NewMatchRepository(db Querier, logger *zap.Logger) *MatchRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatchRepository{db: db, logger: logger}
}

// Load reads and verifies a snapshot.
func (r *MatchRepository) Load(ctx context.Context, matchID string) (*state.MatchState, error) {
	var (
		data     []byte
		checksum string
		version  int
	)
	err := r.db.QueryRow(ctx,
		`SELECT snapshot, checksum, version FROM matches WHERE match_id = $1`,
		matchID,
	).Scan(&data, &checksum, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", game.ErrMatchNotFound, matchID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load match %s: %w", matchID, err)
	}
	if version != game.SnapshotVersion {
		return nil, fmt.Errorf("match %s has unsupported snapshot version %d", matchID, version)
	}

	m, err := game.DeserializeFromBytes(data)
	if err != nil {
		return nil, err
	}
	valid, err := game.VerifyChecksum(m, &game.SerializationChecksum{Hash: checksum})
	if err != nil {
		return nil, err
	}
	if !valid {
		r.logger.Error("match snapshot checksum mismatch", zap.String("match_id", matchID))
		return nil, fmt.Errorf("snapshot of match %s failed checksum verification", matchID)
	}
	return m, nil
}

// Save upserts the full snapshot.
func (r *MatchRepository) Save(ctx context.Context, m *state.MatchState) error {
	if m == nil || m.MatchID == "" {
		return fmt.Errorf("cannot save a match without id")
	}
	data, err := game.SerializeToBytes(m)
	if err != nil {
		return err
	}
	sum, err := game.ComputeChecksum(m)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO matches (match_id, snapshot, checksum, version, phase, update_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (match_id) DO UPDATE SET
			snapshot = EXCLUDED.snapshot,
			checksum = EXCLUDED.checksum,
			version = EXCLUDED.version,
			phase = EXCLUDED.phase,
			update_id = EXCLUDED.update_id,
			updated_at = now()
	`, m.MatchID, data, sum.Hash, game.SnapshotVersion, m.Phase.String(), m.UpdateID)
	if err != nil {
		return fmt.Errorf("failed to save match %s: %w", m.MatchID, err)
	}

	r.logger.Debug("saved match snapshot",
		zap.String("match_id", m.MatchID),
		zap.String("update_id", m.UpdateID),
		zap.Int("bytes", len(data)),
	)
	return nil
}

// Delete removes a match. Unknown ids are not an error.
func (r *MatchRepository) Delete(ctx context.Context, matchID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM matches WHERE match_id = $1`, matchID); err != nil {
		return fmt.Errorf("failed to delete match %s: %w", matchID, err)
	}
	return nil
}

// ListActive returns the ids of matches that have not reached GAME_END.
func (r *MatchRepository) ListActive(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT match_id FROM matches WHERE phase <> $1 ORDER BY updated_at DESC`,
		rules.PhaseGameEnd.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return ids, nil
}
