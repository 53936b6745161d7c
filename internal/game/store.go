package game

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/leaderbattle/battle-server-go/internal/game/state"
)

// ErrMatchNotFound is returned by stores for unknown match ids.
var ErrMatchNotFound = errors.New("match not found")

// Store persists whole match snapshots keyed by match id. Save overwrites.
type Store interface {
	Load(ctx context.Context, matchID string) (*state.MatchState, error)
	Save(ctx context.Context, m *state.MatchState) error
	Delete(ctx context.Context, matchID string) error
}

// MemoryStore keeps snapshots in process memory. Each snapshot is stored with its checksum
// and verified on load, mirroring the postgres store.
type MemoryStore struct {
	logger *zap.Logger

	mu      sync.RWMutex
	matches map[string]storedMatch
}

type storedMatch struct {
	data     []byte
	checksum string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStore{
		logger:  logger,
		matches: make(map[string]storedMatch),
	}
}

// Load returns a decoded copy of the stored snapshot.
func (s *MemoryStore) Load(_ context.Context, matchID string) (*state.MatchState, error) {
	s.mu.RLock()
	stored, ok := s.matches[matchID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}

	m, err := DeserializeFromBytes(stored.data)
	if err != nil {
		return nil, err
	}
	valid, err := VerifyChecksum(m, &SerializationChecksum{Hash: stored.checksum})
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, fmt.Errorf("snapshot of match %s failed checksum verification", matchID)
	}
	return m, nil
}

// Save stores an encoded copy of m.
func (s *MemoryStore) Save(_ context.Context, m *state.MatchState) error {
	if m == nil || m.MatchID == "" {
		return fmt.Errorf("cannot save a match without id")
	}
	data, err := SerializeToBytes(m)
	if err != nil {
		return err
	}
	sum, err := ComputeChecksum(m)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.matches[m.MatchID] = storedMatch{data: data, checksum: sum.Hash}
	s.mu.Unlock()

	s.logger.Debug("memory store saved match",
		zap.String("match_id", m.MatchID),
		zap.String("update_id", m.UpdateID),
		zap.Int("bytes", len(data)),
	)
	return nil
}

// Delete removes a match. Unknown ids are not an error.
func (s *MemoryStore) Delete(_ context.Context, matchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.matches, matchID)
	return nil
}

// Len returns the number of stored matches.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matches)
}
