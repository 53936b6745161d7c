package game

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/leaderbattle/battle-server-go/internal/game/state"
)

// SnapshotVersion is bumped whenever the persisted MatchState layout changes.
const SnapshotVersion = 1

// SerializationChecksum is a deterministic checksum of a match snapshot. It guards
// persisted and replayed states against divergence.
type SerializationChecksum struct {
	Hash      string // SHA-256 hash of the canonical encoding
	Timestamp string // when the checksum was computed
	Version   int
}

// canonical encodes m without the fields that change on every save. encoding/json sorts
// map keys, so the output is independent of map iteration order.
func canonical(m *state.MatchState) ([]byte, error) {
	cp := *m
	cp.UpdateID = ""
	cp.LastUpdate = time.Time{}
	data, err := json.Marshal(&cp)
	if err != nil {
		return nil, fmt.Errorf("failed to encode match %s: %w", m.MatchID, err)
	}
	return data, nil
}

// ComputeChecksum hashes the canonical encoding of m.
func ComputeChecksum(m *state.MatchState) (*SerializationChecksum, error) {
	data, err := canonical(m)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)
	return &SerializationChecksum{
		Hash:      hex.EncodeToString(sum[:]),
		Timestamp: time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Version:   SnapshotVersion,
	}, nil
}

// VerifyChecksum reports whether m still hashes to expected.
func VerifyChecksum(m *state.MatchState, expected *SerializationChecksum) (bool, error) {
	if expected == nil {
		return false, fmt.Errorf("no checksum to verify against")
	}
	computed, err := ComputeChecksum(m)
	if err != nil {
		return false, fmt.Errorf("failed to compute checksum: %w", err)
	}
	return computed.Hash == expected.Hash, nil
}

// SerializeToBytes encodes a match snapshot for storage or transmission.
func SerializeToBytes(m *state.MatchState) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(m); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// DeserializeFromBytes decodes a match snapshot.
func DeserializeFromBytes(data []byte) (*state.MatchState, error) {
	var m state.MatchState
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &m, nil
}

// ValidateSerializationRoundtrip checks that m survives encode/decode without changing
// its checksum.
func ValidateSerializationRoundtrip(m *state.MatchState) error {
	original, err := ComputeChecksum(m)
	if err != nil {
		return fmt.Errorf("failed to compute original checksum: %w", err)
	}
	data, err := SerializeToBytes(m)
	if err != nil {
		return fmt.Errorf("failed to serialize: %w", err)
	}
	decoded, err := DeserializeFromBytes(data)
	if err != nil {
		return fmt.Errorf("failed to deserialize: %w", err)
	}
	roundtrip, err := ComputeChecksum(decoded)
	if err != nil {
		return fmt.Errorf("failed to compute deserialized checksum: %w", err)
	}
	if original.Hash != roundtrip.Hash {
		return fmt.Errorf("checksum mismatch: original=%s, deserialized=%s", original.Hash, roundtrip.Hash)
	}
	return nil
}
