package state

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Checksum is a deterministic fingerprint of a snapshot, used to guard
// against divergent states across persistence round-trips and resyncs.
type Checksum struct {
	Hash    string
	Version int
}

// ComputeChecksum generates a deterministic checksum of the snapshot.
// The representation is independent of map iteration order so that two
// equal states always hash identically.
func (s *GameState) ComputeChecksum() *Checksum {
	hash := sha256.Sum256([]byte(s.canonicalRepresentation()))
	return &Checksum{
		Hash:    hex.EncodeToString(hash[:]),
		Version: s.Version,
	}
}

// canonicalRepresentation builds a canonical string form of the snapshot.
// Player and battlefield order is significant and preserved; only the
// battlefield index lines are sorted since membership, not position,
// determines equality there for hashing purposes.
func (s *GameState) canonicalRepresentation() string {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("SESSION:%s|%d|%s|%s\n",
		s.SessionID,
		s.Version,
		s.Turn.ActivePlayerID,
		s.Turn.Phase,
	))

	for _, p := range s.Players {
		buf.WriteString(fmt.Sprintf("PLAYER:%s|%s|%d|%d|%d\n",
			p.ID, p.DisplayName, p.Life, len(p.Hand), len(p.Library)))
		for _, c := range p.Hand {
			buf.WriteString(fmt.Sprintf("  HAND:%s|%s\n", c.ID, c.Name))
		}
		for _, c := range p.Library {
			buf.WriteString(fmt.Sprintf("  LIBRARY:%s|%s\n", c.ID, c.Name))
		}
	}

	for _, perm := range s.Battlefield {
		buf.WriteString(fmt.Sprintf("PERMANENT:%s|%s|%s|%s|%s|%s|%t\n",
			perm.ID, perm.OwnerID, perm.Name, perm.Type, perm.Power, perm.Toughness, perm.Tapped))
	}

	ids := make([]string, len(s.Battlefield))
	for i, perm := range s.Battlefield {
		ids[i] = perm.ID
	}
	sort.Strings(ids)
	buf.WriteString("BATTLEFIELD:")
	buf.WriteString(strings.Join(ids, ","))
	buf.WriteString("\n")

	return buf.String()
}

// Serialize encodes the snapshot to bytes using gob. This is the encoding
// used for durable snapshots.
func (s *GameState) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Deserialize decodes a snapshot from gob bytes.
func Deserialize(data []byte) (*GameState, error) {
	var s GameState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &s, nil
}

// ValidateRoundtrip verifies that a snapshot survives serialization without
// data loss by comparing checksums before and after.
func ValidateRoundtrip(s *GameState) error {
	original := s.ComputeChecksum()

	data, err := s.Serialize()
	if err != nil {
		return fmt.Errorf("failed to serialize: %w", err)
	}

	decoded, err := Deserialize(data)
	if err != nil {
		return fmt.Errorf("failed to deserialize: %w", err)
	}

	restored := decoded.ComputeChecksum()
	if original.Hash != restored.Hash {
		return fmt.Errorf("checksum mismatch: original=%s, restored=%s", original.Hash, restored.Hash)
	}
	return nil
}
