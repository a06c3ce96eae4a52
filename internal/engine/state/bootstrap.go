package state

import (
	"fmt"

	"github.com/google/uuid"
)

const defaultStartingLife = 20

// Seat describes one participant at session creation time. Hand and Library
// composition come from whatever lobby or deck data the caller holds.
type Seat struct {
	PlayerID    string // generated when empty
	DisplayName string
	Hand        []Card
	Library     []Card
	Life        int // defaults to 20 when zero
}

// NewCard builds a card with a generated ID.
func NewCard(name, cardType string) Card {
	return Card{
		ID:   uuid.NewString(),
		Name: name,
		Type: cardType,
	}
}

// NewSession builds the version-0 snapshot for a fresh session. Seat order
// is turn order; the first seat starts as the active player in the untap
// phase.
func NewSession(seats []Seat) (*GameState, error) {
	if len(seats) < 2 {
		return nil, fmt.Errorf("session requires at least 2 players, got %d", len(seats))
	}

	s := &GameState{
		SessionID: uuid.NewString(),
		Version:   0,
		Players:   make([]Player, len(seats)),
	}
	for i, seat := range seats {
		id := seat.PlayerID
		if id == "" {
			id = uuid.NewString()
		}
		life := seat.Life
		if life == 0 {
			life = defaultStartingLife
		}
		s.Players[i] = Player{
			ID:          id,
			DisplayName: seat.DisplayName,
			Hand:        append([]Card(nil), seat.Hand...),
			Library:     append([]Card(nil), seat.Library...),
			Life:        life,
		}
	}
	s.Turn = Turn{ActivePlayerID: s.Players[0].ID, Phase: PhaseUntap}
	return s, nil
}
