// Package state holds the versioned session snapshot model shared by the
// conflict classifier, the state manager, and the delta compressor.
package state

// Card represents a card in a hand or library.
type Card struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Power     string `json:"power,omitempty"`
	Toughness string `json:"toughness,omitempty"`
}

// Permanent represents a card that has been played onto the battlefield.
// Its ID is the ID of the card it was played from and is unique for the
// lifetime of the session.
type Permanent struct {
	ID        string `json:"id"`
	OwnerID   string `json:"owner_id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Power     string `json:"power,omitempty"`
	Toughness string `json:"toughness,omitempty"`
	Tapped    bool   `json:"tapped"`
}

// Player represents a seated participant. The player list of a session is
// order-significant (turn order) and fixed in length after initialization.
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Hand        []Card `json:"hand"`
	Library     []Card `json:"library"`
	Life        int    `json:"life"`
}

// Turn tracks whose turn it is and which phase is in progress.
type Turn struct {
	ActivePlayerID string `json:"active_player_id"`
	Phase          Phase  `json:"phase"`
}

// GameState is a versioned snapshot of one session. Snapshots are immutable
// by convention: every transition clones the previous snapshot and bumps
// Version by exactly one.
type GameState struct {
	SessionID   string      `json:"session_id"`
	Version     int         `json:"version"`
	Players     []Player    `json:"players"`
	Battlefield []Permanent `json:"battlefield"`
	Turn        Turn        `json:"turn"`
}

// Clone returns a deep copy of the state. Mutating the copy never affects
// the original.
func (s *GameState) Clone() *GameState {
	cp := &GameState{
		SessionID:   s.SessionID,
		Version:     s.Version,
		Players:     make([]Player, len(s.Players)),
		Battlefield: make([]Permanent, len(s.Battlefield)),
		Turn:        s.Turn,
	}
	for i, p := range s.Players {
		cp.Players[i] = Player{
			ID:          p.ID,
			DisplayName: p.DisplayName,
			Hand:        append([]Card(nil), p.Hand...),
			Library:     append([]Card(nil), p.Library...),
			Life:        p.Life,
		}
	}
	copy(cp.Battlefield, s.Battlefield)
	return cp
}

// Player returns a pointer into s.Players for the given player ID.
func (s *GameState) Player(id string) *Player {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return &s.Players[i]
		}
	}
	return nil
}

// Permanent returns a pointer into s.Battlefield for the given permanent ID.
func (s *GameState) Permanent(id string) *Permanent {
	for i := range s.Battlefield {
		if s.Battlefield[i].ID == id {
			return &s.Battlefield[i]
		}
	}
	return nil
}

// HandCard returns the card with the given ID from the player's hand.
func (s *GameState) HandCard(playerID, cardID string) *Card {
	p := s.Player(playerID)
	if p == nil {
		return nil
	}
	for i := range p.Hand {
		if p.Hand[i].ID == cardID {
			return &p.Hand[i]
		}
	}
	return nil
}

// NextPlayerID returns the player seated after the given player in turn
// order, wrapping around the table.
func (s *GameState) NextPlayerID(afterID string) string {
	for i := range s.Players {
		if s.Players[i].ID == afterID {
			return s.Players[(i+1)%len(s.Players)].ID
		}
	}
	if len(s.Players) > 0 {
		return s.Players[0].ID
	}
	return ""
}
