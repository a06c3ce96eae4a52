package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCards(ids ...string) []Card {
	cards := make([]Card, len(ids))
	for i, id := range ids {
		cards[i] = Card{ID: id, Name: "Card " + id, Type: "Creature"}
	}
	return cards
}

func testState() *GameState {
	return &GameState{
		SessionID: "session-1",
		Version:   0,
		Players: []Player{
			{
				ID:          "alice",
				DisplayName: "Alice",
				Hand:        testCards("a1", "a2"),
				Library:     testCards("a3", "a4", "a5"),
				Life:        20,
			},
			{
				ID:          "bob",
				DisplayName: "Bob",
				Hand:        testCards("b1"),
				Library:     testCards("b2", "b3"),
				Life:        20,
			},
		},
		Battlefield: []Permanent{
			{ID: "perm-1", OwnerID: "alice", Name: "Grizzly Bears", Type: "Creature", Power: "2", Toughness: "2"},
		},
		Turn: Turn{ActivePlayerID: "alice", Phase: PhaseMain1},
	}
}

func TestCloneIsDeep(t *testing.T) {
	original := testState()
	cp := original.Clone()

	require.Equal(t, original, cp)

	cp.Players[0].Life = 5
	cp.Players[0].Hand[0].Name = "mutated"
	cp.Players[1].Library = cp.Players[1].Library[:1]
	cp.Battlefield[0].Tapped = true
	cp.Turn.Phase = PhaseEnd

	assert.Equal(t, 20, original.Players[0].Life)
	assert.Equal(t, "Card a1", original.Players[0].Hand[0].Name)
	assert.Len(t, original.Players[1].Library, 2)
	assert.False(t, original.Battlefield[0].Tapped)
	assert.Equal(t, PhaseMain1, original.Turn.Phase)
}

func TestLookups(t *testing.T) {
	s := testState()

	require.NotNil(t, s.Player("bob"))
	assert.Equal(t, "Bob", s.Player("bob").DisplayName)
	assert.Nil(t, s.Player("nobody"))

	require.NotNil(t, s.Permanent("perm-1"))
	assert.Nil(t, s.Permanent("perm-2"))

	require.NotNil(t, s.HandCard("alice", "a1"))
	assert.Nil(t, s.HandCard("alice", "b1"))
	assert.Nil(t, s.HandCard("nobody", "a1"))
}

func TestNextPlayerIDWraps(t *testing.T) {
	s := testState()
	assert.Equal(t, "bob", s.NextPlayerID("alice"))
	assert.Equal(t, "alice", s.NextPlayerID("bob"))
}

func TestNewSession(t *testing.T) {
	seats := []Seat{
		{DisplayName: "Alice", Hand: testCards("a1"), Library: testCards("a2", "a3")},
		{PlayerID: "bob", DisplayName: "Bob", Life: 40},
	}

	s, err := NewSession(seats)
	require.NoError(t, err)

	assert.NotEmpty(t, s.SessionID)
	assert.Equal(t, 0, s.Version)
	require.Len(t, s.Players, 2)

	assert.NotEmpty(t, s.Players[0].ID)
	assert.Equal(t, 20, s.Players[0].Life)
	assert.Equal(t, "bob", s.Players[1].ID)
	assert.Equal(t, 40, s.Players[1].Life)

	assert.Equal(t, s.Players[0].ID, s.Turn.ActivePlayerID)
	assert.Equal(t, PhaseUntap, s.Turn.Phase)
}

func TestNewSessionRequiresTwoPlayers(t *testing.T) {
	_, err := NewSession([]Seat{{DisplayName: "Solo"}})
	assert.Error(t, err)
}
