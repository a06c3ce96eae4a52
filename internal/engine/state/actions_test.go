package state

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionTargets(t *testing.T) {
	tests := []struct {
		name   string
		action GameAction
		want   []string
	}{
		{
			name:   "draw targets the actor",
			action: GameAction{Type: ActionDraw, ActorID: "alice", Payload: DrawPayload{Count: 2}},
			want:   []string{"alice"},
		},
		{
			name:   "play targets the card",
			action: GameAction{Type: ActionPlay, ActorID: "alice", Payload: PlayPayload{CardID: "a1"}},
			want:   []string{"a1"},
		},
		{
			name:   "tap targets the permanent",
			action: GameAction{Type: ActionTap, ActorID: "alice", Payload: TapPayload{PermanentID: "perm-1"}},
			want:   []string{"perm-1"},
		},
		{
			name:   "change_life targets the actor",
			action: GameAction{Type: ActionChangeLife, ActorID: "bob", Payload: ChangeLifePayload{Delta: -3}},
			want:   []string{"bob"},
		},
		{
			name:   "advance_phase targets the turn token",
			action: GameAction{Type: ActionAdvancePhase, ActorID: "alice", Payload: AdvancePhasePayload{}},
			want:   []string{TurnTarget},
		},
		{
			name:   "unknown payload targets nothing",
			action: GameAction{Type: "mulligan", ActorID: "alice"},
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.action.Targets())
		})
	}
}

func TestValidate(t *testing.T) {
	s := testState()

	tests := []struct {
		name    string
		action  GameAction
		wantErr string
	}{
		{
			name:   "legal draw",
			action: GameAction{Type: ActionDraw, ActorID: "alice", Payload: DrawPayload{Count: 3}},
		},
		{
			name:    "draw beyond library",
			action:  GameAction{Type: ActionDraw, ActorID: "bob", Payload: DrawPayload{Count: 5}},
			wantErr: "cannot draw",
		},
		{
			name:    "draw zero",
			action:  GameAction{Type: ActionDraw, ActorID: "alice", Payload: DrawPayload{Count: 0}},
			wantErr: "must be positive",
		},
		{
			name:   "legal play",
			action: GameAction{Type: ActionPlay, ActorID: "alice", Payload: PlayPayload{CardID: "a1"}},
		},
		{
			name:    "play a card not in hand",
			action:  GameAction{Type: ActionPlay, ActorID: "alice", Payload: PlayPayload{CardID: "a3"}},
			wantErr: "not in hand",
		},
		{
			name:   "legal tap",
			action: GameAction{Type: ActionTap, ActorID: "alice", Payload: TapPayload{PermanentID: "perm-1"}},
		},
		{
			name:    "tap a missing permanent",
			action:  GameAction{Type: ActionTap, ActorID: "alice", Payload: TapPayload{PermanentID: "perm-9"}},
			wantErr: "not on the battlefield",
		},
		{
			name:   "legal life change",
			action: GameAction{Type: ActionChangeLife, ActorID: "bob", Payload: ChangeLifePayload{Delta: -100}},
		},
		{
			name:   "active player advances phase",
			action: GameAction{Type: ActionAdvancePhase, ActorID: "alice", Payload: AdvancePhasePayload{}},
		},
		{
			name:    "non-active player advances phase",
			action:  GameAction{Type: ActionAdvancePhase, ActorID: "bob", Payload: AdvancePhasePayload{}},
			wantErr: "only the active player",
		},
		{
			name:    "unknown actor",
			action:  GameAction{Type: ActionDraw, ActorID: "mallory", Payload: DrawPayload{Count: 1}},
			wantErr: "unknown player",
		},
		{
			name:    "unknown action type",
			action:  GameAction{Type: "mulligan", ActorID: "alice"},
			wantErr: "unknown action type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.action, s)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var invalid *InvalidActionError
			require.ErrorAs(t, err, &invalid)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateTapAlreadyTapped(t *testing.T) {
	s := testState()
	s.Battlefield[0].Tapped = true

	err := Validate(GameAction{Type: ActionTap, ActorID: "alice", Payload: TapPayload{PermanentID: "perm-1"}}, s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already tapped")
}

func TestActionJSONRoundTrip(t *testing.T) {
	original := GameAction{
		Type:        ActionPlay,
		ActorID:     "alice",
		BaseVersion: 7,
		Payload:     PlayPayload{CardID: "a1"},
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded GameAction
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original, decoded)
}

func TestActionJSONAdvancePhaseNeedsNoPayload(t *testing.T) {
	raw := []byte(`{"type":"advance_phase","actor_id":"alice","base_version":3}`)

	var decoded GameAction
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, AdvancePhasePayload{}, decoded.Payload)
	assert.Equal(t, 3, decoded.BaseVersion)
}

func TestActionJSONRejectsUnknownType(t *testing.T) {
	raw := []byte(`{"type":"mulligan","actor_id":"alice","payload":{}}`)

	var decoded GameAction
	err := json.Unmarshal(raw, &decoded)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown action type")
}

func TestActionJSONRejectsMissingPayload(t *testing.T) {
	raw := []byte(`{"type":"draw","actor_id":"alice"}`)

	var decoded GameAction
	err := json.Unmarshal(raw, &decoded)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a payload")
}
