package server

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/duelgrid/syncd/internal/config"
	"github.com/duelgrid/syncd/internal/engine/delta"
	"github.com/duelgrid/syncd/internal/engine/state"
)

func testHub() *Hub {
	return NewHub(config.EngineConfig{
		HistoryWindow:         50,
		DeltaSavingsThreshold: 0.0,
	}, nil, zap.NewNop())
}

func testSeats() []state.Seat {
	return []state.Seat{
		{
			PlayerID:    "alice",
			DisplayName: "Alice",
			Hand:        []state.Card{{ID: "a1", Name: "Grizzly Bears", Type: "Creature"}},
			Library: []state.Card{
				{ID: "a2", Name: "Forest", Type: "Land"},
				{ID: "a3", Name: "Forest", Type: "Land"},
			},
		},
		{PlayerID: "bob", DisplayName: "Bob", Library: []state.Card{{ID: "b1", Name: "Island", Type: "Land"}}},
	}
}

func receiveFrame(t *testing.T, ch chan []byte) Frame {
	t.Helper()
	select {
	case raw := <-ch:
		var f Frame
		require.NoError(t, json.Unmarshal(raw, &f))
		return f
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
		return Frame{}
	}
}

func TestHubCreateAndGetSession(t *testing.T) {
	h := testHub()

	sess, err := h.CreateSession(testSeats())
	require.NoError(t, err)
	defer sess.Close()

	got, ok := h.GetSession(sess.ID)
	require.True(t, ok)
	assert.Same(t, sess, got)

	_, ok = h.GetSession("nope")
	assert.False(t, ok)
}

func TestSubscribeDeliversCatchupState(t *testing.T) {
	h := testHub()
	sess, err := h.CreateSession(testSeats())
	require.NoError(t, err)
	defer sess.Close()

	ch := make(chan []byte, 8)
	catchup := sess.Subscribe(ch)
	defer sess.Unsubscribe(ch)

	var f Frame
	require.NoError(t, json.Unmarshal(catchup, &f))
	assert.Equal(t, "state", f.Type)
	assert.Equal(t, 0, f.Version)
	require.NotNil(t, f.State)
	assert.Equal(t, sess.ID, f.State.SessionID)
}

func TestSubmitBroadcastsDelta(t *testing.T) {
	h := testHub()
	sess, err := h.CreateSession(testSeats())
	require.NoError(t, err)
	defer sess.Close()

	before := sess.CurrentState()

	ch := make(chan []byte, 8)
	sess.Subscribe(ch)
	defer sess.Unsubscribe(ch)

	next, err := sess.Submit(state.GameAction{
		Type:        state.ActionChangeLife,
		ActorID:     "alice",
		BaseVersion: 0,
		Payload:     state.ChangeLifePayload{Delta: -4},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, next.Version)
	assert.Equal(t, 16, next.Player("alice").Life)

	f := receiveFrame(t, ch)
	require.Equal(t, "delta", f.Type)
	require.NotNil(t, f.Delta)

	// A subscriber holding the previous state reconstructs the new one
	// from the broadcast delta alone.
	reconstructed, err := delta.Apply(before, f.Delta)
	require.NoError(t, err)
	assert.Equal(t, next, reconstructed)
}

func TestSubmitInvalidActionReturnsError(t *testing.T) {
	h := testHub()
	sess, err := h.CreateSession(testSeats())
	require.NoError(t, err)
	defer sess.Close()

	_, err = sess.Submit(state.GameAction{
		Type:        state.ActionPlay,
		ActorID:     "bob",
		BaseVersion: 0,
		Payload:     state.PlayPayload{CardID: "missing"},
	})
	var invalid *state.InvalidActionError
	require.ErrorAs(t, err, &invalid)
}

func TestUndoBroadcastsFullState(t *testing.T) {
	h := testHub()
	sess, err := h.CreateSession(testSeats())
	require.NoError(t, err)
	defer sess.Close()

	_, err = sess.Submit(state.GameAction{
		Type:        state.ActionChangeLife,
		ActorID:     "alice",
		BaseVersion: 0,
		Payload:     state.ChangeLifePayload{Delta: -4},
	})
	require.NoError(t, err)

	ch := make(chan []byte, 8)
	sess.Subscribe(ch)
	defer sess.Unsubscribe(ch)

	undone, err := sess.Undo(1)
	require.NoError(t, err)
	assert.Equal(t, 0, undone.Version)

	f := receiveFrame(t, ch)
	assert.Equal(t, "state", f.Type)
	assert.Equal(t, 0, f.Version)
	require.NotNil(t, f.State)
	assert.Equal(t, 20, f.State.Player("alice").Life)

	redone, err := sess.Redo(1)
	require.NoError(t, err)
	assert.Equal(t, 1, redone.Version)
}

func TestConcurrentSubmitsConverge(t *testing.T) {
	h := testHub()
	sess, err := h.CreateSession(testSeats())
	require.NoError(t, err)
	defer sess.Close()

	// Both clients formed their action at version 0; the session actor
	// serializes them and the commutative life deltas stack.
	done := make(chan error, 2)
	for _, d := range []int{-3, -5} {
		go func(d int) {
			_, err := sess.Submit(state.GameAction{
				Type:        state.ActionChangeLife,
				ActorID:     "alice",
				BaseVersion: 0,
				Payload:     state.ChangeLifePayload{Delta: d},
			})
			done <- err
		}(d)
	}
	require.NoError(t, <-done)
	require.NoError(t, <-done)

	final := sess.CurrentState()
	assert.Equal(t, 2, final.Version)
	assert.Equal(t, 12, final.Player("alice").Life)
}

func TestDuplicateSessionRejected(t *testing.T) {
	h := testHub()
	sess, err := h.CreateSession(testSeats())
	require.NoError(t, err)
	defer sess.Close()

	_, err = h.AdoptSession(sess.CurrentState())
	assert.Error(t, err)
}
