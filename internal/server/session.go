// Package server is the session-coordination layer over the engine: one
// goroutine per session owns that session's manager (the single-writer
// discipline the engine requires), and a WebSocket hub fans resulting
// deltas or snapshots out to connected participants.
package server

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/duelgrid/syncd/internal/engine"
	"github.com/duelgrid/syncd/internal/engine/delta"
	"github.com/duelgrid/syncd/internal/engine/state"
	"github.com/duelgrid/syncd/internal/repository"
)

// Frame is the outbound message shape sent to session participants.
type Frame struct {
	Type           string           `json:"type"` // "state" | "delta" | "error"
	SessionID      string           `json:"session_id"`
	Version        int              `json:"version,omitempty"`
	State          *state.GameState `json:"state,omitempty"`
	Delta          *delta.Delta     `json:"delta,omitempty"`
	Error          string           `json:"error,omitempty"`
	ResyncRequired bool             `json:"resync_required,omitempty"`
}

// Session is the actor owning one engine manager. All engine calls run on
// the session goroutine; public methods hand closures to it and wait.
type Session struct {
	ID string

	manager          *engine.Manager
	compressor       delta.Compressor
	snapshots        *repository.SnapshotRepository
	snapshotInterval time.Duration
	logger           *zap.Logger

	commands    chan func()
	subscribers map[chan []byte]struct{}
	done        chan struct{}
}

func newSession(initial *state.GameState, mgr *engine.Manager, compressor delta.Compressor,
	snapshots *repository.SnapshotRepository, snapshotInterval time.Duration, logger *zap.Logger) *Session {

	mgr.Initialize(initial)
	s := &Session{
		ID:               initial.SessionID,
		manager:          mgr,
		compressor:       compressor,
		snapshots:        snapshots,
		snapshotInterval: snapshotInterval,
		logger:           logger,
		commands:         make(chan func(), 16),
		subscribers:      make(map[chan []byte]struct{}),
		done:             make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Session) run() {
	var snapshotTick <-chan time.Time
	if s.snapshots != nil && s.snapshotInterval > 0 {
		ticker := time.NewTicker(s.snapshotInterval)
		defer ticker.Stop()
		snapshotTick = ticker.C
	}

	for {
		select {
		case fn := <-s.commands:
			fn()
		case <-snapshotTick:
			s.persistSnapshot()
		case <-s.done:
			return
		}
	}
}

// do runs fn on the session goroutine and waits for it to finish.
func (s *Session) do(fn func()) {
	ran := make(chan struct{})
	select {
	case s.commands <- func() { fn(); close(ran) }:
		<-ran
	case <-s.done:
	}
}

// Close stops the session goroutine.
func (s *Session) Close() {
	close(s.done)
}

// Subscribe registers an outbound channel for broadcast frames and returns
// the current state frame for the new participant to catch up from.
func (s *Session) Subscribe(ch chan []byte) (catchup []byte) {
	s.do(func() {
		s.subscribers[ch] = struct{}{}
		cur := s.manager.CurrentState()
		catchup = marshalFrame(Frame{
			Type:      "state",
			SessionID: s.ID,
			Version:   cur.Version,
			State:     cur,
		})
	})
	return catchup
}

// Unsubscribe removes an outbound channel.
func (s *Session) Unsubscribe(ch chan []byte) {
	s.do(func() {
		delete(s.subscribers, ch)
	})
}

// Submit folds one action into the session and broadcasts the resulting
// transition as either a delta or a full state, per the compressor's
// advisory.
func (s *Session) Submit(a state.GameAction) (next *state.GameState, err error) {
	s.do(func() {
		prev := s.manager.CurrentState()
		next, err = s.manager.ApplyAction(a)
		if err != nil {
			return
		}
		s.broadcastTransition(prev, next)
	})
	return next, err
}

// Undo repositions the session steps versions back and broadcasts the
// resulting state in full (a cursor move has no cheap delta base shared by
// all participants).
func (s *Session) Undo(steps int) (st *state.GameState, err error) {
	s.do(func() {
		st, err = s.manager.Undo(steps)
		if err != nil {
			return
		}
		s.broadcastState(st)
	})
	return st, err
}

// Redo is the inverse of Undo.
func (s *Session) Redo(steps int) (st *state.GameState, err error) {
	s.do(func() {
		st, err = s.manager.Redo(steps)
		if err != nil {
			return
		}
		s.broadcastState(st)
	})
	return st, err
}

// CurrentState returns the session's current snapshot.
func (s *Session) CurrentState() (st *state.GameState) {
	s.do(func() {
		st = s.manager.CurrentState()
	})
	return st
}

func (s *Session) broadcastTransition(prev, next *state.GameState) {
	d := delta.Create(prev, next)
	var f Frame
	if s.compressor.ShouldUse(next, d) {
		f = Frame{Type: "delta", SessionID: s.ID, Version: next.Version, Delta: d}
	} else {
		f = Frame{Type: "state", SessionID: s.ID, Version: next.Version, State: next}
	}
	s.broadcast(marshalFrame(f))
}

func (s *Session) broadcastState(st *state.GameState) {
	s.broadcast(marshalFrame(Frame{
		Type:      "state",
		SessionID: s.ID,
		Version:   st.Version,
		State:     st,
	}))
}

func (s *Session) broadcast(msg []byte) {
	for ch := range s.subscribers {
		select {
		case ch <- msg:
		default:
			// Slow consumer: drop it rather than stall the session.
			delete(s.subscribers, ch)
			close(ch)
		}
	}
}

func (s *Session) persistSnapshot() {
	cur := s.manager.CurrentState()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.snapshots.Save(ctx, cur); err != nil {
		s.logger.Warn("failed to persist snapshot",
			zap.String("session_id", s.ID),
			zap.Int("version", cur.Version),
			zap.Error(err),
		)
	}
}

func marshalFrame(f Frame) []byte {
	msg, err := json.Marshal(f)
	if err != nil {
		// Frames contain only engine types that always marshal.
		panic(err)
	}
	return msg
}
