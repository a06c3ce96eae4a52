// Package engine implements deterministic convergence for concurrent edits
// to a shared session state: per-action conflict classification, bounded
// version history with undo/redo, and typed failure reporting.
package engine

import (
	"go.uber.org/zap"

	"github.com/duelgrid/syncd/internal/engine/classify"
	"github.com/duelgrid/syncd/internal/engine/state"
)

// DefaultHistoryWindow is the number of versions retained for undo/redo
// when no limit is configured.
const DefaultHistoryWindow = 100

// Manager orchestrates classification and application for one session and
// owns its bounded version history. A Manager is the sole mutator of its
// session and is not internally synchronized: callers must serialize access
// per session (one goroutine per session, as internal/server does).
type Manager struct {
	logger   *zap.Logger
	registry *classify.Registry
	hist     *history
}

// Option configures a Manager.
type Option func(*Manager)

// WithHistoryWindow bounds the number of retained versions.
func WithHistoryWindow(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.hist.limit = n
		}
	}
}

// WithRegistry replaces the default commutativity registry.
func WithRegistry(r *classify.Registry) Option {
	return func(m *Manager) {
		m.registry = r
	}
}

// NewManager creates a manager for one session. Initialize must be called
// before any other method.
func NewManager(logger *zap.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		logger:   logger,
		registry: classify.NewRegistry(),
		hist:     newHistory(DefaultHistoryWindow),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize seeds history with the given state, expected at version 0.
// Calling it twice, or calling any other method before it, is a
// programming-contract violation and panics.
func (m *Manager) Initialize(s *state.GameState) {
	if m.hist.cursor >= 0 {
		panic("engine: manager already initialized")
	}
	m.hist.seed(s.Clone())

	m.logger.Debug("session initialized",
		zap.String("session_id", s.SessionID),
		zap.Int("version", s.Version),
		zap.Int("history_window", m.hist.limit),
	)
}

func (m *Manager) mustBeInitialized() {
	if m.hist.cursor < 0 {
		panic("engine: manager used before Initialize")
	}
}

// ApplyAction folds one action into the session. The action is classified
// against everything folded in since its base version, resolved to an
// effect (as authored, composed, or no-op), applied to the current state,
// and recorded in history at version+1. Invalid actions return a typed
// error and do not advance the version counter. A base version that
// predates the retained window returns VersionNotRetainedError: the
// intervening edits needed for classification are gone and the client must
// resync.
func (m *Manager) ApplyAction(a state.GameAction) (*state.GameState, error) {
	m.mustBeInitialized()

	cur := m.hist.current().state

	if a.BaseVersion > cur.Version {
		return nil, &state.InvalidActionError{
			Type:    a.Type,
			ActorID: a.ActorID,
			Reason:  "base version is ahead of the session",
		}
	}

	intervening, ok := m.hist.recordsSince(a.BaseVersion)
	if !ok {
		return nil, &VersionNotRetainedError{
			Requested: a.BaseVersion,
			Oldest:    m.hist.oldestVersion(),
			Newest:    m.hist.newestVersion(),
		}
	}

	class := m.registry.Classify(a, intervening)

	record := classify.Record{
		Type:    a.Type,
		ActorID: a.ActorID,
		Targets: a.Targets(),
		Class:   class,
	}

	var next *state.GameState
	if class == classify.ClassConflicting {
		// First committer wins: the intervening edit stands and this
		// action becomes a recorded no-op, not an error.
		record.NoOp = true
		next = noOpEffect(cur)
	} else {
		if err := state.Validate(a, cur); err != nil {
			m.logger.Debug("action rejected",
				zap.String("session_id", cur.SessionID),
				zap.String("action_type", string(a.Type)),
				zap.String("actor_id", a.ActorID),
				zap.Error(err),
			)
			return nil, err
		}
		applied, err := applyEffect(cur, a)
		if err != nil {
			return nil, err
		}
		next = applied
	}

	m.hist.append(&historyEntry{version: next.Version, state: next, record: record})

	m.logger.Debug("action applied",
		zap.String("session_id", next.SessionID),
		zap.String("action_type", string(a.Type)),
		zap.String("actor_id", a.ActorID),
		zap.String("class", class.String()),
		zap.Bool("no_op", record.NoOp),
		zap.Int("version", next.Version),
	)

	return next, nil
}

// Undo repositions the cursor steps versions behind the current state and
// returns the state there. It creates no new versions; the skipped entries
// stay retained for Redo until a fresh ApplyAction supersedes them.
func (m *Manager) Undo(steps int) (*state.GameState, error) {
	m.mustBeInitialized()
	e, err := m.hist.back(steps)
	if err != nil {
		return nil, err
	}
	return e.state, nil
}

// Redo moves the cursor forward over entries previously stepped back over.
func (m *Manager) Redo(steps int) (*state.GameState, error) {
	m.mustBeInitialized()
	e, err := m.hist.forward(steps)
	if err != nil {
		return nil, err
	}
	return e.state, nil
}

// CurrentState returns the snapshot under the cursor.
func (m *Manager) CurrentState() *state.GameState {
	m.mustBeInitialized()
	return m.hist.current().state
}

// CurrentVersion returns the version under the cursor.
func (m *Manager) CurrentVersion() int {
	m.mustBeInitialized()
	return m.hist.current().version
}

// StateAtVersion returns the retained snapshot at the given version, or
// false when it was evicted or never produced.
func (m *Manager) StateAtVersion(v int) (*state.GameState, bool) {
	m.mustBeInitialized()
	return m.hist.stateAt(v)
}

// AvailableVersions lists every retained version in ascending order, for
// diagnostics and tests.
func (m *Manager) AvailableVersions() []int {
	m.mustBeInitialized()
	return m.hist.versions()
}
