package server

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/duelgrid/syncd/internal/config"
	"github.com/duelgrid/syncd/internal/engine"
	"github.com/duelgrid/syncd/internal/engine/delta"
	"github.com/duelgrid/syncd/internal/engine/state"
	"github.com/duelgrid/syncd/internal/repository"
)

// Hub owns all live sessions. Sessions are fully independent; the hub only
// routes clients to them.
type Hub struct {
	logger    *zap.Logger
	engineCfg config.EngineConfig
	snapshots *repository.SnapshotRepository

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewHub creates a hub. snapshots may be nil when persistence is disabled.
func NewHub(engineCfg config.EngineConfig, snapshots *repository.SnapshotRepository, logger *zap.Logger) *Hub {
	return &Hub{
		logger:    logger,
		engineCfg: engineCfg,
		snapshots: snapshots,
		sessions:  make(map[string]*Session),
	}
}

// CreateSession bootstraps a fresh session from seat data and starts its
// actor goroutine.
func (h *Hub) CreateSession(seats []state.Seat) (*Session, error) {
	initial, err := state.NewSession(seats)
	if err != nil {
		return nil, err
	}
	return h.AdoptSession(initial)
}

// AdoptSession starts a session actor over an existing snapshot, e.g. one
// reloaded from the snapshot repository after a restart.
func (h *Hub) AdoptSession(initial *state.GameState) (*Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.sessions[initial.SessionID]; exists {
		return nil, fmt.Errorf("session %s already exists", initial.SessionID)
	}

	mgr := engine.NewManager(
		h.logger.Named("engine"),
		engine.WithHistoryWindow(h.engineCfg.HistoryWindow),
	)
	var interval time.Duration
	if h.snapshots != nil {
		interval = h.engineCfg.SnapshotInterval
	}
	sess := newSession(initial, mgr,
		delta.NewCompressor(h.engineCfg.DeltaSavingsThreshold),
		h.snapshots, interval, h.logger.Named("session"))
	h.sessions[sess.ID] = sess

	h.logger.Info("session started",
		zap.String("session_id", sess.ID),
		zap.Int("players", len(initial.Players)),
		zap.Int("version", initial.Version),
	)
	return sess, nil
}

// GetSession returns the live session with the given ID.
func (h *Hub) GetSession(id string) (*Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sess, ok := h.sessions[id]
	return sess, ok
}

// CloseAll stops every session actor. Used during graceful shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sess := range h.sessions {
		sess.Close()
		delete(h.sessions, id)
	}
}
