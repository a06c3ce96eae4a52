package delta

import (
	"encoding/json"
	"fmt"

	"github.com/duelgrid/syncd/internal/engine/state"
)

// Compressor carries the advisory policy for choosing between propagating
// a delta and propagating a full snapshot. The decision is purely advisory:
// the transport layer decides whether to honor it.
type Compressor struct {
	// SavingsThreshold is the minimum compression ratio at which a delta
	// is worth sending. Zero means any positive savings qualifies.
	SavingsThreshold float64
}

// NewCompressor returns a compressor with the given savings threshold.
func NewCompressor(savingsThreshold float64) Compressor {
	return Compressor{SavingsThreshold: savingsThreshold}
}

// Ratio returns 1 - size(delta)/size(fullState) over serialized byte
// lengths. Negative when the delta is larger than the snapshot it replaces,
// as happens for full-state rewrites.
func (c Compressor) Ratio(fullState *state.GameState, d *Delta) (float64, error) {
	stateBytes, err := json.Marshal(fullState)
	if err != nil {
		return 0, fmt.Errorf("failed to encode state: %w", err)
	}
	deltaBytes, err := json.Marshal(d)
	if err != nil {
		return 0, fmt.Errorf("failed to encode delta: %w", err)
	}
	if len(stateBytes) == 0 {
		return 0, nil
	}
	return 1 - float64(len(deltaBytes))/float64(len(stateBytes)), nil
}

// ShouldUse reports whether propagating the delta is materially cheaper
// than the full snapshot, per the configured threshold.
func (c Compressor) ShouldUse(fullState *state.GameState, d *Delta) bool {
	ratio, err := c.Ratio(fullState, d)
	if err != nil {
		return false
	}
	return ratio > c.SavingsThreshold
}
