package engine

import (
	"github.com/duelgrid/syncd/internal/engine/classify"
	"github.com/duelgrid/syncd/internal/engine/state"
)

// historyEntry pairs a retained snapshot with the record of the action that
// produced it. The seed entry at version 0 carries a zero record.
type historyEntry struct {
	version int
	state   *state.GameState
	record  classify.Record
}

// history is the append-only, size-bounded version window for one session,
// with a cursor for undo/redo. The cursor points at the current state;
// entries past the cursor are redo candidates until a fresh apply
// supersedes them. History is linear: a new entry after an undo overwrites
// the abandoned future, never branches.
type history struct {
	entries []*historyEntry
	cursor  int
	limit   int
}

func newHistory(limit int) *history {
	return &history{
		entries: make([]*historyEntry, 0, limit),
		cursor:  -1,
		limit:   limit,
	}
}

func (h *history) seed(s *state.GameState) {
	h.entries = append(h.entries, &historyEntry{version: s.Version, state: s})
	h.cursor = 0
}

// current returns the entry under the cursor.
func (h *history) current() *historyEntry {
	return h.entries[h.cursor]
}

func (h *history) oldestVersion() int {
	return h.entries[0].version
}

func (h *history) newestVersion() int {
	return h.entries[len(h.entries)-1].version
}

// append records a new entry after the cursor, discarding any abandoned
// redo entries, and evicts the oldest entry once the window bound is
// exceeded.
func (h *history) append(e *historyEntry) {
	h.entries = append(h.entries[:h.cursor+1], e)
	h.cursor = len(h.entries) - 1
	if len(h.entries) > h.limit {
		drop := len(h.entries) - h.limit
		h.entries = h.entries[drop:]
		h.cursor -= drop
	}
}

// recordsSince returns the records of every entry folded in after
// baseVersion, up to and including the cursor. Each entry carries the
// record of the transition that produced it, so classification is possible
// whenever every version after baseVersion is still retained. ok is false
// when baseVersion predates that span and the intervening edits can no
// longer be inspected.
func (h *history) recordsSince(baseVersion int) (records []classify.Record, ok bool) {
	if baseVersion < h.oldestVersion()-1 {
		return nil, false
	}
	for i := 0; i <= h.cursor; i++ {
		e := h.entries[i]
		if e.version > baseVersion {
			records = append(records, e.record)
		}
	}
	return records, true
}

// stateAt looks up a retained version. Entries past the cursor are still
// retained after an undo and remain visible until superseded.
func (h *history) stateAt(version int) (*state.GameState, bool) {
	for _, e := range h.entries {
		if e.version == version {
			return e.state, true
		}
	}
	return nil, false
}

// versions lists every retained version, including redo entries past the
// cursor, in ascending order.
func (h *history) versions() []int {
	out := make([]int, len(h.entries))
	for i, e := range h.entries {
		out[i] = e.version
	}
	return out
}

// back moves the cursor steps entries toward the oldest retained version.
func (h *history) back(steps int) (*historyEntry, error) {
	target := h.cursor - steps
	if target < 0 {
		return nil, &VersionNotRetainedError{
			Requested: h.current().version - steps,
			Oldest:    h.oldestVersion(),
			Newest:    h.newestVersion(),
		}
	}
	h.cursor = target
	return h.entries[h.cursor], nil
}

// forward moves the cursor steps entries toward the newest retained version.
func (h *history) forward(steps int) (*historyEntry, error) {
	target := h.cursor + steps
	if target >= len(h.entries) {
		return nil, &VersionNotRetainedError{
			Requested: h.current().version + steps,
			Oldest:    h.oldestVersion(),
			Newest:    h.newestVersion(),
		}
	}
	h.cursor = target
	return h.entries[h.cursor], nil
}
