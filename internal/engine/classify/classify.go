// Package classify decides how a late-arriving action folds into a session
// whose state has moved past the action's base version: applied as authored,
// composed commutatively, or rewritten to a no-op under first-committer-wins.
package classify

import (
	"fmt"

	"github.com/duelgrid/syncd/internal/engine/state"
)

// Class is the outcome of comparing an action against the edits folded in
// since its base version.
type Class int

const (
	// ClassIndependent means no intervening edit touched the action's
	// targets; the action applies exactly as authored against the current
	// state.
	ClassIndependent Class = iota
	// ClassCommutative means intervening edits touched the same target but
	// every such pairing is declared commutative; the action's operation
	// composes with them instead of overwriting.
	ClassCommutative
	// ClassConflicting means an intervening edit already committed a
	// mutually exclusive transition on the same target; the action is
	// rewritten to a recorded no-op.
	ClassConflicting
)

var classNames = map[Class]string{
	ClassIndependent: "INDEPENDENT",
	ClassCommutative: "COMMUTATIVE",
	ClassConflicting: "CONFLICTING",
}

func (c Class) String() string {
	if name, ok := classNames[c]; ok {
		return name
	}
	return fmt.Sprintf("CLASS_%d", int(c))
}

// Record summarizes an action already folded into history. The engine keeps
// these instead of the actions themselves: type, actor, touched targets, and
// how the action was classified when it committed.
type Record struct {
	Type    state.ActionType
	ActorID string
	Targets []string
	Class   Class
	NoOp    bool
}

type pairKey struct {
	a, b state.ActionType
}

func orderedKey(a, b state.ActionType) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{a: a, b: b}
}

// Registry is the explicit table of action-type pairs whose effects compose
// on a shared target. Commutativity is a game-design decision declared per
// pair, never inferred; unknown pairings fail closed to conflicting.
type Registry struct {
	pairs map[pairKey]struct{}
}

// NewRegistry returns a registry with the built-in commutative pairs:
// life-total deltas with life-total deltas, and draw counts with draw
// counts, each on the same player.
func NewRegistry() *Registry {
	r := &Registry{pairs: make(map[pairKey]struct{})}
	r.Register(state.ActionChangeLife, state.ActionChangeLife)
	r.Register(state.ActionDraw, state.ActionDraw)
	return r
}

// Register declares that actions of type a and type b compose commutatively
// when they touch the same target. Registration is symmetric.
func (r *Registry) Register(a, b state.ActionType) {
	r.pairs[orderedKey(a, b)] = struct{}{}
}

// Commutes reports whether the two action types are declared commutative.
func (r *Registry) Commutes(a, b state.ActionType) bool {
	_, ok := r.pairs[orderedKey(a, b)]
	return ok
}

// Classify compares an action against the records folded in between its
// base version and the current version, in priority order: independent,
// then commutative, then conflicting. It never fails; unknown action types
// conflict with any intervening edit on a shared target and are independent
// otherwise.
func (r *Registry) Classify(action state.GameAction, intervening []Record) Class {
	targets := action.Targets()
	if len(targets) == 0 {
		return ClassIndependent
	}

	overlapped := false
	for _, rec := range intervening {
		// No-op records committed nothing; they cannot have won a
		// mutually exclusive transition.
		if rec.NoOp {
			continue
		}
		if !intersects(targets, rec.Targets) {
			continue
		}
		overlapped = true
		if !r.Commutes(action.Type, rec.Type) {
			return ClassConflicting
		}
	}

	if overlapped {
		return ClassCommutative
	}
	return ClassIndependent
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
