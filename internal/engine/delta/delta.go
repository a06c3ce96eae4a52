// Package delta computes structural diffs between session snapshots and
// replays them, so the transport layer can propagate compact transitions
// instead of full states when that actually saves bytes.
package delta

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/duelgrid/syncd/internal/engine/state"
)

// OpKind is the primitive operation kind of a delta entry.
type OpKind string

const (
	OpSet    OpKind = "set"
	OpAppend OpKind = "append"
	OpRemove OpKind = "remove"
)

// Operation is one primitive step of a delta. Path addresses a structural
// location in the snapshot ("players/<id>/life", "battlefield/<id>/tapped",
// "turn", ...); Value is the JSON-encoded operand.
type Operation struct {
	Kind  OpKind          `json:"op"`
	Path  string          `json:"path"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Delta is an ordered list of operations sufficient to transform the
// snapshot at FromVersion into the one at ToVersion. It is a derived,
// disposable artifact; the retained snapshots stay the source of truth.
type Delta struct {
	SessionID   string      `json:"session_id"`
	FromVersion int         `json:"from_version"`
	ToVersion   int         `json:"to_version"`
	Ops         []Operation `json:"ops"`
}

func mustRaw(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		// All operand types are plain structs and primitives; a marshal
		// failure here is a bug, not an input condition.
		panic(fmt.Sprintf("delta: failed to encode operand: %v", err))
	}
	return raw
}

// Create computes a structural diff between two snapshots. Diffing
// snapshots from different sessions or non-adjacent versions is allowed
// mechanically; the caller owns semantic validity.
func Create(oldState, newState *state.GameState) *Delta {
	d := &Delta{
		SessionID:   newState.SessionID,
		FromVersion: oldState.Version,
		ToVersion:   newState.Version,
	}

	if oldState.SessionID != newState.SessionID {
		d.Ops = append(d.Ops, Operation{Kind: OpSet, Path: "session", Value: mustRaw(newState.SessionID)})
	}
	if oldState.Version != newState.Version {
		d.Ops = append(d.Ops, Operation{Kind: OpSet, Path: "version", Value: mustRaw(newState.Version)})
	}

	d.Ops = append(d.Ops, diffPlayers(oldState.Players, newState.Players)...)
	d.Ops = append(d.Ops, diffBattlefield(oldState.Battlefield, newState.Battlefield)...)

	if oldState.Turn != newState.Turn {
		d.Ops = append(d.Ops, Operation{Kind: OpSet, Path: "turn", Value: mustRaw(newState.Turn)})
	}

	return d
}

func diffPlayers(oldPlayers, newPlayers []state.Player) []Operation {
	// The player list is fixed in length and order after initialization.
	// If ids or ordering differ anyway (cross-session diff), fall back to
	// replacing the whole list.
	if len(oldPlayers) != len(newPlayers) {
		return []Operation{{Kind: OpSet, Path: "players", Value: mustRaw(newPlayers)}}
	}
	for i := range oldPlayers {
		if oldPlayers[i].ID != newPlayers[i].ID {
			return []Operation{{Kind: OpSet, Path: "players", Value: mustRaw(newPlayers)}}
		}
	}

	var ops []Operation
	for i := range oldPlayers {
		oldP, newP := &oldPlayers[i], &newPlayers[i]
		prefix := "players/" + oldP.ID
		if oldP.DisplayName != newP.DisplayName {
			ops = append(ops, Operation{Kind: OpSet, Path: prefix + "/name", Value: mustRaw(newP.DisplayName)})
		}
		if oldP.Life != newP.Life {
			ops = append(ops, Operation{Kind: OpSet, Path: prefix + "/life", Value: mustRaw(newP.Life)})
		}
		ops = append(ops, diffCardList(prefix+"/hand", oldP.Hand, newP.Hand)...)
		ops = append(ops, diffCardList(prefix+"/library", oldP.Library, newP.Library)...)
	}
	return ops
}

// diffCardList diffs by membership: removals of vanished card ids followed
// by appends of new cards. When the surviving order would not reproduce the
// new list (an arbitrary permutation, not a game transition), it falls back
// to replacing the list wholesale so the round-trip law holds for any pair
// of states.
func diffCardList(path string, oldCards, newCards []state.Card) []Operation {
	newByID := make(map[string]struct{}, len(newCards))
	for _, c := range newCards {
		newByID[c.ID] = struct{}{}
	}
	oldByID := make(map[string]struct{}, len(oldCards))
	for _, c := range oldCards {
		oldByID[c.ID] = struct{}{}
	}

	var ops []Operation
	var reconstructed []state.Card
	for _, c := range oldCards {
		if _, ok := newByID[c.ID]; ok {
			reconstructed = append(reconstructed, c)
		} else {
			ops = append(ops, Operation{Kind: OpRemove, Path: path, Value: mustRaw(c.ID)})
		}
	}
	for _, c := range newCards {
		if _, ok := oldByID[c.ID]; !ok {
			reconstructed = append(reconstructed, c)
			ops = append(ops, Operation{Kind: OpAppend, Path: path, Value: mustRaw(c)})
		}
	}

	if !sameCards(reconstructed, newCards) {
		return []Operation{{Kind: OpSet, Path: path, Value: mustRaw(newCards)}}
	}
	return ops
}

func sameCards(a, b []state.Card) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func diffBattlefield(oldPerms, newPerms []state.Permanent) []Operation {
	newByID := make(map[string]state.Permanent, len(newPerms))
	for _, p := range newPerms {
		newByID[p.ID] = p
	}
	oldByID := make(map[string]state.Permanent, len(oldPerms))
	for _, p := range oldPerms {
		oldByID[p.ID] = p
	}

	var ops []Operation
	var reconstructed []state.Permanent
	for _, p := range oldPerms {
		np, ok := newByID[p.ID]
		if !ok {
			ops = append(ops, Operation{Kind: OpRemove, Path: "battlefield", Value: mustRaw(p.ID)})
			continue
		}
		if p != np {
			if onlyTappedDiffers(p, np) {
				ops = append(ops, Operation{
					Kind:  OpSet,
					Path:  "battlefield/" + p.ID + "/tapped",
					Value: mustRaw(np.Tapped),
				})
			} else {
				ops = append(ops, Operation{Kind: OpSet, Path: "battlefield/" + p.ID, Value: mustRaw(np)})
			}
		}
		reconstructed = append(reconstructed, np)
	}
	for _, p := range newPerms {
		if _, ok := oldByID[p.ID]; !ok {
			reconstructed = append(reconstructed, p)
			ops = append(ops, Operation{Kind: OpAppend, Path: "battlefield", Value: mustRaw(p)})
		}
	}

	if !samePermanents(reconstructed, newPerms) {
		return []Operation{{Kind: OpSet, Path: "battlefield", Value: mustRaw(newPerms)}}
	}
	return ops
}

func onlyTappedDiffers(a, b state.Permanent) bool {
	a.Tapped = b.Tapped
	return a == b
}

func samePermanents(a, b []state.Permanent) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Apply replays the delta's operations against a snapshot, returning the
// reconstructed successor. The input is never mutated. Malformed or
// unresolvable operations return an error; a delta produced by Create for
// the same starting state always applies cleanly.
func Apply(oldState *state.GameState, d *Delta) (*state.GameState, error) {
	next := oldState.Clone()
	for i, op := range d.Ops {
		if err := applyOp(next, op); err != nil {
			return nil, fmt.Errorf("op %d (%s %s): %w", i, op.Kind, op.Path, err)
		}
	}
	return next, nil
}

func applyOp(s *state.GameState, op Operation) error {
	parts := strings.Split(op.Path, "/")
	switch parts[0] {
	case "session":
		return decodeInto(op.Value, &s.SessionID)
	case "version":
		return decodeInto(op.Value, &s.Version)
	case "turn":
		return decodeInto(op.Value, &s.Turn)
	case "players":
		return applyPlayerOp(s, parts, op)
	case "battlefield":
		return applyBattlefieldOp(s, parts, op)
	default:
		return fmt.Errorf("unknown path root %q", parts[0])
	}
}

func decodeInto(raw json.RawMessage, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to decode operand: %w", err)
	}
	return nil
}

func applyPlayerOp(s *state.GameState, parts []string, op Operation) error {
	if len(parts) == 1 {
		return decodeInto(op.Value, &s.Players)
	}
	player := s.Player(parts[1])
	if player == nil {
		return fmt.Errorf("unknown player %q", parts[1])
	}
	if len(parts) != 3 {
		return fmt.Errorf("unsupported player path depth")
	}
	switch parts[2] {
	case "life":
		return decodeInto(op.Value, &player.Life)
	case "name":
		return decodeInto(op.Value, &player.DisplayName)
	case "hand":
		return applyCardListOp(&player.Hand, op)
	case "library":
		return applyCardListOp(&player.Library, op)
	default:
		return fmt.Errorf("unknown player field %q", parts[2])
	}
}

func applyCardListOp(list *[]state.Card, op Operation) error {
	switch op.Kind {
	case OpSet:
		return decodeInto(op.Value, list)
	case OpAppend:
		var card state.Card
		if err := decodeInto(op.Value, &card); err != nil {
			return err
		}
		*list = append(*list, card)
		return nil
	case OpRemove:
		var id string
		if err := decodeInto(op.Value, &id); err != nil {
			return err
		}
		for i := range *list {
			if (*list)[i].ID == id {
				*list = append((*list)[:i], (*list)[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("card %q not present", id)
	default:
		return fmt.Errorf("unsupported op kind %q", op.Kind)
	}
}

func applyBattlefieldOp(s *state.GameState, parts []string, op Operation) error {
	if len(parts) == 1 {
		switch op.Kind {
		case OpSet:
			return decodeInto(op.Value, &s.Battlefield)
		case OpAppend:
			var perm state.Permanent
			if err := decodeInto(op.Value, &perm); err != nil {
				return err
			}
			s.Battlefield = append(s.Battlefield, perm)
			return nil
		case OpRemove:
			var id string
			if err := decodeInto(op.Value, &id); err != nil {
				return err
			}
			for i := range s.Battlefield {
				if s.Battlefield[i].ID == id {
					s.Battlefield = append(s.Battlefield[:i], s.Battlefield[i+1:]...)
					return nil
				}
			}
			return fmt.Errorf("permanent %q not present", id)
		default:
			return fmt.Errorf("unsupported op kind %q", op.Kind)
		}
	}

	perm := s.Permanent(parts[1])
	if perm == nil {
		return fmt.Errorf("unknown permanent %q", parts[1])
	}
	if len(parts) == 2 {
		return decodeInto(op.Value, perm)
	}
	if parts[2] == "tapped" {
		return decodeInto(op.Value, &perm.Tapped)
	}
	return fmt.Errorf("unknown permanent field %q", parts[2])
}
