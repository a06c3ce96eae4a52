package state

import (
	"encoding/json"
	"fmt"
)

// ActionType identifies the kind of intent a participant submitted.
type ActionType string

const (
	ActionDraw         ActionType = "draw"
	ActionPlay         ActionType = "play"
	ActionTap          ActionType = "tap"
	ActionChangeLife   ActionType = "change_life"
	ActionAdvancePhase ActionType = "advance_phase"
)

// TurnTarget is the shared pseudo-target touched by phase advancement.
// Actions that mutate the turn structure all contend on this single token.
const TurnTarget = "turn"

// Payload is the type-specific data carried by an action. Each action type
// has exactly one concrete payload shape; the classifier matches on these
// exhaustively.
type Payload interface {
	isPayload()
}

// DrawPayload moves the top Count cards of the actor's library into their hand.
type DrawPayload struct {
	Count int `json:"count"`
}

// PlayPayload moves a card from the actor's hand onto the battlefield.
type PlayPayload struct {
	CardID string `json:"card_id"`
}

// TapPayload taps a permanent on the battlefield.
type TapPayload struct {
	PermanentID string `json:"permanent_id"`
}

// ChangeLifePayload adjusts the actor's life total by Delta (may be negative).
type ChangeLifePayload struct {
	Delta int `json:"delta"`
}

// AdvancePhasePayload advances the turn to the next phase, rotating the
// active player on wraparound.
type AdvancePhasePayload struct{}

func (DrawPayload) isPayload()         {}
func (PlayPayload) isPayload()         {}
func (TapPayload) isPayload()          {}
func (ChangeLifePayload) isPayload()   {}
func (AdvancePhasePayload) isPayload() {}

// GameAction is a versioned intent submitted by a participant. BaseVersion
// is the state version the actor last observed when forming the action; it
// drives conflict detection, not ordering.
type GameAction struct {
	Type        ActionType
	ActorID     string
	BaseVersion int
	Payload     Payload
}

// Targets returns the semantic targets the action touches: a card ID, a
// permanent ID, a player ID, or the shared turn token. Unknown action types
// return nil, which the classifier treats as touching nothing.
func (a GameAction) Targets() []string {
	switch p := a.Payload.(type) {
	case DrawPayload:
		return []string{a.ActorID}
	case PlayPayload:
		return []string{p.CardID}
	case TapPayload:
		return []string{p.PermanentID}
	case ChangeLifePayload:
		return []string{a.ActorID}
	case AdvancePhasePayload:
		return []string{TurnTarget}
	default:
		return nil
	}
}

// actionEnvelope is the wire shape of an action.
type actionEnvelope struct {
	Type        ActionType      `json:"type"`
	ActorID     string          `json:"actor_id"`
	BaseVersion int             `json:"base_version"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// MarshalJSON encodes the action with its payload tagged by Type.
func (a GameAction) MarshalJSON() ([]byte, error) {
	env := actionEnvelope{
		Type:        a.Type,
		ActorID:     a.ActorID,
		BaseVersion: a.BaseVersion,
	}
	if a.Payload != nil {
		raw, err := json.Marshal(a.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s payload: %w", a.Type, err)
		}
		env.Payload = raw
	}
	return json.Marshal(env)
}

// UnmarshalJSON decodes the action, selecting the payload shape by Type.
func (a *GameAction) UnmarshalJSON(data []byte) error {
	var env actionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	a.Type = env.Type
	a.ActorID = env.ActorID
	a.BaseVersion = env.BaseVersion
	a.Payload = nil

	decode := func(dst any) error {
		if len(env.Payload) == 0 {
			return fmt.Errorf("%s action requires a payload", env.Type)
		}
		return json.Unmarshal(env.Payload, dst)
	}

	switch env.Type {
	case ActionDraw:
		var p DrawPayload
		if err := decode(&p); err != nil {
			return err
		}
		a.Payload = p
	case ActionPlay:
		var p PlayPayload
		if err := decode(&p); err != nil {
			return err
		}
		a.Payload = p
	case ActionTap:
		var p TapPayload
		if err := decode(&p); err != nil {
			return err
		}
		a.Payload = p
	case ActionChangeLife:
		var p ChangeLifePayload
		if err := decode(&p); err != nil {
			return err
		}
		a.Payload = p
	case ActionAdvancePhase:
		a.Payload = AdvancePhasePayload{}
	default:
		return fmt.Errorf("unknown action type %q", env.Type)
	}
	return nil
}

// InvalidActionError reports an action that failed validation against the
// current state. The version counter is never advanced for invalid actions.
type InvalidActionError struct {
	Type    ActionType
	ActorID string
	Reason  string
}

func (e *InvalidActionError) Error() string {
	return fmt.Sprintf("invalid %s action by %s: %s", e.Type, e.ActorID, e.Reason)
}

// Validate checks the action against the given state. Validation runs
// against the state current at application time, after classification:
// an action that was valid when formed may have been invalidated by a
// concurrent edit, and that case is a conflict, not a validation failure.
func Validate(a GameAction, s *GameState) error {
	if s.Player(a.ActorID) == nil {
		return &InvalidActionError{Type: a.Type, ActorID: a.ActorID, Reason: "unknown player"}
	}

	switch p := a.Payload.(type) {
	case DrawPayload:
		if p.Count <= 0 {
			return &InvalidActionError{Type: a.Type, ActorID: a.ActorID, Reason: "draw count must be positive"}
		}
		if lib := s.Player(a.ActorID).Library; len(lib) < p.Count {
			return &InvalidActionError{
				Type: a.Type, ActorID: a.ActorID,
				Reason: fmt.Sprintf("library has %d cards, cannot draw %d", len(lib), p.Count),
			}
		}
	case PlayPayload:
		if s.HandCard(a.ActorID, p.CardID) == nil {
			return &InvalidActionError{
				Type: a.Type, ActorID: a.ActorID,
				Reason: fmt.Sprintf("card %s is not in hand", p.CardID),
			}
		}
	case TapPayload:
		perm := s.Permanent(p.PermanentID)
		if perm == nil {
			return &InvalidActionError{
				Type: a.Type, ActorID: a.ActorID,
				Reason: fmt.Sprintf("permanent %s is not on the battlefield", p.PermanentID),
			}
		}
		if perm.Tapped {
			return &InvalidActionError{
				Type: a.Type, ActorID: a.ActorID,
				Reason: fmt.Sprintf("permanent %s is already tapped", p.PermanentID),
			}
		}
	case ChangeLifePayload:
		// Any delta is legal, including lethal ones.
	case AdvancePhasePayload:
		if s.Turn.ActivePlayerID != a.ActorID {
			return &InvalidActionError{
				Type: a.Type, ActorID: a.ActorID,
				Reason: "only the active player may advance the phase",
			}
		}
	default:
		return &InvalidActionError{Type: a.Type, ActorID: a.ActorID, Reason: "unknown action type"}
	}
	return nil
}
