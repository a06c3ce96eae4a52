package engine

import (
	"fmt"

	"github.com/duelgrid/syncd/internal/engine/state"
)

// applyEffect produces the successor snapshot for a validated action. The
// input snapshot is never mutated; the result carries version+1.
func applyEffect(cur *state.GameState, a state.GameAction) (*state.GameState, error) {
	next := cur.Clone()
	next.Version = cur.Version + 1

	switch p := a.Payload.(type) {
	case state.DrawPayload:
		player := next.Player(a.ActorID)
		drawn := player.Library[:p.Count]
		player.Hand = append(player.Hand, drawn...)
		player.Library = append([]state.Card(nil), player.Library[p.Count:]...)

	case state.PlayPayload:
		player := next.Player(a.ActorID)
		var card state.Card
		found := false
		for i := range player.Hand {
			if player.Hand[i].ID == p.CardID {
				card = player.Hand[i]
				player.Hand = append(player.Hand[:i], player.Hand[i+1:]...)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("card %s vanished from hand during apply", p.CardID)
		}
		next.Battlefield = append(next.Battlefield, state.Permanent{
			ID:        card.ID,
			OwnerID:   a.ActorID,
			Name:      card.Name,
			Type:      card.Type,
			Power:     card.Power,
			Toughness: card.Toughness,
		})

	case state.TapPayload:
		perm := next.Permanent(p.PermanentID)
		if perm == nil {
			return nil, fmt.Errorf("permanent %s vanished during apply", p.PermanentID)
		}
		perm.Tapped = true

	case state.ChangeLifePayload:
		next.Player(a.ActorID).Life += p.Delta

	case state.AdvancePhasePayload:
		phase, wrapped := next.Turn.Phase.Next()
		next.Turn.Phase = phase
		if wrapped {
			next.Turn.ActivePlayerID = next.NextPlayerID(next.Turn.ActivePlayerID)
		}

	default:
		return nil, fmt.Errorf("no effect registered for action type %q", a.Type)
	}

	return next, nil
}

// noOpEffect produces the successor snapshot for a conflicting action: the
// state is unchanged except for the version counter, keeping the audit
// trail monotonic and complete.
func noOpEffect(cur *state.GameState) *state.GameState {
	next := cur.Clone()
	next.Version = cur.Version + 1
	return next
}
