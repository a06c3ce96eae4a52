package state

import "fmt"

// Phase represents the phases of a turn in fixed cyclic order.
type Phase int

const (
	PhaseUntap Phase = iota
	PhaseUpkeep
	PhaseDraw
	PhaseMain1
	PhaseCombat
	PhaseMain2
	PhaseEnd
)

var phaseNames = map[Phase]string{
	PhaseUntap:  "UNTAP",
	PhaseUpkeep: "UPKEEP",
	PhaseDraw:   "DRAW",
	PhaseMain1:  "MAIN1",
	PhaseCombat: "COMBAT",
	PhaseMain2:  "MAIN2",
	PhaseEnd:    "END",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE_%d", int(p))
}

// Next returns the phase following p. wrapped is true when the cycle
// restarts at UNTAP, which is when the active player rotates.
func (p Phase) Next() (next Phase, wrapped bool) {
	if p >= PhaseEnd || p < PhaseUntap {
		return PhaseUntap, true
	}
	return p + 1, false
}
