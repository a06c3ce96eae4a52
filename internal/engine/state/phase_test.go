package state

import "testing"

func TestPhaseCycleOrder(t *testing.T) {
	expected := []Phase{
		PhaseUntap,
		PhaseUpkeep,
		PhaseDraw,
		PhaseMain1,
		PhaseCombat,
		PhaseMain2,
		PhaseEnd,
	}

	p := PhaseUntap
	for i, exp := range expected {
		if p != exp {
			t.Fatalf("position %d: expected phase %s, got %s", i, exp, p)
		}
		if i < len(expected)-1 {
			next, wrapped := p.Next()
			if wrapped {
				t.Fatalf("unexpected wrap advancing from %s", p)
			}
			p = next
		}
	}

	next, wrapped := p.Next()
	if !wrapped {
		t.Fatalf("expected wrap advancing from %s", p)
	}
	if next != PhaseUntap {
		t.Fatalf("expected cycle to restart at UNTAP, got %s", next)
	}
}

func TestPhaseNames(t *testing.T) {
	if PhaseUntap.String() != "UNTAP" {
		t.Fatalf("expected UNTAP, got %s", PhaseUntap)
	}
	if PhaseMain2.String() != "MAIN2" {
		t.Fatalf("expected MAIN2, got %s", PhaseMain2)
	}
	if Phase(42).String() != "PHASE_42" {
		t.Fatalf("expected fallback name, got %s", Phase(42))
	}
}
