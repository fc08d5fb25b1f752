package world_test

import (
	"testing"

	"github.com/exa-vm/exacore/internal/exa"
	"github.com/exa-vm/exacore/internal/host"
	"github.com/exa-vm/exacore/internal/program"
	"github.com/exa-vm/exacore/internal/world"
)

func compile(t *testing.T, lines ...string) *program.Def {
	t.Helper()
	def, errs := program.Compile(lines)
	if errs != nil {
		t.Fatalf("unexpected construction errors: %v", errs)
	}
	return def
}

func TestSystemExaIsRearmedNotRemoved(t *testing.T) {
	def := compile(t, "HALT")
	h := host.New("H1", 4)
	w := world.New(1, nil, nil)
	w.AddHost(h)
	sys := exa.New("SYS", "H1", program.New(def))
	w.AddSystemExa(sys)

	w.RunCycle()
	after, ok := w.Exa("SYS")
	if !ok {
		t.Fatal("expected the system agent to still be tracked after dying")
	}
	if after.Prog.Cursor != 0 {
		t.Fatalf("expected the cursor reset to 0, got %d", after.Prog.Cursor)
	}
	if after.State != exa.Running {
		t.Fatalf("expected state reset to Running, got %v", after.State)
	}
	if !h.IsOccupant("SYS") && !h.IsSystemExa("SYS") {
		t.Fatal("expected SYS to remain counted against host occupancy")
	}
}

func TestLiveIDsAndHostIDsAreSorted(t *testing.T) {
	def := compile(t, "HALT")
	w := world.New(1, nil, nil)
	h1 := host.New("H2", 4)
	h2 := host.New("H1", 4)
	w.AddHost(h1)
	w.AddHost(h2)
	w.AddExa(exa.New("Z", "H2", program.New(def)))
	w.AddExa(exa.New("A", "H1", program.New(def)))

	ids := w.LiveIDs()
	if len(ids) != 2 || ids[0] != "A" || ids[1] != "Z" {
		t.Fatalf("expected sorted [A Z], got %v", ids)
	}
	hostIDs := w.HostIDs()
	if len(hostIDs) != 2 || hostIDs[0] != "H1" || hostIDs[1] != "H2" {
		t.Fatalf("expected sorted [H1 H2], got %v", hostIDs)
	}
}

func TestKillIsDeferredToNextCycle(t *testing.T) {
	killer := compile(t, "KILL", "HALT")
	victim := compile(t, "NOOP", "NOOP", "NOOP", "NOOP", "NOOP")
	w := world.New(1, nil, nil)
	h := host.New("H1", 4)
	w.AddHost(h)
	w.AddExa(exa.New("K", "H1", program.New(killer)))
	w.AddExa(exa.New("V", "H1", program.New(victim)))

	w.RunCycle() // K's KILL selects V; scheduled, not applied
	if _, ok := w.Exa("V"); !ok {
		t.Fatal("expected the victim to still be alive the cycle KILL is issued")
	}
	w.RunCycle() // the scheduled kill is applied at the start of this cycle
	if _, ok := w.Exa("V"); ok {
		t.Fatal("expected the victim to be removed the cycle after KILL")
	}
}

func TestRandOtherOccupantExcludesSelf(t *testing.T) {
	w := world.New(1, nil, nil)
	h := host.New("H1", 4)
	w.AddHost(h)
	h.AddOccupant("A")
	if _, ok := w.RandOtherOccupant("H1", "A"); ok {
		t.Fatal("expected no candidate when the only occupant is the excluded id")
	}
	h.AddOccupant("B")
	got, ok := w.RandOtherOccupant("H1", "A")
	if !ok || got != "B" {
		t.Fatalf("expected B, got %s ok=%v", got, ok)
	}
}
