package exa_test

import (
	"testing"

	"github.com/exa-vm/exacore/internal/exa"
	"github.com/exa-vm/exacore/internal/host"
	"github.com/exa-vm/exacore/internal/link"
	"github.com/exa-vm/exacore/internal/program"
	"github.com/exa-vm/exacore/internal/register"
	"github.com/exa-vm/exacore/internal/value"
	"github.com/exa-vm/exacore/internal/world"
)

func newWorld(t *testing.T, hosts ...*host.Host) *world.World {
	t.Helper()
	w := world.New(1, nil, nil)
	for _, h := range hosts {
		w.AddHost(h)
	}
	return w
}

func readX(e *exa.Exa) int {
	v, _ := e.X.Read()
	n, _ := v.Number()
	return n
}

func compile(t *testing.T, lines ...string) *program.Def {
	t.Helper()
	def, errs := program.Compile(lines)
	if errs != nil {
		t.Fatalf("unexpected construction errors: %v", errs)
	}
	return def
}

// TestCountdownRunsToHaltAtZero exercises a countdown: COPY, MARK/loop via
// SUBI+TEST+FJMP, and HALT. X must reach exactly 0 before the agent halts.
func TestCountdownRunsToHaltAtZero(t *testing.T) {
	def := compile(t, "COPY 4 X", "MARK L", "SUBI X 1 X", "TEST X = 0", "FJMP L", "HALT")
	h := host.New("H1", 4)
	w := newWorld(t, h)
	a := exa.New("A", "H1", program.New(def))
	w.AddExa(a)

	var lastX int
	cycles := 0
	for w.LiveCount() > 0 {
		if e, ok := w.Exa("A"); ok {
			lastX = readX(e)
		}
		w.RunCycle()
		cycles++
		if cycles > 100 {
			t.Fatal("countdown did not halt")
		}
	}
	if lastX != 0 {
		t.Fatalf("expected X==0 just before the agent halted, got %d", lastX)
	}
}

func TestReplicateThenHalt(t *testing.T) {
	def := compile(t, "COPY 333 X", "MAKE", "REPL L", "HALT", "MARK L", "MULI 2 X X")
	h := host.New("H1", 4)
	w := newWorld(t, h)
	parent := exa.New("A", "H1", program.New(def))
	w.AddExa(parent)

	w.RunCycle() // COPY 333 X
	p, _ := w.Exa("A")
	if got := readX(p); got != 333 {
		t.Fatalf("expected X=333 after first step, got %d", got)
	}

	w.RunCycle() // MAKE
	w.RunCycle() // REPL L -> parent advances past REPL, child created
	p, _ = w.Exa("A")
	if p.State != exa.Running {
		t.Fatalf("expected parent still running after REPL, got %v", p.State)
	}
	child, ok := w.Exa("A:0")
	if !ok {
		t.Fatal("expected a replicated child named A:0")
	}
	if got := readX(child); got != 0 {
		t.Fatalf("expected child X reset to 0, got %d", got)
	}
	if child.F != nil {
		t.Fatal("expected child to hold no file")
	}

	w.RunCycle() // parent HALTs this cycle; child runs MULI 2 X X
	if _, ok := w.Exa("A"); ok {
		t.Fatal("expected parent to be gone after HALT")
	}
	child, ok = w.Exa("A:0")
	if !ok {
		t.Fatal("expected child still alive")
	}
	if got := readX(child); got != 0 {
		t.Fatalf("expected child's MULI on 0 to stay 0, got %d", got)
	}
}

func TestLinkRaceOneCrossesOtherBlocks(t *testing.T) {
	def := compile(t, "LINK 800", "HALT")
	h1 := host.New("H1", 4)
	h2 := host.New("H2", 4)
	w := newWorld(t, h1, h2)

	a := exa.New("A", "H1", program.New(def))
	b := exa.New("B", "H1", program.New(def))
	w.AddExa(a)
	w.AddExa(b)

	l := link.New("H1", "H2")
	w.AddLink(l)
	h1.AddLink("800", l)
	h2.AddLink("800", l)

	w.RunCycle()
	av, _ := w.Exa("A")
	bv, _ := w.Exa("B")
	if av.HostID != "H2" {
		t.Fatalf("expected A to have crossed to H2, got %s", av.HostID)
	}
	if bv.State != exa.WaitingForLinkToOpen {
		t.Fatalf("expected B blocked on the link, got %v", bv.State)
	}

	w.RunCycle()
	bv, _ = w.Exa("B")
	if bv.HostID != "H2" {
		t.Fatalf("expected B to cross on the next cycle, got %s", bv.HostID)
	}
}

func TestFilePendingMakeDropGrab(t *testing.T) {
	// B waits a cycle so its first GRAB lands on the same cycle as A's DROP,
	// matching the intended scenario exactly (A already holds the file when the
	// scenario's clock starts).
	dropper := compile(t, "MAKE", "DROP", "HALT")
	grabber := compile(t, "NOOP", "GRAB 400", "HALT")
	h := host.New("H1", 3)
	w := newWorld(t, h)
	a := exa.New("A", "H1", program.New(dropper))
	b := exa.New("B", "H1", program.New(grabber))
	w.AddExa(a)
	w.AddExa(b)

	w.RunCycle() // A: MAKE (file held privately, not yet on the host); B: NOOP

	w.RunCycle() // A: DROP (file becomes pending); B: GRAB 400 blocks same cycle
	bv, _ := w.Exa("B")
	if bv.State != exa.WaitingForFile {
		t.Fatalf("expected B blocked on the pending file, got %v", bv.State)
	}

	w.RunCycle() // uptake already ran at end of prior cycle; B's GRAB succeeds now
	bv, _ = w.Exa("B")
	if bv.F == nil {
		t.Fatalf("expected B to be holding the grabbed file")
	}
}

func TestMathWithKeywordsKillsImmediately(t *testing.T) {
	def := compile(t, "HOST X", "ADDI 1 X X", "HALT")
	h := host.New("H1", 4)
	w := newWorld(t, h)
	a := exa.New("A", "H1", program.New(def))
	w.AddExa(a)

	w.RunCycle() // HOST X
	w.RunCycle() // ADDI 1 X X dies this cycle
	if _, ok := w.Exa("A"); ok {
		t.Fatal("expected the agent to be removed immediately on MathWithKeywords")
	}
}

func TestHardwareRegisterWriteOnlyAndReadOnly(t *testing.T) {
	writeProg := compile(t, "COPY 666 #NERV", "HALT")
	h := host.New("H1", 4)
	h.AddHardwareRegister("#NERV", register.NewHardware(register.WriteOnly, nil))
	w := newWorld(t, h)
	a := exa.New("A", "H1", program.New(writeProg))
	w.AddExa(a)
	w.RunCycle()
	reg, _ := h.HardwareRegister("#NERV")
	if reg.Len() != 1 {
		t.Fatalf("expected 1 enqueued value, got %d", reg.Len())
	}

	readBad := compile(t, "COPY #NERV X", "HALT")
	h2 := host.New("H2", 4)
	h2.AddHardwareRegister("#NERV", register.NewHardware(register.WriteOnly, nil))
	w2 := newWorld(t, h2)
	b := exa.New("B", "H2", program.New(readBad))
	w2.AddExa(b)
	w2.RunCycle()
	if _, ok := w2.Exa("B"); ok {
		t.Fatal("expected reading a WriteOnly register to kill the agent immediately")
	}

	readGood := compile(t, "COPY #NERV X", "HALT")
	h3 := host.New("H3", 4)
	h3.AddHardwareRegister("#NERV", register.NewHardware(register.ReadOnly, []value.Value{value.NewNumber(1), value.NewNumber(2), value.NewNumber(3)}))
	w3 := newWorld(t, h3)
	c := exa.New("C", "H3", program.New(readGood))
	w3.AddExa(c)
	w3.RunCycle()
	cv, _ := w3.Exa("C")
	if got := readX(cv); got != 1 {
		t.Fatalf("expected X=1 after popping #NERV, got %d", got)
	}
	reg3, _ := h3.HardwareRegister("#NERV")
	if reg3.Len() != 2 {
		t.Fatalf("expected the read to pop the queue, got len %d", reg3.Len())
	}
}

func TestBasicWriteOutOfRangeDies(t *testing.T) {
	def := compile(t, "COPY 9999 X", "ADDI X 1 X", "HALT")
	h := host.New("H1", 4)
	w := newWorld(t, h)
	a := exa.New("A", "H1", program.New(def))
	w.AddExa(a)
	w.RunCycle()
	w.RunCycle() // X becomes 10000, out of range on write
	if _, ok := w.Exa("A"); ok {
		t.Fatal("expected an out-of-range Basic write to kill the agent")
	}
}

func TestMReadWriteRendezvousGlobal(t *testing.T) {
	writer := compile(t, "COPY 5 M", "HALT")
	reader := compile(t, "COPY M X", "HALT")
	h1 := host.New("H1", 4)
	h2 := host.New("H2", 4)
	w := newWorld(t, h1, h2)
	wr := exa.New("W", "H1", program.New(writer))
	rd := exa.New("R", "H2", program.New(reader))
	w.AddExa(wr)
	w.AddExa(rd)

	// The writer steps first in this cycle (insertion order), parking its
	// value; the reader steps immediately after, in the same cycle, and
	// consumes that parked value directly. The writer itself still reports
	// Blocked: it has no way to know a reader arrived later the same cycle.
	w.RunCycle()
	wv, _ := w.Exa("W")
	if wv.State != exa.WaitingForMWrite {
		t.Fatalf("expected writer to report blocked even though its value was consumed, got %v", wv.State)
	}
	rv, _ := w.Exa("R")
	if got := readX(rv); got != 5 {
		t.Fatalf("expected X=5 via Global M rendezvous in the same cycle, got %d", got)
	}
}

func TestOutOfInstructionsDeathIsDeferred(t *testing.T) {
	def := compile(t, "NOOP")
	h := host.New("H1", 4)
	w := newWorld(t, h)
	a := exa.New("A", "H1", program.New(def))
	w.AddExa(a)

	w.RunCycle() // executes the lone NOOP, cursor now at end
	if _, ok := w.Exa("A"); !ok {
		t.Fatal("expected the agent to still be alive the cycle it runs off the end")
	}
	w.RunCycle() // runs off the end: Died(OutOfInstructions) is scheduled, not applied
	if _, ok := w.Exa("A"); !ok {
		t.Fatal("expected the agent to still be alive the cycle its death is only scheduled")
	}
	w.RunCycle() // the scheduled death is applied at the start of this cycle
	if _, ok := w.Exa("A"); ok {
		t.Fatal("expected OutOfInstructions death to be applied exactly one cycle after it was scheduled")
	}
}
