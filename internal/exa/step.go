package exa

import (
	"strconv"

	"github.com/exa-vm/exacore/internal/exaerr"
	"github.com/exa-vm/exacore/internal/host"
	"github.com/exa-vm/exacore/internal/instr"
	"github.com/exa-vm/exacore/internal/value"
	"github.com/exa-vm/exacore/internal/vfile"
)

// Step executes exactly one instruction against w and returns the single
// outcome contract. A Blocked or Died outcome never advances the program
// cursor and never writes the destination register. Operand reads do take
// effect as they happen, even when a later operand blocks or the step dies:
// reading F advances the held file's cursor, reading a hardware register
// pops it, and reading M consumes a parked value (or parks the reader); a
// blocked M write leaves its value parked on the channel.
func (e *Exa) Step(w World) Outcome {
	h, ok := w.Host(e.HostID)
	if !ok {
		return e.die(exaerr.InvalidLinkTraversal)
	}
	if e.Prog.AtEnd() {
		return e.die(exaerr.OutOfInstructions)
	}
	in, _ := e.Prog.Current()

	switch in.Op {
	case instr.Copy:
		src, blocked, err := e.readRN(w, h, in.A)
		if blocked {
			return Outcome{Kind: Blocked, Wait: WaitingForMRead}
		}
		if err != nil {
			return e.dieFrom(err)
		}
		return e.finishWrite(w, h, in.C, src)

	case instr.AddI, instr.SubI, instr.MulI, instr.DivI, instr.ModI:
		return e.stepArith(w, h, in)

	case instr.Swiz:
		return e.stepSwiz(w, h, in)

	case instr.Test:
		return e.stepTest(w, h, in)

	case instr.TestEOF:
		if e.F == nil {
			return e.die(exaerr.InvalidFRegisterAccess)
		}
		e.setT(boolNum(e.F.AtEOF()))
		return e.advanced()

	case instr.TestMRD:
		ch := e.mChannel(w, h)
		e.setT(boolNum(ch.Readable(e.ID)))
		return e.advanced()

	case instr.Jump:
		e.Prog.JumpToLabel(in.Label())
		return Outcome{Kind: Advanced}

	case instr.TJump, instr.FJump:
		t, _ := e.T.Read()
		n, err := requireNumber(t)
		if err != nil {
			return e.dieFrom(err)
		}
		truthy := n != 0
		take := truthy
		if in.Op == instr.FJump {
			take = !truthy
		}
		if take {
			e.Prog.JumpToLabel(in.Label())
		} else {
			e.Prog.Advance()
		}
		return Outcome{Kind: Advanced}

	case instr.Repl:
		return e.stepRepl(h, in)

	case instr.Halt:
		return e.die(exaerr.Halt)

	case instr.Kill:
		victim, found := w.RandOtherOccupant(e.HostID, e.ID)
		e.Prog.Advance()
		if !found {
			return Outcome{Kind: Advanced}
		}
		return Outcome{Kind: Advanced, KillTarget: victim}

	case instr.Link:
		return e.stepLink(w, h, in)

	case instr.Host:
		return e.finishWrite(w, h, in.C, value.NewKeyword(h.ID))

	case instr.Mode:
		if e.Mode == Global {
			e.Mode = Local
		} else {
			e.Mode = Global
		}
		return e.advanced()

	case instr.VoidM:
		ch := e.mChannel(w, h)
		if _, ok := ch.Read(e.ID); !ok {
			return Outcome{Kind: Blocked, Wait: WaitingForMRead}
		}
		return e.advanced()

	case instr.VoidF:
		if e.F == nil {
			return e.die(exaerr.InvalidFRegisterAccess)
		}
		e.F.VoidAtCursor()
		return e.advanced()

	case instr.Make:
		if e.F != nil {
			return e.die(exaerr.InvalidFileAccess)
		}
		e.F = vfile.New(w.NextFileID())
		return e.advanced()

	case instr.Grab:
		return e.stepGrab(w, h, in)

	case instr.File:
		if e.F == nil {
			return e.die(exaerr.InvalidFileAccess)
		}
		return e.finishWrite(w, h, in.C, value.NewKeyword(e.F.ID()))

	case instr.Seek:
		if e.F == nil {
			return e.die(exaerr.InvalidFRegisterAccess)
		}
		v, blocked, err := e.readRN(w, h, in.A)
		if blocked {
			return Outcome{Kind: Blocked, Wait: WaitingForMRead}
		}
		if err != nil {
			return e.dieFrom(err)
		}
		n, err := requireNumber(v)
		if err != nil {
			return e.dieFrom(err)
		}
		e.F.Seek(n)
		return e.advanced()

	case instr.Drop:
		return e.stepDrop(h)

	case instr.Wipe:
		e.F = nil
		return e.advanced()

	case instr.Note, instr.Noop:
		return e.advanced()

	case instr.Rand:
		return e.stepRand(w, h, in)

	default:
		// Mark is absorbed at compile time and never appears in Steps.
		return e.advanced()
	}
}

func (e *Exa) stepArith(w World, h *host.Host, in instr.Instruction) Outcome {
	a, blocked, err := e.readRN(w, h, in.A)
	if blocked {
		return Outcome{Kind: Blocked, Wait: WaitingForMRead}
	}
	if err != nil {
		return e.dieFrom(err)
	}
	b, blocked, err := e.readRN(w, h, in.B)
	if blocked {
		return Outcome{Kind: Blocked, Wait: WaitingForMRead}
	}
	if err != nil {
		return e.dieFrom(err)
	}
	an, err := requireNumber(a)
	if err != nil {
		return e.dieFrom(err)
	}
	bn, err := requireNumber(b)
	if err != nil {
		return e.dieFrom(err)
	}

	var result int
	switch in.Op {
	case instr.AddI:
		result = an + bn
	case instr.SubI:
		result = an - bn
	case instr.MulI:
		result = an * bn
	case instr.DivI:
		if bn == 0 {
			return e.die(exaerr.DivideByZero)
		}
		result = an / bn
	case instr.ModI:
		if bn == 0 {
			return e.die(exaerr.DivideByZero)
		}
		result = an % bn
	}
	return e.finishWrite(w, h, in.C, value.NewNumber(result))
}

func (e *Exa) stepSwiz(w World, h *host.Host, in instr.Instruction) Outcome {
	a, blocked, err := e.readRN(w, h, in.A)
	if blocked {
		return Outcome{Kind: Blocked, Wait: WaitingForMRead}
	}
	if err != nil {
		return e.dieFrom(err)
	}
	b, blocked, err := e.readRN(w, h, in.B)
	if blocked {
		return Outcome{Kind: Blocked, Wait: WaitingForMRead}
	}
	if err != nil {
		return e.dieFrom(err)
	}
	an, err := requireNumber(a)
	if err != nil {
		return e.dieFrom(err)
	}
	bn, err := requireNumber(b)
	if err != nil {
		return e.dieFrom(err)
	}
	return e.finishWrite(w, h, in.C, value.NewNumber(instr.SwizDigits(an, bn)))
}

func (e *Exa) stepTest(w World, h *host.Host, in instr.Instruction) Outcome {
	a, blocked, err := e.readRN(w, h, in.A)
	if blocked {
		return Outcome{Kind: Blocked, Wait: WaitingForMRead}
	}
	if err != nil {
		return e.dieFrom(err)
	}
	b, blocked, err := e.readRN(w, h, in.B)
	if blocked {
		return Outcome{Kind: Blocked, Wait: WaitingForMRead}
	}
	if err != nil {
		return e.dieFrom(err)
	}

	var result bool
	switch in.TestOp {
	case instr.Eq:
		result = value.Equal(a, b)
	default:
		cmp, err := value.Compare(a, b)
		if err != nil {
			return e.die(exaerr.MathWithKeywords)
		}
		if in.TestOp == instr.Lt {
			result = cmp < 0
		} else {
			result = cmp > 0
		}
	}
	e.setT(boolNum(result))
	return e.advanced()
}

// stepRepl forks a child Program at the MARK target. The label is
// guaranteed present by program.Compile, which rejects any REPL whose
// target is missing before a Program is ever runnable: jumping
// to an absent LabelId is prevented at construction.
func (e *Exa) stepRepl(h *host.Host, in instr.Instruction) Outcome {
	if !h.HasFreeCapacity() {
		return Outcome{Kind: Blocked, Wait: WaitingForHostAvailabilityToReplicate}
	}
	idx, ok := e.Prog.Def.Labels[in.Label()]
	if !ok {
		panic("exa: REPL target label missing from a compiled Def")
	}
	childID := e.ID + ":" + strconv.Itoa(e.nextReplicantSuffix)
	e.nextReplicantSuffix++
	h.AddOccupant(childID)
	child := New(childID, e.HostID, e.Prog.Fork(idx))
	e.Prog.Advance()
	return Outcome{Kind: Replicated, Child: child}
}

func (e *Exa) stepLink(w World, h *host.Host, in instr.Instruction) Outcome {
	v, blocked, err := e.readRN(w, h, in.A)
	if blocked {
		return Outcome{Kind: Blocked, Wait: WaitingForMRead}
	}
	if err != nil {
		return e.dieFrom(err)
	}
	gate := v.String()
	l, ok := h.Link(gate)
	if !ok {
		return e.die(exaerr.InvalidLinkTraversal)
	}
	if l.Occupied {
		return Outcome{Kind: Blocked, Wait: WaitingForLinkToOpen}
	}
	destID, ok := l.Other(e.HostID)
	if !ok {
		return e.die(exaerr.InvalidLinkTraversal)
	}
	destHost, ok := w.Host(destID)
	if !ok {
		return e.die(exaerr.InvalidLinkTraversal)
	}
	if !destHost.HasFreeCapacity() {
		return Outcome{Kind: Blocked, Wait: WaitingForLinkToOpen}
	}

	l.Occupied = true
	h.RemoveOccupant(e.ID)
	destHost.AddOccupant(e.ID)
	e.HostID = destID
	return e.advanced()
}

func (e *Exa) stepGrab(w World, h *host.Host, in instr.Instruction) Outcome {
	v, blocked, err := e.readRN(w, h, in.A)
	if blocked {
		return Outcome{Kind: Blocked, Wait: WaitingForMRead}
	}
	if err != nil {
		return e.dieFrom(err)
	}
	f, res := h.GrabFile(v.String())
	switch res {
	case host.GrabTaken:
		e.F = f
		return e.advanced()
	case host.GrabPending:
		return Outcome{Kind: Blocked, Wait: WaitingForFile}
	default:
		return e.die(exaerr.InvalidFileAccess)
	}
}

func (e *Exa) stepDrop(h *host.Host) Outcome {
	if e.F == nil {
		return e.advanced()
	}
	if !h.DropFile(e.F) {
		return Outcome{Kind: Blocked, Wait: WaitingForHostAvailabilityToDropFile}
	}
	e.F = nil
	return e.advanced()
}

func (e *Exa) stepRand(w World, h *host.Host, in instr.Instruction) Outcome {
	a, blocked, err := e.readRN(w, h, in.A)
	if blocked {
		return Outcome{Kind: Blocked, Wait: WaitingForMRead}
	}
	if err != nil {
		return e.dieFrom(err)
	}
	b, blocked, err := e.readRN(w, h, in.B)
	if blocked {
		return Outcome{Kind: Blocked, Wait: WaitingForMRead}
	}
	if err != nil {
		return e.dieFrom(err)
	}
	an, err := requireNumber(a)
	if err != nil {
		return e.dieFrom(err)
	}
	bn, err := requireNumber(b)
	if err != nil {
		return e.dieFrom(err)
	}
	lo, hi := an, bn
	if lo > hi {
		lo, hi = hi, lo
	}
	return e.finishWrite(w, h, in.C, value.NewNumber(w.RandRange(lo, hi)))
}

// ---- shared helpers ---------------------------------------------------------

// readRN resolves an rn-kind operand: a Number evaluates to itself; a
// RegisterId is resolved against X/T/F/M or a host hardware register.
// blocked is true
// only for an M read with no pending writer, in which case v and err are
// both zero and the caller must return Blocked(WaitingForMRead) without any
// further mutation.
func (e *Exa) readRN(w World, h *host.Host, v value.Value) (value.Value, bool, error) {
	if v.IsNumber() {
		return v, false, nil
	}
	name, _ := v.Text()
	switch name {
	case "X":
		val, _ := e.X.Read()
		return val, false, nil
	case "T":
		val, _ := e.T.Read()
		return val, false, nil
	case "F":
		if e.F == nil {
			return value.Value{}, false, exaerr.Die(exaerr.InvalidFRegisterAccess)
		}
		val, err := e.F.ReadAdvance()
		return val, false, err
	case "M":
		ch := e.mChannel(w, h)
		val, ok := ch.Read(e.ID)
		if !ok {
			return value.Value{}, true, nil
		}
		return val, false, nil
	default:
		reg, ok := h.HardwareRegister(name)
		if !ok {
			return value.Value{}, false, exaerr.Die(exaerr.InvalidHardwareRegisterAccess)
		}
		val, err := reg.ReadDestructive()
		return val, false, err
	}
}

// writeR resolves an r-kind destination the same way readRN resolves a
// source. blocked is true only for an M write with no pending reader.
func (e *Exa) writeR(w World, h *host.Host, dst value.Value, v value.Value) (bool, error) {
	name, _ := dst.Text()
	switch name {
	case "X":
		return false, e.X.Write(v)
	case "T":
		return false, e.T.Write(v)
	case "F":
		if e.F == nil {
			return false, exaerr.Die(exaerr.InvalidFRegisterAccess)
		}
		e.F.WriteAdvance(v)
		return false, nil
	case "M":
		ch := e.mChannel(w, h)
		ok := ch.Write(e.ID, v)
		return !ok, nil
	default:
		reg, ok := h.HardwareRegister(name)
		if !ok {
			return false, exaerr.Die(exaerr.InvalidHardwareRegisterAccess)
		}
		return false, reg.Write(v)
	}
}

// finishWrite performs the destination write common to every instruction
// that ends by storing one computed Value, translating the result into the
// matching Outcome.
func (e *Exa) finishWrite(w World, h *host.Host, dst value.Value, v value.Value) Outcome {
	blocked, err := e.writeR(w, h, dst, v)
	if blocked {
		return Outcome{Kind: Blocked, Wait: WaitingForMWrite}
	}
	if err != nil {
		return e.dieFrom(err)
	}
	return e.advanced()
}

func (e *Exa) advanced() Outcome {
	e.Prog.Advance()
	return Outcome{Kind: Advanced}
}

func (e *Exa) setT(n int) { _ = e.T.Write(value.NewNumber(n)) }

func (e *Exa) die(reason exaerr.Reason) Outcome {
	return Outcome{Kind: Died, Reason: reason}
}

func (e *Exa) dieFrom(err error) Outcome {
	reason, _ := exaerr.ReasonOf(err)
	return Outcome{Kind: Died, Reason: reason}
}

func requireNumber(v value.Value) (int, error) {
	n, ok := v.Number()
	if !ok {
		return 0, exaerr.Die(exaerr.MathWithKeywords)
	}
	return n, nil
}

func boolNum(b bool) int {
	if b {
		return 1
	}
	return 0
}
