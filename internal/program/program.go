// Package program builds and steps through a compiled EXA program: the
// immutable Def (instruction stream plus label table), shared by every Exa
// loaded from the same source text, and the per-Exa Program cursor that
// walks it. The Def/Program split mirrors probe-lang/lang/vm's separation of
// a read-only bytecode image from the per-VM execution cursor, adapted so
// that REPL can clone a cheap Program{Def, Cursor} without copying Steps.
package program

import (
	"github.com/exa-vm/exacore/internal/exaerr"
	"github.com/exa-vm/exacore/internal/instr"
)

// Def is the immutable, shareable result of compiling EXA source: the
// instruction stream with MARK lines absorbed into Labels rather than kept
// as executable steps. MARK is never itself executed.
type Def struct {
	Steps  []instr.Instruction
	Labels map[string]int
}

// Compile parses lines into a Def, validating every jump-family target
// against the label table (exaerr.MissingMarkLabel on a dangling reference).
// A non-empty
// exaerr.ConstructionErrors means the program must not run.
func Compile(lines []string) (*Def, exaerr.ConstructionErrors) {
	var errs exaerr.ConstructionErrors

	def := &Def{Labels: make(map[string]int)}
	for lineNo, raw := range lines {
		inst, skip, err := instr.ParseLine(lineNo+1, raw)
		if skip {
			continue
		}
		if err != nil {
			if ce, ok := err.(exaerr.ConstructionError); ok {
				errs = append(errs, ce)
			}
			continue
		}
		if inst.Op == instr.Mark {
			label := inst.Label()
			def.Labels[label] = len(def.Steps)
			continue
		}
		def.Steps = append(def.Steps, inst)
	}

	for _, in := range def.Steps {
		if !isJumpFamily(in.Op) {
			continue
		}
		if _, ok := def.Labels[in.Label()]; !ok {
			errs = append(errs, exaerr.ConstructionError{
				Line: in.Line, Kind: exaerr.MissingMarkLabel,
				Message: "no MARK for label: " + in.Label(),
			})
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return def, nil
}

func isJumpFamily(op instr.Opcode) bool {
	switch op {
	case instr.Jump, instr.TJump, instr.FJump, instr.Repl:
		return true
	default:
		return false
	}
}

// Program is one Exa's live cursor into a shared Def. The cursor
// always stays within [0, len(Steps)].
type Program struct {
	Def    *Def
	Cursor int
}

// New returns a Program positioned at the start of def.
func New(def *Def) *Program { return &Program{Def: def, Cursor: 0} }

// Fork returns a new Program sharing the same Def, positioned at cursor.
// Used to give a REPL child its own cursor into the parent's instruction
// stream without copying Steps.
func (p *Program) Fork(cursor int) *Program { return &Program{Def: p.Def, Cursor: cursor} }

// AtEnd reports whether the cursor has run off the end of Steps, i.e. the
// next exa Step dies with exaerr.OutOfInstructions.
func (p *Program) AtEnd() bool { return p.Cursor >= len(p.Def.Steps) }

// Current returns the instruction at the cursor and true, or a zero
// Instruction and false if AtEnd.
func (p *Program) Current() (instr.Instruction, bool) {
	if p.AtEnd() {
		return instr.Instruction{}, false
	}
	return p.Def.Steps[p.Cursor], true
}

// Advance moves the cursor to the next instruction in sequence.
func (p *Program) Advance() { p.Cursor++ }

// JumpToLabel moves the cursor to the instruction immediately following the
// named MARK. It reports false if the label is unknown; Compile guarantees
// every reachable jump-family target has already been validated, so a false
// here would indicate an internal inconsistency rather than bad source.
func (p *Program) JumpToLabel(label string) bool {
	target, ok := p.Def.Labels[label]
	if !ok {
		return false
	}
	p.Cursor = target
	return true
}
