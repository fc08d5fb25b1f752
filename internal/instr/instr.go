package instr

import "github.com/exa-vm/exacore/internal/value"

// Instruction is one parsed program line. Which of A, B, C are meaningful,
// and what they mean, depends on Op:
//
//	Copy            A=src(rn)            C=dst(r)
//	AddI/SubI/MulI/
//	DivI/ModI/Swiz  A=src(rn) B=src(rn)  C=dst(r)
//	Test            A=src(rn) B=src(rn)  TestOp=operator
//	TestEOF/TestMRD (no operands)
//	Mark/Jump/TJump/
//	FJump/Repl      A=target(LabelId)
//	Link            A=gate(rn)
//	Host/File       C=dst(r)
//	VoidM/VoidF/Make/Drop/Wipe/Halt/Kill/Mode/Noop (no operands)
//	Grab            A=id(rn)
//	Seek            A=amount(rn)
//	Rand            A=lo(rn) B=hi(rn)    C=dst(r)
//	Note            Text=comment body
type Instruction struct {
	Op     Opcode
	Line   int
	A, B, C value.Value
	TestOp TestOperator
	Text   string
}

// Label returns the LabelId text carried by Mark/Jump/TJump/FJump/Repl.
func (i Instruction) Label() string {
	s, _ := i.A.Text()
	return s
}
