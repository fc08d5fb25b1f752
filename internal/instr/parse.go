package instr

import (
	"strconv"
	"strings"

	"github.com/exa-vm/exacore/internal/exaerr"
	"github.com/exa-vm/exacore/internal/value"
)

// ParseLine parses one line of EXA source. skip is true for
// blank lines and full-line comments (leading '#'), in which case inst and
// err are both zero. Any other problem is reported as an
// exaerr.ConstructionError naming lineNo.
func ParseLine(lineNo int, raw string) (inst Instruction, skip bool, err error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return Instruction{}, true, nil
	}

	op, rest := splitFirst(trimmed)
	if !isOpcodeWord(op) {
		return Instruction{}, false, exaerr.ConstructionError{
			Line: lineNo, Kind: exaerr.InvalidInstruction,
			Message: "not a 4-letter uppercase opcode: " + op,
		}
	}

	if op == "NOTE" {
		return Instruction{Op: Note, Line: lineNo, Text: rest}, false, nil
	}

	args := fields(rest)

	switch op {
	case "COPY":
		return parse2(lineNo, args, Copy, rnKind, rKind)
	case "ADDI":
		return parse3(lineNo, args, AddI)
	case "SUBI":
		return parse3(lineNo, args, SubI)
	case "MULI":
		return parse3(lineNo, args, MulI)
	case "DIVI":
		return parse3(lineNo, args, DivI)
	case "MODI":
		return parse3(lineNo, args, ModI)
	case "SWIZ":
		return parse3(lineNo, args, Swiz)
	case "RAND":
		return parse3(lineNo, args, Rand)
	case "TEST":
		return parseTest(lineNo, args)
	case "MARK":
		return parseLabelOnly(lineNo, args, Mark)
	case "JUMP":
		return parseLabelOnly(lineNo, args, Jump)
	case "TJMP":
		return parseLabelOnly(lineNo, args, TJump)
	case "FJMP":
		return parseLabelOnly(lineNo, args, FJump)
	case "REPL":
		return parseLabelOnly(lineNo, args, Repl)
	case "HALT":
		return parseNullary(lineNo, args, Halt)
	case "KILL":
		return parseNullary(lineNo, args, Kill)
	case "MODE":
		return parseNullary(lineNo, args, Mode)
	case "MAKE":
		return parseNullary(lineNo, args, Make)
	case "DROP":
		return parseNullary(lineNo, args, Drop)
	case "WIPE":
		return parseNullary(lineNo, args, Wipe)
	case "NOOP":
		return parseNullary(lineNo, args, Noop)
	case "LINK":
		return parse1(lineNo, args, Link, rnKind)
	case "GRAB":
		return parse1(lineNo, args, Grab, rnKind)
	case "SEEK":
		return parse1(lineNo, args, Seek, rnKind)
	case "HOST":
		in, skip, err := parse1(lineNo, args, Host, rKind)
		in.A, in.C = in.C, in.A
		return in, skip, err
	case "FILE":
		in, skip, err := parse1(lineNo, args, File, rKind)
		in.A, in.C = in.C, in.A
		return in, skip, err
	case "VOID":
		return parseVoid(lineNo, args)
	default:
		return Instruction{}, false, exaerr.ConstructionError{
			Line: lineNo, Kind: exaerr.InvalidInstruction,
			Message: "unknown opcode: " + op,
		}
	}
}

// ---- operand-kind helpers ---------------------------------------------------

type operandKind int

const (
	rnKind operandKind = iota
	rKind
)

func parseOperand(kind operandKind, tok string) (value.Value, bool) {
	switch kind {
	case rKind:
		if name, ok := parseRegister(tok); ok {
			return value.NewRegisterID(name), true
		}
		return value.Value{}, false
	default:
		if n, ok := parseNumber(tok); ok {
			return value.NewNumber(n), true
		}
		if name, ok := parseRegister(tok); ok {
			return value.NewRegisterID(name), true
		}
		return value.Value{}, false
	}
}

func parse1(lineNo int, args []string, op Opcode, kind operandKind) (Instruction, bool, error) {
	if len(args) != 1 {
		return badLength(lineNo, op, 1, len(args))
	}
	a, ok := parseOperand(kind, args[0])
	if !ok {
		return badValue(lineNo, args[0])
	}
	return Instruction{Op: op, Line: lineNo, A: a}, false, nil
}

func parse2(lineNo int, args []string, op Opcode, kindA, kindC operandKind) (Instruction, bool, error) {
	if len(args) != 2 {
		return badLength(lineNo, op, 2, len(args))
	}
	a, ok := parseOperand(kindA, args[0])
	if !ok {
		return badValue(lineNo, args[0])
	}
	c, ok := parseOperand(kindC, args[1])
	if !ok {
		return badValue(lineNo, args[1])
	}
	return Instruction{Op: op, Line: lineNo, A: a, C: c}, false, nil
}

func parse3(lineNo int, args []string, op Opcode) (Instruction, bool, error) {
	if len(args) != 3 {
		return badLength(lineNo, op, 3, len(args))
	}
	a, ok := parseOperand(rnKind, args[0])
	if !ok {
		return badValue(lineNo, args[0])
	}
	b, ok := parseOperand(rnKind, args[1])
	if !ok {
		return badValue(lineNo, args[1])
	}
	c, ok := parseOperand(rKind, args[2])
	if !ok {
		return badValue(lineNo, args[2])
	}
	return Instruction{Op: op, Line: lineNo, A: a, B: b, C: c}, false, nil
}

func parseNullary(lineNo int, args []string, op Opcode) (Instruction, bool, error) {
	if len(args) != 0 {
		return badLength(lineNo, op, 0, len(args))
	}
	return Instruction{Op: op, Line: lineNo}, false, nil
}

func parseLabelOnly(lineNo int, args []string, op Opcode) (Instruction, bool, error) {
	if len(args) != 1 {
		return badLength(lineNo, op, 1, len(args))
	}
	if args[0] == "" {
		return badValue(lineNo, args[0])
	}
	return Instruction{Op: op, Line: lineNo, A: value.NewLabelID(args[0])}, false, nil
}

func parseTest(lineNo int, args []string) (Instruction, bool, error) {
	if len(args) == 1 {
		switch args[0] {
		case "EOF":
			return Instruction{Op: TestEOF, Line: lineNo}, false, nil
		case "MRD":
			return Instruction{Op: TestMRD, Line: lineNo}, false, nil
		}
		return Instruction{}, false, exaerr.ConstructionError{
			Line: lineNo, Kind: exaerr.InvalidTestOperation,
			Message: "unrecognized TEST form: " + args[0],
		}
	}
	if len(args) != 3 {
		return badLength(lineNo, Test, 3, len(args))
	}
	a, ok := parseOperand(rnKind, args[0])
	if !ok {
		return badValue(lineNo, args[0])
	}
	top, ok := parseTestOperator(args[1])
	if !ok {
		return Instruction{}, false, exaerr.ConstructionError{
			Line: lineNo, Kind: exaerr.InvalidTestOperation,
			Message: "not a test operator: " + args[1],
		}
	}
	b, ok := parseOperand(rnKind, args[2])
	if !ok {
		return badValue(lineNo, args[2])
	}
	return Instruction{Op: Test, Line: lineNo, A: a, B: b, TestOp: top}, false, nil
}

func parseVoid(lineNo int, args []string) (Instruction, bool, error) {
	if len(args) != 1 {
		return badLength(lineNo, VoidM, 1, len(args))
	}
	switch args[0] {
	case "M":
		return Instruction{Op: VoidM, Line: lineNo}, false, nil
	case "F":
		return Instruction{Op: VoidF, Line: lineNo}, false, nil
	}
	return Instruction{}, false, exaerr.ConstructionError{
		Line: lineNo, Kind: exaerr.InvalidValues,
		Message: "VOID target must be M or F, got: " + args[0],
	}
}

func badLength(lineNo int, op Opcode, want, got int) (Instruction, bool, error) {
	return Instruction{}, false, exaerr.ConstructionError{
		Line: lineNo, Kind: exaerr.InvalidLineLength,
		Message: op.String() + " expects " + strconv.Itoa(want) + " operands, got " + strconv.Itoa(got),
	}
}

func badValue(lineNo int, tok string) (Instruction, bool, error) {
	return Instruction{}, false, exaerr.ConstructionError{
		Line: lineNo, Kind: exaerr.InvalidValues,
		Message: "not a valid operand: " + tok,
	}
}

// ---- tokenization -----------------------------------------------------------

func splitFirst(s string) (head, rest string) {
	i := strings.IndexByte(s, ' ')
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimLeft(s[i+1:], " ")
}

func fields(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}

func isOpcodeWord(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, c := range s {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}

// ---- token grammar ----------------------------------------------------------

func parseNumber(tok string) (int, bool) {
	if tok == "" {
		return 0, false
	}
	neg := false
	s := tok
	if s[0] == '-' {
		neg = true
		s = s[1:]
	}
	if len(s) < 1 || len(s) > 4 {
		return 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}

func parseRegister(tok string) (string, bool) {
	switch tok {
	case "X", "T", "F", "M":
		return tok, true
	}
	if len(tok) == 5 && tok[0] == '#' {
		return tok, true
	}
	return "", false
}

func parseTestOperator(tok string) (TestOperator, bool) {
	switch tok {
	case "=":
		return Eq, true
	case "<":
		return Lt, true
	case ">":
		return Gt, true
	default:
		return 0, false
	}
}
