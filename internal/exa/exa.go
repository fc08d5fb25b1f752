// Package exa implements the EXA agent: the per-cycle
// instruction interpreter that owns private registers X/T, an optional held
// File, a Program cursor, and a communication Mode, and executes exactly one
// instruction per call to Step, returning one of Advanced/Blocked/
// Replicated/Died. Step never blocks on Go channels or
// goroutines; "Blocked" is a returned value, not a suspended call, matching
// probe-lang/lang/vm/vm.go's single-threaded Step/Run dispatch loop.
package exa

import (
	"github.com/exa-vm/exacore/internal/exaerr"
	"github.com/exa-vm/exacore/internal/host"
	"github.com/exa-vm/exacore/internal/mbus"
	"github.com/exa-vm/exacore/internal/program"
	"github.com/exa-vm/exacore/internal/register"
	"github.com/exa-vm/exacore/internal/vfile"
)

// Mode is the agent's M communication mode.
type Mode int

const (
	Global Mode = iota
	Local
)

func (m Mode) String() string {
	if m == Local {
		return "Local"
	}
	return "Global"
}

// State names the agent's current run state. Waiting* variants mirror the
// WaitState carried on a Blocked outcome; State is kept on the Exa itself so
// external inspection (dumps, tests) doesn't need to re-derive it from the
// last Outcome.
type State int

const (
	Running State = iota
	WaitingForFile
	WaitingForMRead
	WaitingForMWrite
	WaitingForLinkToOpen
	WaitingForHostAvailabilityToDropFile
	WaitingForHostAvailabilityToReplicate
)

func (s State) String() string {
	switch s {
	case Running:
		return "Running"
	case WaitingForFile:
		return "WaitingForFile"
	case WaitingForMRead:
		return "WaitingForMRead"
	case WaitingForMWrite:
		return "WaitingForMWrite"
	case WaitingForLinkToOpen:
		return "WaitingForLinkToOpen"
	case WaitingForHostAvailabilityToDropFile:
		return "WaitingForHostAvailabilityToDropFile"
	case WaitingForHostAvailabilityToReplicate:
		return "WaitingForHostAvailabilityToReplicate"
	default:
		return "Unknown"
	}
}

// OutcomeKind tags which of the four per-step results a Step call produced.
type OutcomeKind int

const (
	Advanced OutcomeKind = iota
	Blocked
	Replicated
	Died
)

// Outcome is the single per-step result contract Step produces.
type Outcome struct {
	Kind   OutcomeKind
	Wait   State         // meaningful when Kind == Blocked
	Child  *Exa          // meaningful when Kind == Replicated
	Reason exaerr.Reason // meaningful when Kind == Died

	// KillTarget is set alongside an Advanced outcome produced by KILL, when
	// a victim was selected (empty if no other occupant existed to kill).
	// The driver schedules that agent's death for the next cycle: Kill is
	// deferred, never immediate.
	KillTarget string
}

// World is the minimal collaborator surface Step needs from the arena that
// owns every Host and the process-wide Global M channel (package world
// satisfies this; exa does not import world to avoid a cycle, hence this
// handle-based arena interface instead of a direct reference).
type World interface {
	Host(id string) (*host.Host, bool)
	GlobalM() *mbus.Channel
	NextFileID() string
	RandRange(lo, hi int) int
	RandOtherOccupant(hostID, excludeID string) (string, bool)
}

// Exa is one mobile agent.
type Exa struct {
	ID string

	X *register.Basic
	T *register.Basic
	F *vfile.File // nil if not currently holding a file

	HostID string
	Prog   *program.Program
	Mode   Mode
	State  State

	nextReplicantSuffix int
}

// New constructs a fresh Exa at the start of def, resident on hostID, in
// Global mode: a freshly constructed agent's communication mode is Global,
// matching original_source's Exa constructors — see DESIGN.md for the REPL
// child mode decision, which follows the same rule.
func New(id, hostID string, prog *program.Program) *Exa {
	return &Exa{
		ID:     id,
		X:      register.NewBasic(),
		T:      register.NewBasic(),
		HostID: hostID,
		Prog:   prog,
		Mode:   Global,
		State:  Running,
	}
}

// Reset reinitializes a system Exa in place after it dies: cursor back to 0,
// registers cleared, any held file dropped by the caller first (original
// original_source host/mod.rs: system agents are re-armed, not removed).
func (e *Exa) Reset() {
	e.X = register.NewBasic()
	e.T = register.NewBasic()
	e.F = nil
	e.Prog.Cursor = 0
	e.Mode = Global
	e.State = Running
}

// mChannel picks the Global or Local M channel this Exa currently reads from
// or writes to, per its Mode.
func (e *Exa) mChannel(w World, h *host.Host) *mbus.Channel {
	if e.Mode == Local {
		return h.LocalM
	}
	return w.GlobalM()
}
