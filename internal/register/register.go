// Package register implements the two Register variants: the
// scalar Basic cell (X, T, and the teacher-style "holds at most one value"
// register) and the FIFO Hardware queue ("#NERV"-style devices). Both
// validate every write the same way, mirroring the single validated write
// path probe-lang/lang/vm/memory.go uses for every memory access.
package register

import (
	"github.com/exa-vm/exacore/internal/exaerr"
	"github.com/exa-vm/exacore/internal/value"
)

// Register is the read/write contract shared by Basic and Hardware.
type Register interface {
	// Read returns the current value without mutating the register (Basic)
	// or peeks the head of the queue (Hardware, ReadOnly).
	Read() (value.Value, error)
	// ReadDestructive returns the current value and clears it (Basic) or
	// pops the head of the queue (Hardware, ReadOnly).
	ReadDestructive() (value.Value, error)
	// Write validates and stores v. See the Basic/Hardware docs for the
	// exact semantics (Hardware's ReadOnly write is a documented no-op).
	Write(v value.Value) error
}

// checkWritable panics if v is a kind a register may never hold: a register
// write targets are parser-validated to Number/Keyword sources, so a
// RegisterId/LabelId reaching here is a programmer error, not a runtime user
// error.
func checkWritable(v value.Value) {
	switch v.Kind() {
	case value.RegisterID, value.LabelID:
		panic("register: attempted to write a " + v.Kind().String() + " value into a register")
	}
}

// Basic is a scalar cell holding at most one Value.
type Basic struct {
	val value.Value
}

// NewBasic returns a Basic register initialized to Number(0), matching the
// X/T reset semantics used for freshly constructed and replicated Exas.
func NewBasic() *Basic {
	return &Basic{val: value.NewNumber(0)}
}

// NewBasicWithValue returns a Basic register pre-loaded with v instead of
// Number(0).
func NewBasicWithValue(v value.Value) *Basic {
	checkWritable(v)
	return &Basic{val: v}
}

// Read returns a clone of the held value without mutating the register.
func (b *Basic) Read() (value.Value, error) { return b.val, nil }

// ReadDestructive returns the held value and resets the cell to Number(0).
func (b *Basic) ReadDestructive() (value.Value, error) {
	v := b.val
	b.val = value.NewNumber(0)
	return v, nil
}

// Write replaces the held value. An out-of-range Number fails without
// mutating the register and surfaces as exaerr.BadValue: the
// destination is not hardware, so this is the generic "bad value" fatal
// path rather than InvalidHardwareRegisterAccess.
func (b *Basic) Write(v value.Value) error {
	checkWritable(v)
	if !v.InRange() {
		return exaerr.Die(exaerr.BadValue)
	}
	b.val = v
	return nil
}

// AccessMode is the direction a Hardware register permits.
type AccessMode int

const (
	ReadOnly AccessMode = iota
	WriteOnly
)

// Hardware is a FIFO-queue register modeling an external device.
// Reads and writes are gated by AccessMode: a ReadOnly register's
// writes are silently discarded (a documented no-op), and a
// WriteOnly register's reads are a fatal InvalidHardwareRegisterAccess.
type Hardware struct {
	mode  AccessMode
	queue []value.Value
}

// NewHardware returns a Hardware register in the given mode, pre-loaded with
// initial (copied; the caller's slice is not aliased). original_source's
// register/hardware.rs shows hardware registers seeded with device readings
// at host-construction time, which this constructor supports directly.
func NewHardware(mode AccessMode, initial []value.Value) *Hardware {
	q := make([]value.Value, len(initial))
	copy(q, initial)
	return &Hardware{mode: mode, queue: q}
}

// Mode reports the register's access mode.
func (h *Hardware) Mode() AccessMode { return h.mode }

// Len reports how many values remain queued.
func (h *Hardware) Len() int { return len(h.queue) }

// Read peeks the head of the queue. It fails with
// InvalidHardwareRegisterAccess if the register is WriteOnly or the queue is
// empty.
func (h *Hardware) Read() (value.Value, error) {
	if h.mode != ReadOnly {
		return value.Value{}, exaerr.Die(exaerr.InvalidHardwareRegisterAccess)
	}
	if len(h.queue) == 0 {
		return value.Value{}, exaerr.Die(exaerr.InvalidHardwareRegisterAccess)
	}
	return h.queue[0], nil
}

// ReadDestructive pops the head of the queue, failing the same way Read
// does for a WriteOnly register or an empty queue.
func (h *Hardware) ReadDestructive() (value.Value, error) {
	v, err := h.Read()
	if err != nil {
		return v, err
	}
	h.queue = h.queue[1:]
	return v, nil
}

// Write enqueues v on a WriteOnly register. On a ReadOnly register it
// validates v the same way Basic does (an out-of-range Number still fails)
// but otherwise silently discards it rather than enqueuing.
func (h *Hardware) Write(v value.Value) error {
	checkWritable(v)
	if !v.InRange() {
		return exaerr.Die(exaerr.InvalidHardwareRegisterAccess)
	}
	if h.mode == WriteOnly {
		h.queue = append(h.queue, v)
	}
	return nil
}
